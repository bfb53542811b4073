// Package fingerprint derives a best-effort stable identifier for the
// current device from passively observable signals. The result is a weak
// correlation hint, not a cryptographic identity: devices with identical
// hardware and software images are expected to collide, and a browser
// update or font installation may change the value.
//
// Signals come from a pluggable [Environment]. Webview and wasm shells
// supply real browser probes (canvas render, WebGL renderer, fonts,
// plugins); headless deployments use [HostEnvironment], which degrades the
// browser-only probes to sentinel values instead of failing.
package fingerprint

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Sentinel values substituted for probes the environment cannot answer.
// They are written into the record literally so a missing probe stays
// visible in the decoded fingerprint.
const (
	SentinelNoCanvas = "no-canvas"
	SentinelNoWebGL  = "no-webgl"
)

const recordVersionV1 = 1

// canvasDigestThreshold keeps data-URL canvas renders from bloating the
// fingerprint; anything longer is replaced by a blake2b digest.
const canvasDigestThreshold = 64

// Signals is one raw probe snapshot. Zero values are legal everywhere; the
// generator normalizes them to sentinels where one is defined.
type Signals struct {
	Canvas        string
	WebGLVendor   string
	WebGLRenderer string
	Fonts         []string
	Plugins       []string
	ScreenWidth   int
	ScreenHeight  int
	ColorDepth    int
	Timezone      string
	Locale        string
	UserAgent     string
	Platform      string
	Host          string
}

// Environment supplies probe snapshots. Implementations may panic from a
// broken probe; the generator recovers and degrades to sentinels.
type Environment interface {
	Signals() Signals
}

// Generator turns Environment snapshots into opaque fingerprint strings.
type Generator struct {
	env Environment
	now func() time.Time
}

// NewGenerator builds a Generator over env. A nil env behaves like an
// environment that answers nothing.
func NewGenerator(env Environment) *Generator {
	return &Generator{
		env: env,
		now: time.Now,
	}
}

// Generate probes the environment and returns the encoded fingerprint. It
// never fails: a probe that panics or is unavailable contributes its
// sentinel value instead. Two calls in an unchanged environment within the
// same second produce different strings only through the capture timestamp;
// the signal portion is deterministic.
func (g *Generator) Generate() string {
	signals := g.capture()
	normalize(&signals)
	return encodeRecord(signals, g.now().Unix())
}

// Encode turns an already-captured snapshot into a fingerprint string,
// normalizing missing probes to sentinels. Encode is idempotent over
// normalization, so snapshots returned by [Generator.Probe] are fine to
// pass through.
func Encode(signals Signals) string {
	normalize(&signals)
	return encodeRecord(signals, time.Now().Unix())
}

// Probe returns the normalized signal snapshot without encoding it. Used by
// the device info collector so fingerprint and metadata come from the same
// probe pass.
func (g *Generator) Probe() Signals {
	signals := g.capture()
	normalize(&signals)
	return signals
}

func (g *Generator) capture() (signals Signals) {
	if g == nil || g.env == nil {
		return Signals{}
	}
	defer func() {
		if recover() != nil {
			signals = Signals{}
		}
	}()
	return g.env.Signals()
}

func normalize(s *Signals) {
	if s.Canvas == "" {
		s.Canvas = SentinelNoCanvas
	} else if len(s.Canvas) > canvasDigestThreshold {
		sum := blake2b.Sum256([]byte(s.Canvas))
		s.Canvas = hex.EncodeToString(sum[:16])
	}
	if s.WebGLVendor == "" {
		s.WebGLVendor = SentinelNoWebGL
	}
	if s.WebGLRenderer == "" {
		s.WebGLRenderer = SentinelNoWebGL
	}
}

// encodeRecord serializes the signal snapshot as a versioned,
// length-prefixed binary record and base64url-encodes it for transport.
func encodeRecord(s Signals, capturedAt int64) string {
	var buf bytes.Buffer

	buf.WriteByte(recordVersionV1)
	_ = binary.Write(&buf, binary.BigEndian, capturedAt)

	writeString(&buf, s.Canvas)
	writeString(&buf, s.WebGLVendor)
	writeString(&buf, s.WebGLRenderer)
	writeList(&buf, s.Fonts)
	writeList(&buf, s.Plugins)

	_ = binary.Write(&buf, binary.BigEndian, uint16(clampDim(s.ScreenWidth)))
	_ = binary.Write(&buf, binary.BigEndian, uint16(clampDim(s.ScreenHeight)))
	buf.WriteByte(byte(clampDepth(s.ColorDepth)))

	writeString(&buf, s.Timezone)
	writeString(&buf, s.Locale)
	writeString(&buf, s.Platform)
	writeString(&buf, s.Host)

	return base64.RawURLEncoding.EncodeToString(buf.Bytes())
}

func writeString(buf *bytes.Buffer, v string) {
	if len(v) > 0xFFFF {
		v = v[:0xFFFF]
	}
	_ = binary.Write(buf, binary.BigEndian, uint16(len(v)))
	buf.WriteString(v)
}

func writeList(buf *bytes.Buffer, items []string) {
	n := len(items)
	if n > 0xFFFF {
		n = 0xFFFF
	}
	_ = binary.Write(buf, binary.BigEndian, uint16(n))
	for _, item := range items[:n] {
		writeString(buf, item)
	}
}

func clampDim(v int) int {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return v
}

func clampDepth(v int) int {
	if v < 0 {
		return 0
	}
	if v > 0xFF {
		return 0xFF
	}
	return v
}
