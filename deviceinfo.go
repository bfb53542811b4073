package donorauth

import (
	"fmt"

	"github.com/Muhammad2308/donorauth/fingerprint"
)

// Collector assembles the DeviceInfo payload attached to every
// auth-relevant backend call. It always succeeds; probe failures are
// absorbed by the fingerprint generator.
type Collector struct {
	gen *fingerprint.Generator
}

// NewCollector builds a Collector over env. Pass
// fingerprint.HostEnvironment{} unless a browser bridge is available.
func NewCollector(env fingerprint.Environment) *Collector {
	return &Collector{gen: fingerprint.NewGenerator(env)}
}

// Collect probes the environment once and returns a fresh snapshot. The
// result must not be cached across calls: each auth-relevant request gets
// its own Collect so that environment changes within the process lifetime
// are observed.
func (c *Collector) Collect() DeviceInfo {
	signals := c.gen.Probe()

	resolution := ""
	if signals.ScreenWidth > 0 || signals.ScreenHeight > 0 {
		resolution = fmt.Sprintf("%dx%d", signals.ScreenWidth, signals.ScreenHeight)
	}

	return DeviceInfo{
		Fingerprint:      fingerprint.Encode(signals),
		UserAgent:        signals.UserAgent,
		Platform:         signals.Platform,
		Language:         signals.Locale,
		ScreenResolution: resolution,
		Timezone:         signals.Timezone,
	}
}
