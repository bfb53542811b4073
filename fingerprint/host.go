package fingerprint

import (
	"fmt"
	"os"
	"runtime"
	"time"
)

// HostEnvironment answers probes from the local operating system. It is the
// default for kiosk and CLI deployments where no browser bridge exists:
// canvas, WebGL, font, and plugin probes degrade to their sentinels, and the
// hostname takes over as the distinguishing signal.
type HostEnvironment struct {
	// UserAgentOverride replaces the synthesized donorauth user agent.
	UserAgentOverride string
}

// Signals reads the host snapshot. Every probe is best-effort; a probe that
// cannot be answered contributes its zero value and the generator fills in
// the sentinel.
func (e HostEnvironment) Signals() Signals {
	host, _ := os.Hostname()

	zone, _ := time.Now().Zone()

	ua := e.UserAgentOverride
	if ua == "" {
		ua = fmt.Sprintf("donorauth/1 (%s; %s)", runtime.GOOS, runtime.GOARCH)
	}

	return Signals{
		Timezone:  zone,
		Locale:    hostLocale(),
		UserAgent: ua,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Host:      host,
	}
}

// hostLocale mirrors the POSIX precedence: LC_ALL beats LC_MESSAGES beats
// LANG.
func hostLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
