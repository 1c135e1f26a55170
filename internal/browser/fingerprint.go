package browser

import "math/rand/v2"

// Viewport is a window size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// Fingerprint is the identity a browsing context presents to the source.
type Fingerprint struct {
	UserAgent           string
	Viewport            Viewport
	Locale              string
	TimezoneID          string
	AcceptLanguage      string
	HardwareConcurrency int
}

// Headers returns the extra request headers matching the fingerprint.
func (f Fingerprint) Headers() map[string]string {
	return map[string]string{
		"Accept-Language":           f.AcceptLanguage,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Upgrade-Insecure-Requests": "1",
		"DNT":                       "1",
	}
}

// Each user agent is paired with a viewport a real device of that kind would report.
var agentPool = []struct {
	ua string
	vp Viewport
}{
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36", Viewport{1920, 1080}},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36", Viewport{1366, 768}},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36", Viewport{1440, 900}},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15", Viewport{1680, 1050}},
	{"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36", Viewport{1600, 900}},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0", Viewport{1536, 864}},
}

var localePool = []struct {
	locale, tz, lang string
}{
	{"en-US", "America/New_York", "en-US,en;q=0.9"},
	{"en-US", "America/Chicago", "en-US,en;q=0.9"},
	{"en-US", "America/Los_Angeles", "en-US,en;q=0.9"},
	{"en-GB", "Europe/London", "en-GB,en;q=0.9"},
}

var concurrencyPool = []int{4, 8, 12, 16}

// RandomFingerprint picks a user-agent/viewport pair and a locale/timezone pair.
func RandomFingerprint() Fingerprint {
	a := agentPool[rand.IntN(len(agentPool))]
	l := localePool[rand.IntN(len(localePool))]
	return Fingerprint{
		UserAgent:           a.ua,
		Viewport:            a.vp,
		Locale:              l.locale,
		TimezoneID:          l.tz,
		AcceptLanguage:      l.lang,
		HardwareConcurrency: concurrencyPool[rand.IntN(len(concurrencyPool))],
	}
}
