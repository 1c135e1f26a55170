package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// Resource types never needed to read listing text.
var blockedResourceTypes = map[string]bool{
	"image":      true,
	"font":       true,
	"stylesheet": true,
	"media":      true,
}

var defaultBlockedDomains = []string{
	"doubleclick.net",
	"google-analytics.com",
	"googletagmanager.com",
	"googlesyndication.com",
	"adservice.google.com",
	"facebook.net",
	"connect.facebook.net",
	"scorecardresearch.com",
	"hotjar.com",
	"ads.linkedin.com",
	"px.ads.linkedin.com",
	"bat.bing.com",
}

// shouldBlock reports whether a request should be aborted before it leaves the browser.
func shouldBlock(resourceType, rawURL string, domains []string) bool {
	if blockedResourceTypes[resourceType] {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// initScript hides the usual automation tells before any page script runs.
func initScript(fp Fingerprint) string {
	lang := strings.SplitN(fp.Locale, "-", 2)[0]
	return fmt.Sprintf(`(() => {
  Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
  Object.defineProperty(navigator, 'plugins', { get: () => [
    { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
    { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
    { name: 'Native Client', filename: 'internal-nacl-plugin' },
  ] });
  Object.defineProperty(navigator, 'languages', { get: () => [%q, %q] });
  Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
  Object.defineProperty(navigator, 'connection', { get: () => ({ effectiveType: '4g', rtt: 50, downlink: 10, saveData: false }) });
  window.chrome = window.chrome || { runtime: {} };
})();`, fp.Locale, lang, fp.HardwareConcurrency)
}

// contextOptions maps a fingerprint and proxy onto new-context options.
func contextOptions(fp Fingerprint, proxy *Proxy) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		UserAgent:        playwright.String(fp.UserAgent),
		Viewport:         &playwright.Size{Width: fp.Viewport.Width, Height: fp.Viewport.Height},
		Locale:           playwright.String(fp.Locale),
		TimezoneId:       playwright.String(fp.TimezoneID),
		ExtraHttpHeaders: fp.Headers(),
	}
	if proxy != nil {
		opts.Proxy = &playwright.Proxy{Server: proxy.Server}
		if proxy.Username != "" {
			opts.Proxy.Username = playwright.String(proxy.Username)
			opts.Proxy.Password = playwright.String(proxy.Password)
		}
	}
	return opts
}

// applyStealth installs the init script and the request filter on a fresh context.
func applyStealth(bctx playwright.BrowserContext, fp Fingerprint, domains []string) error {
	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(initScript(fp))}); err != nil {
		return fmt.Errorf("add init script: %w", err)
	}
	err := bctx.Route("**/*", func(route playwright.Route) {
		req := route.Request()
		if shouldBlock(req.ResourceType(), req.URL(), domains) {
			_ = route.Abort()
			return
		}
		_ = route.Continue()
	})
	if err != nil {
		return fmt.Errorf("install request filter: %w", err)
	}
	return nil
}
