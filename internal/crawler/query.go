package crawler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/amishk599/jobscout/internal/model"
)

// SearchURL builds the results URL for one page (1-based) of criteria.
func SearchURL(baseURL string, c model.SearchCriteria, page, pageSize int) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("keywords", c.Keywords)
	if c.Location != "" {
		q.Set("location", c.Location)
	}
	if codes := joinCodes(c.JobTypes); codes != "" {
		q.Set("f_JT", codes)
	}
	if codes := joinCodes(c.RemoteTypes); codes != "" {
		q.Set("f_WT", codes)
	}
	if code := c.Recency.Code(); code != "" {
		q.Set("f_TPR", code)
	}
	if page > 1 {
		q.Set("start", strconv.Itoa((page-1)*pageSize))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DetailURL returns the canonical posting URL for id on the same host as baseURL.
func DetailURL(baseURL string, id model.ListingID) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "https://www.linkedin.com/jobs/view/" + string(id) + "/"
	}
	return u.Scheme + "://" + u.Host + "/jobs/view/" + string(id) + "/"
}

// ParseListingID extracts the numeric id from a card attribute such as
// "urn:li:jobPosting:3812345678". Anything without a trailing run of digits
// yields "".
func ParseListingID(raw string) model.ListingID {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndexByte(raw, ':'); i >= 0 {
		raw = raw[i+1:]
	}
	if raw == "" {
		return ""
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return model.ListingID(raw)
}

func joinCodes[T interface{ Code() string }](vals []T) string {
	seen := make(map[string]bool, len(vals))
	codes := make([]string, 0, len(vals))
	for _, v := range vals {
		c := v.Code()
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}
	return strings.Join(codes, ",")
}
