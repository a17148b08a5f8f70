package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// maxMetaLength caps referrer and user agent bytes kept per view.
const maxMetaLength = 500

// JobViewPayload is the compact JSON written to the stream for one view.
type JobViewPayload struct {
	JobID       string `json:"jid"`
	CompanyID   string `json:"cid"`
	Referrer    string `json:"r,omitempty"`
	UserAgent   string `json:"ua,omitempty"`
	VisitorHash string `json:"vh"`
	CountryCode string `json:"cc,omitempty"`
	ViewedAt    int64  `json:"t"` // unix ms
}

// PayloadFromRequest describes a job detail view. clientIP is the address
// already resolved by the RealIP middleware and is never stored.
func PayloadFromRequest(r *http.Request, clientIP, jobID, companyID string, viewedAt time.Time) JobViewPayload {
	ua := r.UserAgent()
	return JobViewPayload{
		JobID:       jobID,
		CompanyID:   companyID,
		Referrer:    cleanReferrer(r.Referer()),
		UserAgent:   clip(ua),
		VisitorHash: visitorHash(clientIP, ua, viewedAt),
		CountryCode: countryCode(r.Header.Get("CF-IPCountry")),
		ViewedAt:    viewedAt.UnixMilli(),
	}
}

// visitorHash identifies a visitor for one UTC day only. The salt changes
// at midnight so hashes cannot be joined across days.
func visitorHash(ip, userAgent string, viewedAt time.Time) string {
	h := sha256.New()
	h.Write([]byte("hireline-view\x00"))
	h.Write([]byte(viewedAt.UTC().Format(time.DateOnly)))
	h.Write([]byte{0})
	h.Write([]byte(ip))
	h.Write([]byte{0})
	h.Write([]byte(userAgent))
	return hex.EncodeToString(h.Sum(nil)[:visitorHashLen/2])
}

// cleanReferrer keeps scheme, host and path of an http(s) referrer. Query,
// fragment and credentials are dropped.
func cleanReferrer(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	clean := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	return clip(clean.String())
}

// clip truncates s to maxMetaLength bytes on a rune boundary.
func clip(s string) string {
	if len(s) <= maxMetaLength {
		return s
	}
	cut := maxMetaLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// countryCode normalises a CF-IPCountry value. Cloudflare sends XX for
// unknown and T1 for Tor; both are dropped.
func countryCode(v string) string {
	if len(v) != 2 {
		return ""
	}
	v = strings.ToUpper(v)
	if v[0] < 'A' || v[0] > 'Z' || v[1] < 'A' || v[1] > 'Z' || v == "XX" {
		return ""
	}
	return v
}
