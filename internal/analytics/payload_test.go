package analytics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hireline/hireline/internal/metrics"
)

func TestVisitorHash(t *testing.T) {
	t.Parallel()

	noon := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	base := visitorHash("203.0.113.9", "Mozilla/5.0", noon)

	if len(base) != visitorHashLen {
		t.Fatalf("len = %d, want %d", len(base), visitorHashLen)
	}

	tests := []struct {
		name     string
		ip, ua   string
		at       time.Time
		wantSame bool
	}{
		{"same inputs", "203.0.113.9", "Mozilla/5.0", noon, true},
		{"later same day", "203.0.113.9", "Mozilla/5.0", noon.Add(11 * time.Hour), true},
		{"next day", "203.0.113.9", "Mozilla/5.0", noon.Add(24 * time.Hour), false},
		{"other ip", "203.0.113.10", "Mozilla/5.0", noon, false},
		{"other agent", "203.0.113.9", "curl/8.0", noon, false},
		{"shifted boundary", "203.0.113.", "9Mozilla/5.0", noon, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := visitorHash(tt.ip, tt.ua, tt.at)
			if (got == base) != tt.wantSame {
				t.Errorf("visitorHash() = %s, base %s, wantSame %v", got, base, tt.wantSame)
			}
		})
	}
}

func TestCleanReferrer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"https://jobs.example.com/list?utm_source=mail&q=go", "https://jobs.example.com/list"},
		{"https://example.com/page#apply", "https://example.com/page"},
		{"http://user:pw@example.com/x", "http://example.com/x"},
		{"android-app://com.example", ""},
		{"example.com/no-scheme", ""},
		{"://broken", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := cleanReferrer(tt.in); got != tt.want {
				t.Errorf("cleanReferrer(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	long := cleanReferrer("https://example.com/" + strings.Repeat("p", 2*maxMetaLength))
	if len(long) != maxMetaLength {
		t.Errorf("long referrer kept %d bytes, want %d", len(long), maxMetaLength)
	}
}

func TestClip(t *testing.T) {
	t.Parallel()

	if got := clip("Mozilla/5.0"); got != "Mozilla/5.0" {
		t.Errorf("short value changed: %q", got)
	}
	if got := clip(strings.Repeat("x", maxMetaLength+10)); len(got) != maxMetaLength {
		t.Errorf("len = %d, want %d", len(got), maxMetaLength)
	}

	// A 3-byte rune straddling the limit must not be split.
	s := strings.Repeat("a", maxMetaLength-1) + "€"
	got := clip(s)
	if len(got) != maxMetaLength-1 || !strings.HasSuffix(got, "a") {
		t.Errorf("clip split a rune: len %d", len(got))
	}
}

func TestCountryCode(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"de":  "DE",
		"VN":  "VN",
		"XX":  "",
		"T1":  "",
		"USA": "",
		"":    "",
		"1a":  "",
	}
	for in, want := range tests {
		if got := countryCode(in); got != want {
			t.Errorf("countryCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPayloadFromRequest(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/api/v1/jobs/01J", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0")
	r.Header.Set("Referer", "https://board.example.com/search?q=rust")
	r.Header.Set("CF-IPCountry", "nl")
	at := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)

	p := PayloadFromRequest(r, "198.51.100.4", "job-1", "co-1", at)

	if p.JobID != "job-1" || p.CompanyID != "co-1" {
		t.Errorf("ids = %q/%q", p.JobID, p.CompanyID)
	}
	if p.Referrer != "https://board.example.com/search" {
		t.Errorf("Referrer = %q", p.Referrer)
	}
	if p.CountryCode != "NL" {
		t.Errorf("CountryCode = %q", p.CountryCode)
	}
	if p.ViewedAt != at.UnixMilli() {
		t.Errorf("ViewedAt = %d", p.ViewedAt)
	}
	if strings.Contains(p.VisitorHash, "198.51") {
		t.Error("visitor hash leaks the address")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("payload does not validate: %v", err)
	}
}

func TestPublisher_RecordDropsWhenSaturated(t *testing.T) {
	t.Parallel()

	recorder := metrics.NewInMemory()
	p := NewPublisher(nil, testLogger(), recorder)
	for i := 0; i < cap(p.inFlight); i++ {
		p.inFlight <- struct{}{}
	}

	p.Record(JobViewPayload{JobID: "job-1"})

	if got := recorder.Snapshot().ViewEventsDropped; got != 1 {
		t.Errorf("ViewEventsDropped = %d, want 1", got)
	}
}
