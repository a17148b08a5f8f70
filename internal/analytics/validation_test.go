package analytics

import (
	"strings"
	"testing"
	"time"
)

func TestJobViewPayload_Validate(t *testing.T) {
	t.Parallel()

	base := JobViewPayload{
		JobID:       "01HZXJOB",
		CompanyID:   "01HZXCOMPANY",
		Referrer:    "https://news.example.com/jobs",
		UserAgent:   "Mozilla/5.0",
		VisitorHash: "0123456789abcdef",
		CountryCode: "DE",
		ViewedAt:    time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC).UnixMilli(),
	}

	tests := []struct {
		name    string
		mutate  func(p *JobViewPayload)
		wantErr string
	}{
		{"valid", func(p *JobViewPayload) {}, ""},
		{"no country", func(p *JobViewPayload) { p.CountryCode = "" }, ""},
		{"no job", func(p *JobViewPayload) { p.JobID = "" }, "jid"},
		{"no company", func(p *JobViewPayload) { p.CompanyID = "" }, "cid"},
		{"short visitor hash", func(p *JobViewPayload) { p.VisitorHash = "abc" }, "vh"},
		{"non hex visitor hash", func(p *JobViewPayload) { p.VisitorHash = "zzzzzzzzzzzzzzzz" }, "vh"},
		{"three letter country", func(p *JobViewPayload) { p.CountryCode = "DEU" }, "cc"},
		{"no timestamp", func(p *JobViewPayload) { p.ViewedAt = 0 }, "t:"},
		{"long referrer", func(p *JobViewPayload) { p.Referrer = strings.Repeat("r", maxMetaLength+1) }, "r:"},
		{"long user agent", func(p *JobViewPayload) { p.UserAgent = strings.Repeat("u", maxMetaLength+1) }, "ua"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := base
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestJobViewPayload_ValidateReportsAll(t *testing.T) {
	t.Parallel()

	err := JobViewPayload{}.Validate()
	if err == nil {
		t.Fatal("empty payload accepted")
	}
	for _, field := range []string{"jid", "cid", "vh", "t:"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}
