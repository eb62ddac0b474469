package tracking

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/phishdrill/phishdrill/internal/model"
)

func TestGenerateVisitorHash_Deterministic(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	hash1 := GenerateVisitorHash("192.168.1.100", "Mozilla/5.0", at)
	hash2 := GenerateVisitorHash("192.168.1.100", "Mozilla/5.0", at)

	if hash1 != hash2 {
		t.Error("Same inputs should produce same hash")
	}
	if len(hash1) != 16 {
		t.Errorf("Hash length = %d, want 16", len(hash1))
	}
}

func TestGenerateVisitorHash_DailyRotation(t *testing.T) {
	t.Parallel()

	day1 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC)

	if GenerateVisitorHash("10.0.0.1", "UA", day1) == GenerateVisitorHash("10.0.0.1", "UA", day2) {
		t.Error("Different days should produce different hashes")
	}

	morning := time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)
	if GenerateVisitorHash("10.0.0.1", "UA", day1) != GenerateVisitorHash("10.0.0.1", "UA", morning) {
		t.Error("Same day should produce same hash regardless of time")
	}
}

func TestGenerateVisitorHash_DifferentInputs(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		ip1, ua1 string
		ip2, ua2 string
	}{
		{"different IP", "192.168.1.1", "Mozilla/5.0", "192.168.1.2", "Mozilla/5.0"},
		{"different UA", "192.168.1.1", "Chrome/100", "192.168.1.1", "Firefox/100"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if GenerateVisitorHash(tt.ip1, tt.ua1, at) == GenerateVisitorHash(tt.ip2, tt.ua2, at) {
				t.Error("Different inputs should produce different hashes")
			}
		})
	}
}

func TestTruncateUserAgent(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 600)
	if got := TruncateUserAgent(long); len(got) != 500 {
		t.Errorf("len = %d, want 500", len(got))
	}
	if got := TruncateUserAgent("Mozilla/5.0"); got != "Mozilla/5.0" {
		t.Errorf("got %q, want unchanged", got)
	}

	// 499 ASCII bytes then a 3-byte rune straddling the limit.
	multi := strings.Repeat("a", 499) + "€" + "tail"
	got := TruncateUserAgent(multi)
	if !utf8.ValidString(got) {
		t.Errorf("truncated user agent is not valid UTF-8")
	}
	if len(got) != 499 {
		t.Errorf("len = %d, want 499", len(got))
	}
}

func TestPayloadFor(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	p := PayloadFor(model.TrackingEvent{
		TargetID:    "tgt-1",
		CampaignID:  "cmp-1",
		Kind:        model.EventClick,
		VisitorHash: "0123456789abcdef",
		UserAgent:   strings.Repeat("x", 700),
		OccurredAt:  at,
	})

	if p.TargetID != "tgt-1" || p.CampaignID != "cmp-1" || p.Kind != "click" {
		t.Errorf("unexpected payload ids: %+v", p)
	}
	if p.OccurredAt != at.UnixMilli() {
		t.Errorf("OccurredAt = %d, want %d", p.OccurredAt, at.UnixMilli())
	}
	if len(p.UserAgent) != 500 {
		t.Errorf("user agent not truncated: %d", len(p.UserAgent))
	}
	if err := ValidatePayload(p); err != nil {
		t.Errorf("payload built from a valid event should validate: %v", err)
	}
}
