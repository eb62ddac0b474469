package tracking

import (
	"fmt"

	"github.com/phishdrill/phishdrill/internal/model"
)

const visitorHashLength = 16

// ValidatePayload checks a stream payload before it reaches the database.
func ValidatePayload(payload EventPayload) error {
	if payload.TargetID == "" {
		return fmt.Errorf("target_id is required")
	}
	if payload.CampaignID == "" {
		return fmt.Errorf("campaign_id is required")
	}
	if !model.EventKind(payload.Kind).IsValid() {
		return fmt.Errorf("unknown kind %q", payload.Kind)
	}
	if len(payload.VisitorHash) != visitorHashLength || !isHex(payload.VisitorHash) {
		return fmt.Errorf("visitor_hash must be %d hex chars", visitorHashLength)
	}
	if payload.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}
	if len(payload.UserAgent) > maxUserAgentLength {
		return fmt.Errorf("user_agent too long")
	}
	return nil
}

func isHex(value string) bool {
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F') {
			continue
		}
		return false
	}
	return true
}
