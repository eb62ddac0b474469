package model

import "time"

// EventKind is what a target did with a lure.
type EventKind string

const (
	EventOpen   EventKind = "open"
	EventClick  EventKind = "click"
	EventSubmit EventKind = "submit"
	EventReport EventKind = "report"
)

// IsValid checks if the event kind is known.
func (k EventKind) IsValid() bool {
	switch k {
	case EventOpen, EventClick, EventSubmit, EventReport:
		return true
	}
	return false
}

// TrackingEvent is a single interaction captured on a tracking route.
type TrackingEvent struct {
	ID      string `json:"id"`       // ULID
	EventID string `json:"event_id"` // Redis stream ID, idempotency key

	TargetID   string    `json:"target_id"`
	CampaignID string    `json:"campaign_id"`
	Kind       EventKind `json:"kind"`

	VisitorHash string `json:"visitor_hash,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// ResultType is the furthest a target progressed through a campaign.
type ResultType string

const (
	ResultNotDelivered       ResultType = "not_delivered"
	ResultDeliveredNotOpened ResultType = "delivered_not_opened"
	ResultOpenedNoClick      ResultType = "opened_no_click"
	ResultClickedNoSubmit    ResultType = "clicked_no_submit"
	ResultSubmittedData      ResultType = "submitted_data"
	ResultReportedAsPhishing ResultType = "reported_as_phishing"
)

// ResultTypes in progression order.
var ResultTypes = []ResultType{
	ResultNotDelivered,
	ResultDeliveredNotOpened,
	ResultOpenedNoClick,
	ResultClickedNoSubmit,
	ResultSubmittedData,
	ResultReportedAsPhishing,
}

// Rank orders result types; unknown types rank below everything.
func (r ResultType) Rank() int {
	for i, t := range ResultTypes {
		if t == r {
			return i
		}
	}
	return -1
}

var resultForEvent = map[EventKind]ResultType{
	EventOpen:   ResultOpenedNoClick,
	EventClick:  ResultClickedNoSubmit,
	EventSubmit: ResultSubmittedData,
	EventReport: ResultReportedAsPhishing,
}

// CampaignResult is the per-target outcome of a campaign.
type CampaignResult struct {
	ID          string     `json:"id"`
	CampaignID  string     `json:"campaign_id"`
	TargetID    string     `json:"target_id"`
	Email       string     `json:"email,omitempty"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	Result      ResultType `json:"result"`
	Score       int        `json:"score"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	OpenedAt    *time.Time `json:"opened_at,omitempty"`
	ClickedAt   *time.Time `json:"clicked_at,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ReportedAt  *time.Time `json:"reported_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewDeliveredResult is the result recorded for a target when its campaign goes live.
func NewDeliveredResult(id, campaignID, targetID string, at time.Time) *CampaignResult {
	r := &CampaignResult{
		ID:          id,
		CampaignID:  campaignID,
		TargetID:    targetID,
		Result:      ResultDeliveredNotOpened,
		DeliveredAt: &at,
		UpdatedAt:   at,
	}
	r.Score = ScoreFor(r)
	return r
}

// ApplyEvent folds e into r. Timestamps are only ever set once and the
// result type never moves backwards. Returns false when r is unchanged.
func ApplyEvent(r *CampaignResult, e TrackingEvent) bool {
	next, ok := resultForEvent[e.Kind]
	if !ok {
		return false
	}

	at := e.OccurredAt
	changed := false
	setOnce := func(field **time.Time) {
		if *field == nil {
			t := at
			*field = &t
			changed = true
		}
	}

	setOnce(&r.DeliveredAt)
	switch e.Kind {
	case EventOpen:
		setOnce(&r.OpenedAt)
	case EventClick:
		setOnce(&r.ClickedAt)
	case EventSubmit:
		setOnce(&r.SubmittedAt)
	case EventReport:
		setOnce(&r.ReportedAt)
	}

	if next.Rank() > r.Result.Rank() {
		r.Result = next
		changed = true
	}
	if score := ScoreFor(r); score != r.Score {
		r.Score = score
		changed = true
	}
	if changed {
		r.UpdatedAt = at
	}
	return changed
}

// ScoreFor grades awareness from 0 to 100. Reporting a lure scores highest,
// but less so when data was already handed over.
func ScoreFor(r *CampaignResult) int {
	switch r.Result {
	case ResultReportedAsPhishing:
		if r.SubmittedAt != nil {
			return 50
		}
		return 100
	case ResultDeliveredNotOpened:
		return 80
	case ResultOpenedNoClick:
		return 60
	case ResultClickedNoSubmit:
		return 25
	default:
		return 0
	}
}

// ResultSummary aggregates campaign results.
type ResultSummary struct {
	Total        int64                `json:"total"`
	Counts       map[ResultType]int64 `json:"counts"`
	AverageScore float64              `json:"average_score"`
}

// Summarize builds a ResultSummary over results.
func Summarize(results []*CampaignResult) ResultSummary {
	s := ResultSummary{Counts: make(map[ResultType]int64, len(ResultTypes))}
	for _, t := range ResultTypes {
		s.Counts[t] = 0
	}
	var total int
	for _, r := range results {
		s.Counts[r.Result]++
		total += r.Score
	}
	s.Total = int64(len(results))
	if s.Total > 0 {
		s.AverageScore = float64(total) / float64(s.Total)
	}
	return s
}
