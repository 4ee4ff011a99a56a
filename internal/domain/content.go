package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/crowdvote/crowdvote"
)

// Status is the derived lifecycle state of a content item. It is never
// persisted: it is recomputed from wall-clock time and the stored flags
// on every read, so it can never drift from the timestamps.
type Status int

const (
	StatusPending Status = iota
	StatusLive
	StatusExpired
	StatusFinalized
	StatusInactive
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusLive:
		return "live"
	case StatusExpired:
		return "expired"
	case StatusFinalized:
		return "finalized"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// ParseStatus maps a filter string to a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "live":
		return StatusLive, nil
	case "expired":
		return StatusExpired, nil
	case "finalized":
		return StatusFinalized, nil
	case "inactive":
		return StatusInactive, nil
	default:
		return 0, ValidationError{Reason: fmt.Sprintf("unknown status %q", s)}
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ContentItem is one submission under vote. ContentID is assigned by
// the ledger and is the external identity everywhere.
type ContentItem struct {
	ContentID       int64     `json:"contentId"`
	IpfsHash        string    `json:"ipfsHash"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ContentType     string    `json:"contentType"`
	Creator         string    `json:"creator"`
	Tags            []string  `json:"tags"`
	SubmissionTime  time.Time `json:"submissionTime"`
	VotingStartTime time.Time `json:"votingStartTime"`
	VotingEndTime   time.Time `json:"votingEndTime"`
	IsActive        bool      `json:"isActive"`
	IsFinalized     bool      `json:"isFinalized"`
	Upvotes         int64     `json:"upvotes"`
	Downvotes       int64     `json:"downvotes"`
	VoteCount       int64     `json:"voteCount"`
	TotalUSDValue   float64   `json:"totalUSDValue"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	ContentURL      string    `json:"contentUrl,omitempty"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
}

// StatusAt derives the lifecycle state at the given instant.
// now == VotingEndTime counts as expired, not live.
func (c ContentItem) StatusAt(now time.Time) Status {
	if c.IsFinalized {
		return StatusFinalized
	}
	if !c.IsActive {
		return StatusInactive
	}
	if now.Before(c.VotingStartTime) {
		return StatusPending
	}
	if now.Before(c.VotingEndTime) {
		return StatusLive
	}
	return StatusExpired
}

// TimeRemainingAt is the countdown until voting closes, zero once past.
func (c ContentItem) TimeRemainingAt(now time.Time) time.Duration {
	if !now.Before(c.VotingEndTime) {
		return 0
	}
	return c.VotingEndTime.Sub(now)
}

// ValidateVotingWindow enforces the creation-time duration bounds.
// Failure messages carry the computed duration so the caller can see
// what was actually submitted.
func (c ContentItem) ValidateVotingWindow() error {
	duration := c.VotingEndTime.Sub(c.VotingStartTime)
	if duration < MinVotingPeriod {
		return ValidationError{Reason: fmt.Sprintf(
			"voting period must be at least %s, got %s", MinVotingPeriod, duration)}
	}
	if duration > MaxVotingPeriod {
		return ValidationError{Reason: fmt.Sprintf(
			"voting period must be at most %s, got %s", MaxVotingPeriod, duration)}
	}
	return nil
}

// ContentView is the read-model composed for API responses: the stored
// row plus derived fields and best-effort enrichment.
type ContentView struct {
	ContentItem
	Status        Status                     `json:"status"`
	TimeRemaining int64                      `json:"timeRemaining"`
	Metadata      map[string]any             `json:"metadata"`
	Results       *crowdvote.AggregateResult `json:"blockchainResults,omitempty"`
}

// NewContentView derives the view fields from a snapshot at now.
func NewContentView(item ContentItem, now time.Time) ContentView {
	return ContentView{
		ContentItem:   item,
		Status:        item.StatusAt(now),
		TimeRemaining: int64(item.TimeRemainingAt(now).Seconds()),
		Metadata:      map[string]any{},
	}
}
