package crowdvote

import (
	"time"
)

// VoteChoice is the enumerated vote option committed on-chain.
type VoteChoice uint8

const (
	VoteDown VoteChoice = 0
	VoteUp   VoteChoice = 1
)

// TokenType identifies the token class a vote is staked in.
type TokenType uint8

const (
	TokenNative TokenType = 0
)

// CommitReceipt is returned to the voter after a commit is recorded.
// The salt must be kept by the caller: it is required again at reveal
// time and becomes unrecoverable if the stored record is lost.
type CommitReceipt struct {
	Commitment      string `json:"commitment"`
	Salt            string `json:"salt"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

// RevealReceipt reports the outcome of a reveal submitted to the ledger.
type RevealReceipt struct {
	ContentID       int64  `json:"contentId"`
	TransactionHash string `json:"transactionHash"`
	BlockNumber     uint64 `json:"blockNumber"`
}

// AggregateResult is the finalized tally read back from the ledger.
type AggregateResult struct {
	Upvotes     uint64 `json:"upvotes"`
	Downvotes   uint64 `json:"downvotes"`
	TotalVoters uint64 `json:"totalVoters"`
	IsFinalized bool   `json:"isFinalized"`
}

// Event is broadcast over the signal channel when content is created
// or changes lifecycle state.
type Event struct {
	Type      string    `json:"type"`
	ContentID int64     `json:"contentId"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventContentCreated   = "content.created"
	EventContentExpired   = "content.expired"
	EventContentFinalized = "content.finalized"
)
