package domain

import (
	"github.com/crowdvote/crowdvote"
)

// CommitRecord is the plaintext vote material a voter needs again at
// reveal time. It exists only between commit and successful reveal (or
// retention expiry) and must never be served to anyone but its owner.
type CommitRecord struct {
	Vote            crowdvote.VoteChoice `json:"vote"`
	Confidence      uint8                `json:"confidence"`
	Salt            string               `json:"salt"`
	TokenType       crowdvote.TokenType  `json:"tokenType"`
	Commitment      string               `json:"commitment"`
	TransactionHash string               `json:"transactionHash,omitempty"`
}
