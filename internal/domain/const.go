package domain

import (
	"fmt"
	"time"
)

const (
	// Voting window bounds enforced at content creation. These mirror
	// the limits the voting contract enforces on-chain.
	MinVotingPeriod = 60 * time.Second
	MaxVotingPeriod = 7 * 24 * time.Hour

	// CommitRetention bounds how long plaintext vote material is kept
	// for reveal; an unrevealed commit becomes unresolvable after this.
	CommitRetention = 7 * 24 * time.Hour

	ListCacheTTL   = 300 * time.Second
	DetailCacheTTL = 300 * time.Second

	// ListCachePrefix is the key family purged on any content mutation.
	ListCachePrefix = "content:list:"
)

func DetailCacheKey(contentID int64) string {
	return fmt.Sprintf("content:%d:data", contentID)
}
