package usecase

import (
	"context"
	"time"

	"github.com/crowdvote/crowdvote"
	"github.com/crowdvote/crowdvote/internal/domain"
)

// ContentRepository defines persistence over content rows.
type ContentRepository interface {
	Create(ctx context.Context, item *domain.ContentItem) error
	GetByContentID(ctx context.Context, contentID int64) (domain.ContentItem, error)
	// Find applies the query's filter predicates at the given instant
	// and returns the requested page plus the total matching count.
	Find(ctx context.Context, q domain.ListQuery, now time.Time) ([]domain.ContentItem, int64, error)
	Deactivate(ctx context.Context, contentID int64) error
}

// CommitStore holds plaintext vote material between commit and reveal.
// Keys are (contentID, lowercase voter address); entries expire on
// their own after the ttl and an expired entry is indistinguishable
// from an absent one.
type CommitStore interface {
	Put(ctx context.Context, contentID int64, voter string, rec domain.CommitRecord, ttl time.Duration) error
	Peek(ctx context.Context, contentID int64, voter string) (domain.CommitRecord, error)
	Delete(ctx context.Context, contentID int64, voter string) error
}

// QueryCache is the read-through cache for list and detail responses.
type QueryCache interface {
	// Get unmarshals the cached value into dest and reports whether a
	// live entry existed.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, prefix string) error
}

// Ledger is the external chain that assigns content identity and
// settles votes.
type Ledger interface {
	SubmitContent(ctx context.Context, metadataHash string, duration time.Duration) (int64, string, error)
	RevealVote(ctx context.Context, contentID int64, vote crowdvote.VoteChoice, confidence uint8, salt string, voter string) (crowdvote.RevealReceipt, error)
	GetResults(ctx context.Context, contentID int64) (crowdvote.AggregateResult, error)
}

// BlobStore is the content-addressed store for files and metadata.
type BlobStore interface {
	Add(ctx context.Context, data []byte, name string) (string, error)
	AddJSON(ctx context.Context, v any) (string, error)
	Pin(ctx context.Context, hash string) error
	Get(ctx context.Context, hash string, dest any) error
}

// Signal broadcasts content lifecycle events to live subscribers.
type Signal interface {
	Publish(ctx context.Context, event crowdvote.Event) error
}
