package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"

	"github.com/crowdvote/crowdvote/internal/domain"
)

// CommitStore keeps plaintext vote material in memcached. The store's
// contract maps directly onto memcached's: per-item TTL, get/set/
// delete, no scans, lazy eviction where an expired entry reads as a
// miss.
type CommitStore struct {
	mc *memcache.Client
}

func NewCommitStore(mc *memcache.Client) *CommitStore {
	return &CommitStore{mc: mc}
}

// commitKey lowercases the voter so case variation can never split
// one voter's record into two.
func commitKey(contentID int64, voter string) string {
	return fmt.Sprintf("commit:%d:%s", contentID, strings.ToLower(voter))
}

// Put stores the record, overwriting any prior unexpired record for
// the same key.
func (s *CommitStore) Put(ctx context.Context, contentID int64, voter string, rec domain.CommitRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	err = s.mc.Set(&memcache.Item{
		Key:        commitKey(contentID, voter),
		Value:      data,
		Expiration: int32(ttl.Seconds()),
	})
	if err != nil {
		return errors.Wrap(err, "commit store write failed")
	}
	return nil
}

func (s *CommitStore) Peek(ctx context.Context, contentID int64, voter string) (domain.CommitRecord, error) {
	item, err := s.mc.Get(commitKey(contentID, voter))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return domain.CommitRecord{}, domain.NotFoundError{Resource: "commit record"}
		}
		return domain.CommitRecord{}, errors.Wrap(err, "commit store read failed")
	}

	var rec domain.CommitRecord
	if err := json.Unmarshal(item.Value, &rec); err != nil {
		return domain.CommitRecord{}, errors.Wrap(err, "commit record corrupted")
	}
	return rec, nil
}

func (s *CommitStore) Delete(ctx context.Context, contentID int64, voter string) error {
	err := s.mc.Delete(commitKey(contentID, voter))
	if err != nil && err != memcache.ErrCacheMiss {
		return errors.Wrap(err, "commit store delete failed")
	}
	return nil
}
