package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/crowdvote/crowdvote"
	"github.com/crowdvote/crowdvote/internal/domain"
)

// fakeClock drives usecase time in tests.
type fakeClock struct {
	at time.Time
}

func (c *fakeClock) Now() time.Time          { return c.at }
func (c *fakeClock) Advance(d time.Duration) { c.at = c.at.Add(d) }

type storedCommit struct {
	rec       domain.CommitRecord
	expiresAt time.Time
}

// fakeCommitStore simulates TTL expiry against the fake clock: an
// entry past its deadline behaves exactly like an absent one.
type fakeCommitStore struct {
	clock   *fakeClock
	entries map[string]storedCommit
}

func newFakeCommitStore(clock *fakeClock) *fakeCommitStore {
	return &fakeCommitStore{clock: clock, entries: map[string]storedCommit{}}
}

func commitKey(contentID int64, voter string) string {
	return fmt.Sprintf("commit:%d:%s", contentID, strings.ToLower(voter))
}

func (s *fakeCommitStore) Put(ctx context.Context, contentID int64, voter string, rec domain.CommitRecord, ttl time.Duration) error {
	s.entries[commitKey(contentID, voter)] = storedCommit{rec: rec, expiresAt: s.clock.Now().Add(ttl)}
	return nil
}

func (s *fakeCommitStore) Peek(ctx context.Context, contentID int64, voter string) (domain.CommitRecord, error) {
	entry, ok := s.entries[commitKey(contentID, voter)]
	if !ok || !s.clock.Now().Before(entry.expiresAt) {
		return domain.CommitRecord{}, domain.NotFoundError{Resource: "commit record"}
	}
	return entry.rec, nil
}

func (s *fakeCommitStore) Delete(ctx context.Context, contentID int64, voter string) error {
	delete(s.entries, commitKey(contentID, voter))
	return nil
}

type mockLedger struct {
	nextContentID int64
	submitErr     error
	revealErr     error
	resultsErr    error
	results       crowdvote.AggregateResult
	submitted     []string
	reveals       []RevealVoteInput
}

func (m *mockLedger) SubmitContent(ctx context.Context, metadataHash string, duration time.Duration) (int64, string, error) {
	if m.submitErr != nil {
		return 0, "", m.submitErr
	}
	m.nextContentID++
	m.submitted = append(m.submitted, metadataHash)
	return m.nextContentID, fmt.Sprintf("0xtx%d", m.nextContentID), nil
}

func (m *mockLedger) RevealVote(ctx context.Context, contentID int64, vote crowdvote.VoteChoice, confidence uint8, salt string, voter string) (crowdvote.RevealReceipt, error) {
	if m.revealErr != nil {
		return crowdvote.RevealReceipt{}, m.revealErr
	}
	m.reveals = append(m.reveals, RevealVoteInput{
		ContentID: contentID, Vote: vote, Confidence: confidence, Salt: salt, Voter: voter,
	})
	return crowdvote.RevealReceipt{ContentID: contentID, TransactionHash: "0xreveal", BlockNumber: 1}, nil
}

func (m *mockLedger) GetResults(ctx context.Context, contentID int64) (crowdvote.AggregateResult, error) {
	if m.resultsErr != nil {
		return crowdvote.AggregateResult{}, m.resultsErr
	}
	return m.results, nil
}

// fakeCache stores marshaled values and records purges.
type fakeCache struct {
	values map[string][]byte
	purged []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = data
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	delete(c.values, key)
	return nil
}

func (c *fakeCache) DeleteByPattern(ctx context.Context, prefix string) error {
	c.purged = append(c.purged, prefix)
	for key := range c.values {
		if strings.HasPrefix(key, prefix) {
			delete(c.values, key)
		}
	}
	return nil
}

type mockContentRepo struct {
	items       map[int64]domain.ContentItem
	created     []int64
	deactivated []int64
}

func newMockContentRepo() *mockContentRepo {
	return &mockContentRepo{items: map[int64]domain.ContentItem{}}
}

func (r *mockContentRepo) Create(ctx context.Context, item *domain.ContentItem) error {
	r.items[item.ContentID] = *item
	r.created = append(r.created, item.ContentID)
	return nil
}

func (r *mockContentRepo) GetByContentID(ctx context.Context, contentID int64) (domain.ContentItem, error) {
	item, ok := r.items[contentID]
	if !ok {
		return domain.ContentItem{}, domain.NotFoundError{Resource: "content"}
	}
	return item, nil
}

func (r *mockContentRepo) Find(ctx context.Context, q domain.ListQuery, now time.Time) ([]domain.ContentItem, int64, error) {
	var out []domain.ContentItem
	for _, item := range r.items {
		if q.Status != "" {
			status, err := domain.ParseStatus(q.Status)
			if err != nil {
				return nil, 0, err
			}
			if item.StatusAt(now) != status {
				continue
			}
		}
		out = append(out, item)
	}
	return out, int64(len(out)), nil
}

func (r *mockContentRepo) Deactivate(ctx context.Context, contentID int64) error {
	item, ok := r.items[contentID]
	if !ok {
		return domain.NotFoundError{Resource: "content"}
	}
	item.IsActive = false
	r.items[contentID] = item
	r.deactivated = append(r.deactivated, contentID)
	return nil
}

type mockBlobStore struct {
	addErr   error
	getErr   error
	pinned   []string
	metadata map[string]any
}

func (m *mockBlobStore) Add(ctx context.Context, data []byte, name string) (string, error) {
	if m.addErr != nil {
		return "", m.addErr
	}
	return "Qmfile", nil
}

func (m *mockBlobStore) AddJSON(ctx context.Context, v any) (string, error) {
	if m.addErr != nil {
		return "", m.addErr
	}
	return "Qmmeta", nil
}

func (m *mockBlobStore) Pin(ctx context.Context, hash string) error {
	m.pinned = append(m.pinned, hash)
	return nil
}

func (m *mockBlobStore) Get(ctx context.Context, hash string, dest any) error {
	if m.getErr != nil {
		return m.getErr
	}
	data, _ := json.Marshal(m.metadata)
	return json.Unmarshal(data, dest)
}

type mockSignal struct {
	events []crowdvote.Event
}

func (m *mockSignal) Publish(ctx context.Context, event crowdvote.Event) error {
	m.events = append(m.events, event)
	return nil
}
