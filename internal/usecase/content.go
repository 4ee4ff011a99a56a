package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/crowdvote/crowdvote"
	"github.com/crowdvote/crowdvote/internal/domain"
)

var tracer = otel.Tracer("usecase")

type ContentUsecase struct {
	repo   ContentRepository
	cache  QueryCache
	blobs  BlobStore
	ledger Ledger
	signal Signal
	now    func() time.Time
}

func NewContentUsecase(
	repo ContentRepository,
	cache QueryCache,
	blobs BlobStore,
	ledger Ledger,
	signal Signal,
) *ContentUsecase {
	return &ContentUsecase{
		repo:   repo,
		cache:  cache,
		blobs:  blobs,
		ledger: ledger,
		signal: signal,
		now:    time.Now,
	}
}

// CreateContentInput is the validated input for a content submission.
type CreateContentInput struct {
	Title           string
	Description     string
	ContentType     string
	Creator         string
	Tags            []string
	Category        string
	Language        string
	VotingStartTime time.Time
	VotingEndTime   time.Time
	File            []byte
	FileName        string
}

// Create submits content for voting. The flow is all-or-nothing up
// through the ledger call: nothing is persisted locally unless the
// ledger assigned an identity.
func (uc *ContentUsecase) Create(ctx context.Context, input CreateContentInput) (domain.ContentItem, error) {
	ctx, span := tracer.Start(ctx, "Content.Usecase.Create")
	defer span.End()

	now := uc.now()

	creator, err := crowdvote.NormalizeAddress(input.Creator)
	if err != nil {
		return domain.ContentItem{}, domain.ValidationError{Reason: err.Error()}
	}

	start := input.VotingStartTime
	if start.IsZero() {
		start = now
	}
	end := input.VotingEndTime
	if end.IsZero() {
		end = start.Add(domain.MinVotingPeriod)
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = "text"
	}

	item := domain.ContentItem{
		Title:           input.Title,
		Description:     input.Description,
		ContentType:     contentType,
		Creator:         creator,
		Tags:            input.Tags,
		SubmissionTime:  now,
		VotingStartTime: start,
		VotingEndTime:   end,
		IsActive:        true,
	}

	if err := item.ValidateVotingWindow(); err != nil {
		span.RecordError(err)
		return domain.ContentItem{}, err
	}

	var fileHash string
	if len(input.File) > 0 {
		fileHash, err = uc.blobs.Add(ctx, input.File, input.FileName)
		if err != nil {
			span.RecordError(err)
			return domain.ContentItem{}, errors.Wrap(err, "file upload failed")
		}
	}

	metadata := map[string]any{
		"title":           item.Title,
		"description":     item.Description,
		"contentType":     item.ContentType,
		"fileHash":        fileHash,
		"creator":         creator,
		"tags":            item.Tags,
		"category":        input.Category,
		"language":        input.Language,
		"votingStartTime": start.Unix(),
		"votingEndTime":   end.Unix(),
		"timestamp":       now.Unix(),
	}

	metadataHash, err := uc.blobs.AddJSON(ctx, metadata)
	if err != nil {
		span.RecordError(err)
		return domain.ContentItem{}, errors.Wrap(err, "metadata upload failed")
	}

	if err := uc.blobs.Pin(ctx, metadataHash); err != nil {
		span.RecordError(err)
		return domain.ContentItem{}, errors.Wrap(err, "metadata pin failed")
	}
	if fileHash != "" {
		if err := uc.blobs.Pin(ctx, fileHash); err != nil {
			span.RecordError(err)
			return domain.ContentItem{}, errors.Wrap(err, "file pin failed")
		}
	}

	contentID, txHash, err := uc.ledger.SubmitContent(ctx, metadataHash, end.Sub(start))
	if err != nil {
		span.RecordError(err)
		return domain.ContentItem{}, errors.Wrap(err, "ledger submission failed")
	}

	item.ContentID = contentID
	item.IpfsHash = metadataHash
	item.TransactionHash = txHash
	if fileHash != "" {
		item.ContentURL = "ipfs://" + fileHash
		item.ThumbnailURL = "ipfs://" + fileHash
	}

	if err := uc.repo.Create(ctx, &item); err != nil {
		span.RecordError(err)
		return domain.ContentItem{}, errors.Wrap(err, "content persistence failed")
	}

	// Invalidate only after the row is durable, so a racing list read
	// cannot repopulate the cache from pre-write state.
	if err := uc.cache.DeleteByPattern(ctx, domain.ListCachePrefix); err != nil {
		span.RecordError(err)
	}

	if err := uc.signal.Publish(ctx, crowdvote.Event{
		Type:      crowdvote.EventContentCreated,
		ContentID: item.ContentID,
		Status:    item.StatusAt(now).String(),
		Timestamp: now,
	}); err != nil {
		span.RecordError(err)
	}

	return item, nil
}

// GetByID serves the composed detail view, read-through cached.
// Metadata and finalized-result enrichment degrade gracefully: their
// failure never fails the read.
func (uc *ContentUsecase) GetByID(ctx context.Context, contentID int64) (domain.ContentView, error) {
	ctx, span := tracer.Start(ctx, "Content.Usecase.GetByID")
	defer span.End()

	key := domain.DetailCacheKey(contentID)

	var cached domain.ContentView
	hit, err := uc.cache.Get(ctx, key, &cached)
	if err != nil {
		span.RecordError(err)
	} else if hit {
		return cached, nil
	}

	item, err := uc.repo.GetByContentID(ctx, contentID)
	if err != nil {
		return domain.ContentView{}, err
	}

	now := uc.now()
	view := domain.NewContentView(item, now)

	// The flag flip below is an optimization for listing predicates;
	// the view keeps the status derived from the pre-sync snapshot.
	if err := uc.syncStatus(ctx, item, now); err != nil {
		span.RecordError(err)
	}

	if item.IpfsHash != "" {
		if err := uc.blobs.Get(ctx, item.IpfsHash, &view.Metadata); err != nil {
			span.RecordError(errors.Wrapf(err, "metadata fetch degraded for content %d", contentID))
			view.Metadata = map[string]any{}
		}
	}

	if item.IsFinalized {
		results, err := uc.ledger.GetResults(ctx, contentID)
		if err != nil {
			span.RecordError(errors.Wrapf(err, "result fetch degraded for content %d", contentID))
		} else {
			view.Results = &results
		}
	}

	if err := uc.cache.Set(ctx, key, view, domain.DetailCacheTTL); err != nil {
		span.RecordError(err)
	}

	return view, nil
}

// List serves one filtered, paginated page, read-through cached under
// the query's deterministic key. A cache hit is returned verbatim;
// status staleness is bounded by the TTL.
func (uc *ContentUsecase) List(ctx context.Context, q domain.ListQuery) (domain.ContentPage, error) {
	ctx, span := tracer.Start(ctx, "Content.Usecase.List")
	defer span.End()

	q = q.Normalize()
	if q.Status != "" {
		if _, err := domain.ParseStatus(q.Status); err != nil {
			return domain.ContentPage{}, err
		}
	}

	key := q.CacheKey()

	var cached domain.ContentPage
	hit, err := uc.cache.Get(ctx, key, &cached)
	if err != nil {
		span.RecordError(err)
	} else if hit {
		return cached, nil
	}

	now := uc.now()
	items, total, err := uc.repo.Find(ctx, q, now)
	if err != nil {
		return domain.ContentPage{}, errors.Wrap(err, "content query failed")
	}

	views := make([]domain.ContentView, 0, len(items))
	for _, item := range items {
		views = append(views, domain.NewContentView(item, now))
	}

	page := domain.ContentPage{
		Results:    views,
		Pagination: domain.NewPagination(q.Page, q.Limit, total),
	}

	if err := uc.cache.Set(ctx, key, page, domain.ListCacheTTL); err != nil {
		span.RecordError(err)
	}

	return page, nil
}

// syncStatus persists the IsActive flip once a window is observed
// expired. This is an optimization for listing predicates: status
// derivation never depends on it having run.
func (uc *ContentUsecase) syncStatus(ctx context.Context, item domain.ContentItem, now time.Time) error {
	if item.StatusAt(now) != domain.StatusExpired {
		return nil
	}

	if err := uc.repo.Deactivate(ctx, item.ContentID); err != nil {
		return errors.Wrap(err, "status sync failed")
	}

	if err := uc.cache.DeleteByPattern(ctx, domain.ListCachePrefix); err != nil {
		return err
	}

	return uc.signal.Publish(ctx, crowdvote.Event{
		Type:      crowdvote.EventContentExpired,
		ContentID: item.ContentID,
		Status:    domain.StatusExpired.String(),
		Timestamp: now,
	})
}
