package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/crowdvote/crowdvote/internal/domain"
	"github.com/crowdvote/crowdvote/internal/infra/database/models"
)

type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// sortColumns whitelists the sortable fields; anything else falls back
// to submission time.
var sortColumns = map[string]string{
	"submissionTime":  "submission_time",
	"votingStartTime": "voting_start_time",
	"votingEndTime":   "voting_end_time",
	"upvotes":         "upvotes",
	"downvotes":       "downvotes",
	"voteCount":       "vote_count",
	"totalUSDValue":   "total_usd_value",
}

func (r *ContentRepository) Create(ctx context.Context, item *domain.ContentItem) error {
	row, err := fromDomain(*item)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *ContentRepository) GetByContentID(ctx context.Context, contentID int64) (domain.ContentItem, error) {
	var row models.Content
	err := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ContentItem{}, domain.NotFoundError{Resource: "content"}
		}
		return domain.ContentItem{}, err
	}
	return toDomain(row)
}

// applyFilters translates the query's status filter into concrete
// predicates over the stored flags and timestamps.
func applyFilters(tx *gorm.DB, q domain.ListQuery, now time.Time) (*gorm.DB, error) {
	if q.Status != "" {
		status, err := domain.ParseStatus(q.Status)
		if err != nil {
			return nil, err
		}
		switch status {
		case domain.StatusPending:
			tx = tx.Where("is_active = ? AND voting_start_time > ?", true, now)
		case domain.StatusLive:
			tx = tx.Where("is_active = ? AND voting_start_time <= ? AND voting_end_time > ?", true, now, now)
		case domain.StatusExpired:
			tx = tx.Where("is_active = ? AND voting_end_time <= ? AND is_finalized = ?", true, now, false)
		case domain.StatusFinalized:
			tx = tx.Where("is_finalized = ?", true)
		case domain.StatusInactive:
			tx = tx.Where("is_active = ? AND is_finalized = ?", false, false)
		}
	}

	if q.Creator != "" {
		tx = tx.Where("creator = ?", q.Creator)
	}
	if q.ContentType != "" {
		tx = tx.Where("content_type = ?", q.ContentType)
	}
	if len(q.Tags) > 0 {
		// jsonb_exists_any wants a text[]; a Go slice placeholder
		// would render as a parenthesized value list instead, so the
		// array literal is built by hand and cast.
		tx = tx.Where("jsonb_exists_any(tags, ?::text[])", tagArray(q.Tags))
	}

	return tx, nil
}

// tagArray renders tags as a Postgres array literal.
func tagArray(tags []string) string {
	elems := make([]string, 0, len(tags))
	for _, tag := range tags {
		escaped := strings.ReplaceAll(strings.ReplaceAll(tag, `\`, `\\`), `"`, `\"`)
		elems = append(elems, `"`+escaped+`"`)
	}
	return "{" + strings.Join(elems, ",") + "}"
}

// Find applies the query's filters and pages the results.
func (r *ContentRepository) Find(ctx context.Context, q domain.ListQuery, now time.Time) ([]domain.ContentItem, int64, error) {
	q = q.Normalize()

	tx, err := applyFilters(r.db.WithContext(ctx).Model(&models.Content{}), q, now)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = "submission_time"
	}
	direction := "DESC"
	if q.SortOrder == "asc" {
		direction = "ASC"
	}

	var rows []models.Content
	err = tx.Order(column + " " + direction).
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	items := make([]domain.ContentItem, 0, len(rows))
	for _, row := range rows {
		item, err := toDomain(row)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, nil
}

func (r *ContentRepository) Deactivate(ctx context.Context, contentID int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("content_id = ?", contentID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "content"}
	}
	return nil
}

func fromDomain(item domain.ContentItem) (models.Content, error) {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	serialized, err := json.Marshal(tags)
	if err != nil {
		return models.Content{}, err
	}
	return models.Content{
		ContentID:       item.ContentID,
		IpfsHash:        item.IpfsHash,
		Title:           item.Title,
		Description:     item.Description,
		ContentType:     item.ContentType,
		Creator:         item.Creator,
		Tags:            string(serialized),
		SubmissionTime:  item.SubmissionTime,
		VotingStartTime: item.VotingStartTime,
		VotingEndTime:   item.VotingEndTime,
		IsActive:        item.IsActive,
		IsFinalized:     item.IsFinalized,
		Upvotes:         item.Upvotes,
		Downvotes:       item.Downvotes,
		VoteCount:       item.VoteCount,
		TotalUSDValue:   item.TotalUSDValue,
		TransactionHash: item.TransactionHash,
		ContentURL:      item.ContentURL,
		ThumbnailURL:    item.ThumbnailURL,
	}, nil
}

func toDomain(row models.Content) (domain.ContentItem, error) {
	var tags []string
	if row.Tags != "" {
		if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
			return domain.ContentItem{}, err
		}
	}
	return domain.ContentItem{
		ContentID:       row.ContentID,
		IpfsHash:        row.IpfsHash,
		Title:           row.Title,
		Description:     row.Description,
		ContentType:     row.ContentType,
		Creator:         row.Creator,
		Tags:            tags,
		SubmissionTime:  row.SubmissionTime,
		VotingStartTime: row.VotingStartTime,
		VotingEndTime:   row.VotingEndTime,
		IsActive:        row.IsActive,
		IsFinalized:     row.IsFinalized,
		Upvotes:         row.Upvotes,
		Downvotes:       row.Downvotes,
		VoteCount:       row.VoteCount,
		TotalUSDValue:   row.TotalUSDValue,
		TransactionHash: row.TransactionHash,
		ContentURL:      row.ContentURL,
		ThumbnailURL:    row.ThumbnailURL,
	}, nil
}
