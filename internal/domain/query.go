package domain

import (
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListQuery carries the filter, sort and pagination parameters of a
// content list request. Status/Creator/ContentType left empty mean
// "no filter".
type ListQuery struct {
	Page        int
	Limit       int
	SortBy      string
	SortOrder   string
	Status      string
	Creator     string
	ContentType string
	Tags        []string
}

// sortFields is the set of sortable fields. Anything else falls back
// to submission time.
var sortFields = map[string]struct{}{
	"submissionTime":  {},
	"votingStartTime": {},
	"votingEndTime":   {},
	"upvotes":         {},
	"downvotes":       {},
	"voteCount":       {},
	"totalUSDValue":   {},
}

// Normalize fills defaults and canonicalizes the filter fields so that
// equivalent queries compare (and cache) identically: creator is
// lowercased, tags are sorted and deduplicated, unsortable SortBy
// values collapse to the default.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if _, ok := sortFields[q.SortBy]; !ok {
		q.SortBy = "submissionTime"
	}
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
	q.Creator = strings.ToLower(q.Creator)

	if len(q.Tags) > 0 {
		seen := make(map[string]struct{}, len(q.Tags))
		tags := make([]string, 0, len(q.Tags))
		for _, tag := range q.Tags {
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		q.Tags = tags
	}
	return q
}

// CacheKey is a deterministic key for the normalized query. Absent
// filters serialize as "all" so omission and an explicit "all" collide
// on the same entry. The canonical string is digested with xxh3 to
// keep keys short and order-stable.
func (q ListQuery) CacheKey() string {
	q = q.Normalize()

	orAll := func(s string) string {
		if s == "" {
			return "all"
		}
		return s
	}
	tags := "all"
	if len(q.Tags) > 0 {
		tags = strings.Join(q.Tags, ",")
	}

	canonical := strings.Join([]string{
		strconv.Itoa(q.Page),
		strconv.Itoa(q.Limit),
		q.SortBy,
		q.SortOrder,
		orAll(q.Status),
		orAll(q.Creator),
		orAll(q.ContentType),
		tags,
	}, ":")

	return ListCachePrefix + strconv.FormatUint(xxh3.HashString(canonical), 16)
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination computes the page bookkeeping for a total row count.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// ContentPage is one cached page of list results.
type ContentPage struct {
	Results    []ContentView `json:"results"`
	Pagination Pagination    `json:"pagination"`
}
