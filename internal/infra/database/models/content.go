package models

import (
	"time"
)

// Content is the persisted row of a content item. Lifecycle status is
// never a column: it is derived from the timestamps and flags on read.
type Content struct {
	ID              int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	ContentID       int64     `json:"contentId" gorm:"uniqueIndex;not null"`
	IpfsHash        string    `json:"ipfsHash" gorm:"type:text;not null"`
	Title           string    `json:"title" gorm:"type:text"`
	Description     string    `json:"description" gorm:"type:text"`
	ContentType     string    `json:"contentType" gorm:"type:text;index"`
	Creator         string    `json:"creator" gorm:"type:text;index"`
	Tags            string    `json:"tags" gorm:"type:jsonb;not null;default:'[]'"`
	SubmissionTime  time.Time `json:"submissionTime" gorm:"type:timestamp with time zone;not null"`
	VotingStartTime time.Time `json:"votingStartTime" gorm:"type:timestamp with time zone;not null;index"`
	VotingEndTime   time.Time `json:"votingEndTime" gorm:"type:timestamp with time zone;not null;index"`
	IsActive        bool      `json:"isActive" gorm:"type:boolean;not null;default:true;index"`
	IsFinalized     bool      `json:"isFinalized" gorm:"type:boolean;not null;default:false;index"`
	Upvotes         int64     `json:"upvotes" gorm:"not null;default:0"`
	Downvotes       int64     `json:"downvotes" gorm:"not null;default:0"`
	VoteCount       int64     `json:"voteCount" gorm:"not null;default:0"`
	TotalUSDValue   float64   `json:"totalUSDValue" gorm:"not null;default:0"`
	TransactionHash string    `json:"transactionHash" gorm:"type:text"`
	ContentURL      string    `json:"contentUrl" gorm:"type:text"`
	ThumbnailURL    string    `json:"thumbnailUrl" gorm:"type:text"`
	CDate           time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
