// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_clipstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Clip row status constants.
const (
	StatusReceived  = "received"  // clip written to disk, not yet forwarded upstream
	StatusForwarded = "forwarded" // orchestration API accepted the answer
	StatusFailed    = "failed"    // upstream rejected or was unreachable
)

// InterviewClip records one uploaded answer as it passes through the proxy.
// The row outlives the request so a failed upstream forward can be retried
// and audited; it is only transitioned through statuses, never deleted
// during the interview.
type InterviewClip struct {
	Id            uint64    `json:"id" gorm:"type:bigint;primaryKey;autoIncrement;<-:create"`
	ClipID        string    `json:"clipId" gorm:"column:clip_id;type:varchar(36);not null;uniqueIndex"`
	Status        string    `json:"status" gorm:"column:status;type:varchar(20);not null;default:received"`
	InterviewID   string    `json:"interviewId" gorm:"column:interview_id;type:varchar(36);not null;index"`
	CandidateID   string    `json:"candidateId" gorm:"column:candidate_id;type:varchar(36);not null"`
	QuestionOrder int       `json:"questionOrder" gorm:"column:question_order;type:int;not null"`
	Filename      string    `json:"filename" gorm:"column:filename;type:varchar(255);not null"`
	SizeBytes     int64     `json:"sizeBytes" gorm:"column:size_bytes;type:bigint;not null"`
	MimeType      string    `json:"mimeType" gorm:"column:mime_type;type:varchar(100);not null;default:''"`
	CreatedDate   time.Time `json:"createdDate" gorm:"type:timestamp;not null;default:NOW();<-:create"`
	UpdatedDate   time.Time `json:"updatedDate" gorm:"type:timestamp;default:null"`
}

func (InterviewClip) TableName() string {
	return "interview_clips"
}

func (c *InterviewClip) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ClipID == "" {
		c.ClipID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = StatusReceived
	}
	if c.CreatedDate.IsZero() {
		c.CreatedDate = time.Now()
	}
	return nil
}

// IsForwarded returns true once the upstream accepted the answer.
func (c *InterviewClip) IsForwarded() bool {
	return c.Status == StatusForwarded
}
