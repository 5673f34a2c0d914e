// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_clipstore

import (
	"context"
	"fmt"
	"time"

	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/connectors"
)

// Store provides operations to save and transition interview clip records.
type Store interface {
	// Migrate creates or updates the interview_clips table. Must run once
	// before any other operation; on a fresh database nothing else works.
	Migrate(ctx context.Context) error

	// Save stores a clip record with a generated clipId (UUID).
	// Returns the generated clipId.
	Save(ctx context.Context, clip *InterviewClip) (string, error)

	// Get retrieves a clip record by clipId regardless of status.
	Get(ctx context.Context, clipID string) (*InterviewClip, error)

	// ListByInterview returns every clip received for an interview, oldest
	// first.
	ListByInterview(ctx context.Context, interviewID string) ([]InterviewClip, error)

	// MarkForwarded atomically transitions a clip from "received" to
	// "forwarded". Fails when the clip is unknown or already past
	// "received" — forwarding happens exactly once per row.
	MarkForwarded(ctx context.Context, clipID string) error

	// MarkFailed records that the upstream rejected or never saw the clip.
	MarkFailed(ctx context.Context, clipID string) error
}

type postgresStore struct {
	postgres connectors.PostgresConnector
	logger   commons.Logger
}

// NewStore creates a clip store backed by Postgres.
func NewStore(postgres connectors.PostgresConnector, logger commons.Logger) Store {
	return &postgresStore{
		postgres: postgres,
		logger:   logger,
	}
}

func (s *postgresStore) Migrate(ctx context.Context) error {
	if err := s.postgres.DB(ctx).AutoMigrate(&InterviewClip{}); err != nil {
		return fmt.Errorf("failed to migrate interview_clips schema: %w", err)
	}
	s.logger.Info("interview_clips schema up to date")
	return nil
}

func (s *postgresStore) Save(ctx context.Context, clip *InterviewClip) (string, error) {
	db := s.postgres.DB(ctx)
	if err := db.Create(clip).Error; err != nil {
		return "", fmt.Errorf("failed to save clip for interview %s: %w", clip.InterviewID, err)
	}

	s.logger.Infof("saved clip record: clipId=%s interview=%s question=%d bytes=%d",
		clip.ClipID, clip.InterviewID, clip.QuestionOrder, clip.SizeBytes)
	return clip.ClipID, nil
}

func (s *postgresStore) Get(ctx context.Context, clipID string) (*InterviewClip, error) {
	db := s.postgres.DB(ctx)
	var clip InterviewClip
	if err := db.Where("clip_id = ?", clipID).First(&clip).Error; err != nil {
		return nil, fmt.Errorf("clip not found: %s: %w", clipID, err)
	}
	return &clip, nil
}

func (s *postgresStore) ListByInterview(ctx context.Context, interviewID string) ([]InterviewClip, error) {
	db := s.postgres.DB(ctx)
	var clips []InterviewClip
	if err := db.Where("interview_id = ?", interviewID).
		Order("created_date asc").
		Find(&clips).Error; err != nil {
		return nil, fmt.Errorf("failed to list clips for interview %s: %w", interviewID, err)
	}
	return clips, nil
}

// MarkForwarded uses an atomic UPDATE ... WHERE status = 'received' so only
// one concurrent forwarder can win the transition.
func (s *postgresStore) MarkForwarded(ctx context.Context, clipID string) error {
	db := s.postgres.DB(ctx)
	result := db.Model(&InterviewClip{}).
		Where("clip_id = ? AND status = ?", clipID, StatusReceived).
		Updates(map[string]interface{}{
			"status":       StatusForwarded,
			"updated_date": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark clip %s forwarded: %w", clipID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("clip %s not found or already transitioned", clipID)
	}

	s.logger.Debugf("clip forwarded: clipId=%s", clipID)
	return nil
}

func (s *postgresStore) MarkFailed(ctx context.Context, clipID string) error {
	db := s.postgres.DB(ctx)
	result := db.Model(&InterviewClip{}).
		Where("clip_id = ?", clipID).
		Updates(map[string]interface{}{
			"status":       StatusFailed,
			"updated_date": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark clip %s failed: %w", clipID, result.Error)
	}

	s.logger.Debugf("clip marked failed: clipId=%s", clipID)
	return nil
}
