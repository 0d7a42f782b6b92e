package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockd/internal/core/id"
	"stockd/pkg/logger"
)

// Service writes audit entries.
//
// Stock movement entries are strictly co-transactional with the balance
// mutation they describe. Activity entries are best-effort: they run after
// commit and a failure is logged, never propagated to the caller.
type Service struct {
	repo Repository
}

// NewService creates a new audit service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordMovement appends one stock movement entry inside the caller's
// transaction. A failure here aborts the approval.
func (s *Service) RecordMovement(ctx context.Context, entry StockMovement) error {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.AppendStockMovement(ctx, entry); err != nil {
		return fmt.Errorf("append stock movement: %w", err)
	}
	return nil
}

// RecordActivity appends one activity entry, best-effort.
func (s *Service) RecordActivity(ctx context.Context, actor string, action Action, documentID id.ID, documentNumber, description string, changes map[string]any) {
	entry := Activity{
		ID:             id.New(),
		Actor:          actor,
		Action:         action,
		DocumentID:     documentID,
		DocumentNumber: documentNumber,
		Description:    description,
		CreatedAt:      time.Now().UTC(),
	}

	if len(changes) > 0 {
		payload, err := json.Marshal(changes)
		if err != nil {
			logger.Warn(ctx, "marshal activity changes failed", "error", err)
		} else {
			entry.Changes = payload
		}
	}

	if err := s.repo.AppendActivity(ctx, entry); err != nil {
		logger.Error(ctx, "append activity entry failed",
			"document_id", documentID,
			"action", action,
			"error", err,
		)
	}
}

// MovementsByDocument returns the movement trail for one document.
func (s *Service) MovementsByDocument(ctx context.Context, documentID id.ID) ([]StockMovement, error) {
	return s.repo.ListMovementsByDocument(ctx, documentID)
}

// ActivityByDocument returns the activity trail for one document.
func (s *Service) ActivityByDocument(ctx context.Context, documentID id.ID) ([]Activity, error) {
	return s.repo.ListActivityByDocument(ctx, documentID)
}
