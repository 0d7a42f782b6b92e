package documents

import (
	"context"
	"fmt"

	"stockd/internal/core/id"
	"stockd/internal/core/tx"
	"stockd/internal/domain"
)

// Service provides the document read surface. Creation and editing of
// drafts happen in a separate flow; approval goes through the approval
// engine.
//
// Reads run in read-only transactions so multi-query fetches (header plus
// lines, count plus page) see one snapshot.
type Service struct {
	repo   Repository
	readTx tx.ReadOnlyManager
}

// NewService creates a new document service.
func NewService(repo Repository, readTx tx.ReadOnlyManager) *Service {
	return &Service{repo: repo, readTx: readTx}
}

// GetByID retrieves a document with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*InventoryDocument, error) {
	var doc *InventoryDocument
	err := s.readTx.ReadOnly(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, docID)
		if err != nil {
			return err
		}

		lines, err := s.repo.GetLines(ctx, docID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		d.Lines = lines

		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetByNumber retrieves a document by its unique number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*InventoryDocument, error) {
	var doc *InventoryDocument
	err := s.readTx.ReadOnly(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByNumber(ctx, number)
		if err != nil {
			return err
		}

		lines, err := s.repo.GetLines(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		d.Lines = lines

		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List retrieves documents with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*InventoryDocument], error) {
	var result domain.ListResult[*InventoryDocument]
	err := s.readTx.ReadOnly(ctx, func(ctx context.Context) error {
		r, err := s.repo.List(ctx, filter)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return domain.ListResult[*InventoryDocument]{}, err
	}
	return result, nil
}
