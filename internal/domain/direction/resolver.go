package direction

import (
	"context"
	"fmt"

	"stockd/internal/core/apperror"
)

// Reference caches the movement type table for lookups inside an approval
// transaction. Reads go through the repository once per code.
//
// Resolver precedence, most specific first:
//  1. line-level movement type code
//  2. header-level movement type code
//  3. the document type's default direction
//
// A present-but-unknown code falls through to the next source instead of
// erroring. This leniency is deliberate: stale reference data should not
// make an otherwise well-formed document unapprovable, which is a different
// situation from a malformed document.
type Resolver struct {
	repo Repository
}

// NewResolver creates a resolver over the movement type reference table.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve determines the direction for one document line.
// lineCode and headerCode may be empty (absent).
func (r *Resolver) Resolve(ctx context.Context, lineCode, headerCode string, defaultDir Direction) (Direction, error) {
	for _, code := range []string{lineCode, headerCode} {
		if code == "" {
			continue
		}
		dir, found, err := r.lookup(ctx, code)
		if err != nil {
			return "", err
		}
		if found {
			return dir, nil
		}
	}

	if !defaultDir.IsValid() {
		return "", apperror.NewValidation("document type has no default direction")
	}
	return defaultDir, nil
}

// lookup consults the reference table; unknown codes report found=false.
func (r *Resolver) lookup(ctx context.Context, code string) (Direction, bool, error) {
	mt, err := r.repo.GetByCode(ctx, code)
	if err != nil {
		if apperror.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup movement type %q: %w", code, err)
	}
	if !mt.Direction.IsValid() {
		// Treat a corrupt reference row the same as an unknown code.
		return "", false, nil
	}
	return mt.Direction, true, nil
}
