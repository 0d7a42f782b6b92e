package direction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockd/internal/core/apperror"
)

type fakeRepo struct {
	types map[string]*MovementType
	err   error
}

func (f *fakeRepo) GetByCode(ctx context.Context, code string) (*MovementType, error) {
	if f.err != nil {
		return nil, f.err
	}
	mt, ok := f.types[code]
	if !ok {
		return nil, apperror.NewNotFound("movement type", code)
	}
	return mt, nil
}

func newFakeRepo(types ...*MovementType) *fakeRepo {
	repo := &fakeRepo{types: make(map[string]*MovementType)}
	for _, mt := range types {
		repo.types[mt.Code] = mt
	}
	return repo
}

func TestResolve_LineCodeWins(t *testing.T) {
	repo := newFakeRepo(
		NewMovementType("WRITE_OFF", "Write-off", Out),
		NewMovementType("RETURN", "Customer return", In),
	)
	resolver := NewResolver(repo)

	dir, err := resolver.Resolve(context.Background(), "WRITE_OFF", "RETURN", In)
	require.NoError(t, err)
	assert.Equal(t, Out, dir)
}

func TestResolve_HeaderCodeWhenLineAbsent(t *testing.T) {
	repo := newFakeRepo(NewMovementType("RETURN", "Customer return", In))
	resolver := NewResolver(repo)

	dir, err := resolver.Resolve(context.Background(), "", "RETURN", Out)
	require.NoError(t, err)
	assert.Equal(t, In, dir)
}

func TestResolve_DefaultWhenNoCodes(t *testing.T) {
	resolver := NewResolver(newFakeRepo())

	dir, err := resolver.Resolve(context.Background(), "", "", Out)
	require.NoError(t, err)
	assert.Equal(t, Out, dir)
}

func TestResolve_UnknownCodeFallsThrough(t *testing.T) {
	repo := newFakeRepo(NewMovementType("RETURN", "Customer return", In))
	resolver := NewResolver(repo)

	// Unknown line code falls to the header code.
	dir, err := resolver.Resolve(context.Background(), "GONE", "RETURN", Out)
	require.NoError(t, err)
	assert.Equal(t, In, dir)

	// Both unknown falls to the default.
	dir, err = resolver.Resolve(context.Background(), "GONE", "ALSO_GONE", Out)
	require.NoError(t, err)
	assert.Equal(t, Out, dir)
}

func TestResolve_CorruptRowTreatedAsUnknown(t *testing.T) {
	corrupt := NewMovementType("BROKEN", "Broken entry", Direction("sideways"))
	resolver := NewResolver(newFakeRepo(corrupt))

	dir, err := resolver.Resolve(context.Background(), "BROKEN", "", In)
	require.NoError(t, err)
	assert.Equal(t, In, dir)
}

func TestResolve_RepositoryErrorPropagates(t *testing.T) {
	resolver := NewResolver(&fakeRepo{err: errors.New("connection lost")})

	_, err := resolver.Resolve(context.Background(), "ANY", "", In)
	assert.Error(t, err)
}

func TestResolve_InvalidDefaultErrors(t *testing.T) {
	resolver := NewResolver(newFakeRepo())

	_, err := resolver.Resolve(context.Background(), "", "", Direction(""))
	assert.Error(t, err)
}
