package documents

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockd/internal/core/apperror"
	"stockd/internal/core/id"
	"stockd/internal/core/types"
	"stockd/internal/domain"
)

type stubRepo struct {
	Repository

	docs  map[id.ID]*InventoryDocument
	lines map[id.ID][]Line

	// callsInTx counts repository calls that arrived inside a read
	// transaction, as marked by the recording manager.
	callsInTx int
}

func (r *stubRepo) record(ctx context.Context) {
	if inReadTx(ctx) {
		r.callsInTx++
	}
}

func (r *stubRepo) GetByID(ctx context.Context, docID id.ID) (*InventoryDocument, error) {
	r.record(ctx)
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("document", docID.String())
	}
	d := *doc
	return &d, nil
}

func (r *stubRepo) GetByNumber(ctx context.Context, number string) (*InventoryDocument, error) {
	r.record(ctx)
	for _, doc := range r.docs {
		if doc.Number == number {
			d := *doc
			return &d, nil
		}
	}
	return nil, apperror.NewNotFound("document", number)
}

func (r *stubRepo) GetLines(ctx context.Context, docID id.ID) ([]Line, error) {
	r.record(ctx)
	return append([]Line(nil), r.lines[docID]...), nil
}

func (r *stubRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*InventoryDocument], error) {
	r.record(ctx)
	var result domain.ListResult[*InventoryDocument]
	for _, doc := range r.docs {
		d := *doc
		result.Items = append(result.Items, &d)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

type readTxKey struct{}

func inReadTx(ctx context.Context) bool {
	v, _ := ctx.Value(readTxKey{}).(bool)
	return v
}

// recordingReadTx marks the context so the stub repository can tell
// whether a call ran inside the read transaction.
type recordingReadTx struct {
	runs int
}

func (m *recordingReadTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.runs++
	return fn(context.WithValue(ctx, readTxKey{}, true))
}

func (m *recordingReadTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}

func newServiceFixture() (*Service, *stubRepo, *recordingReadTx) {
	repo := &stubRepo{
		docs:  make(map[id.ID]*InventoryDocument),
		lines: make(map[id.ID][]Line),
	}
	readTx := &recordingReadTx{}
	return NewService(repo, readTx), repo, readTx
}

func seedServiceDoc(repo *stubRepo) *InventoryDocument {
	doc := NewInventoryDocument(TypeReceipt, id.New())
	doc.Number = "RCPT-001"
	doc.AddLine(id.New(), types.NewQuantityFromFloat64(5), "pc", decimal.NewFromInt(1), "main")
	repo.docs[doc.ID] = doc
	repo.lines[doc.ID] = append([]Line(nil), doc.Lines...)
	return doc
}

func TestServiceGetByID_ReadsHeaderAndLinesInOneTransaction(t *testing.T) {
	svc, repo, readTx := newServiceFixture()
	seeded := seedServiceDoc(repo)

	doc, err := svc.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)

	assert.Equal(t, seeded.Number, doc.Number)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, 1, readTx.runs)
	assert.Equal(t, 2, repo.callsInTx, "header and line reads both under the read transaction")
}

func TestServiceGetByNumber_ReadsInOneTransaction(t *testing.T) {
	svc, repo, readTx := newServiceFixture()
	seeded := seedServiceDoc(repo)

	doc, err := svc.GetByNumber(context.Background(), seeded.Number)
	require.NoError(t, err)

	assert.Equal(t, seeded.ID, doc.ID)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, 1, readTx.runs)
	assert.Equal(t, 2, repo.callsInTx)
}

func TestServiceList_RunsInReadTransaction(t *testing.T) {
	svc, repo, readTx := newServiceFixture()
	seedServiceDoc(repo)

	result, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)

	assert.EqualValues(t, 1, result.TotalCount)
	assert.Equal(t, 1, readTx.runs)
	assert.Equal(t, 1, repo.callsInTx)
}

func TestServiceGetByID_NotFoundPropagates(t *testing.T) {
	svc, _, _ := newServiceFixture()

	_, err := svc.GetByID(context.Background(), id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
