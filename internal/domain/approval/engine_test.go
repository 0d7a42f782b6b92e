package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockd/internal/core/apperror"
	"stockd/internal/core/entity"
	"stockd/internal/core/id"
	"stockd/internal/core/types"
	"stockd/internal/domain"
	"stockd/internal/domain/audit"
	"stockd/internal/domain/catalogs/product"
	"stockd/internal/domain/catalogs/warehouse"
	"stockd/internal/domain/direction"
	"stockd/internal/domain/documents"
	"stockd/internal/domain/ledger"
)

// state is a shared in-memory backing store for the fake repositories.
// The fake transaction manager snapshots and restores it to reproduce
// the all-or-nothing semantics of a database transaction.
type state struct {
	mu sync.Mutex

	docs       map[id.ID]documents.InventoryDocument
	lines      map[id.ID][]documents.Line
	stock      map[ledger.StockKey]ledger.StockBalance
	lots       map[ledger.LotKey]ledger.LotBalance
	movements  []audit.StockMovement
	activities []audit.Activity
	products   map[id.ID]*product.Product
	warehouses map[id.ID]*warehouse.Warehouse
	mtypes     map[string]*direction.MovementType
}

func newState() *state {
	return &state{
		docs:       make(map[id.ID]documents.InventoryDocument),
		lines:      make(map[id.ID][]documents.Line),
		stock:      make(map[ledger.StockKey]ledger.StockBalance),
		lots:       make(map[ledger.LotKey]ledger.LotBalance),
		products:   make(map[id.ID]*product.Product),
		warehouses: make(map[id.ID]*warehouse.Warehouse),
		mtypes:     make(map[string]*direction.MovementType),
	}
}

type snapshot struct {
	docs      map[id.ID]documents.InventoryDocument
	stock     map[ledger.StockKey]ledger.StockBalance
	lots      map[ledger.LotKey]ledger.LotBalance
	movements []audit.StockMovement
}

func (s *state) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		docs:      make(map[id.ID]documents.InventoryDocument, len(s.docs)),
		stock:     make(map[ledger.StockKey]ledger.StockBalance, len(s.stock)),
		lots:      make(map[ledger.LotKey]ledger.LotBalance, len(s.lots)),
		movements: append([]audit.StockMovement(nil), s.movements...),
	}
	for k, v := range s.docs {
		snap.docs[k] = v
	}
	for k, v := range s.stock {
		snap.stock[k] = v
	}
	for k, v := range s.lots {
		snap.lots[k] = v
	}
	return snap
}

func (s *state) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = snap.docs
	s.stock = snap.stock
	s.lots = snap.lots
	s.movements = snap.movements
}

// fakeTxManager serializes transactions with a mutex, standing in for the
// row lock, and rolls the store back when the unit fails.
type fakeTxManager struct {
	mu sync.Mutex
	s  *state
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.s.snapshot()
	if err := fn(ctx); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

// --- repository fakes ---

type fakeDocs struct{ s *state }

func (f *fakeDocs) Create(ctx context.Context, doc *documents.InventoryDocument) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.docs[doc.ID] = *doc
	f.s.lines[doc.ID] = append([]documents.Line(nil), doc.Lines...)
	return nil
}

func (f *fakeDocs) GetByID(ctx context.Context, docID id.ID) (*documents.InventoryDocument, error) {
	return f.GetForUpdate(ctx, docID)
}

func (f *fakeDocs) GetByNumber(ctx context.Context, number string) (*documents.InventoryDocument, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, doc := range f.s.docs {
		if doc.Number == number {
			d := doc
			return &d, nil
		}
	}
	return nil, apperror.NewNotFound("document", number)
}

func (f *fakeDocs) Update(ctx context.Context, doc *documents.InventoryDocument) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.docs[doc.ID]; !ok {
		return apperror.NewNotFound("document", doc.ID.String())
	}
	f.s.docs[doc.ID] = *doc
	return nil
}

func (f *fakeDocs) GetForUpdate(ctx context.Context, docID id.ID) (*documents.InventoryDocument, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	doc, ok := f.s.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("document", docID.String())
	}
	d := doc
	d.Lines = nil
	return &d, nil
}

func (f *fakeDocs) Exists(ctx context.Context, docID id.ID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	_, ok := f.s.docs[docID]
	return ok, nil
}

func (f *fakeDocs) GetLines(ctx context.Context, docID id.ID) ([]documents.Line, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return append([]documents.Line(nil), f.s.lines[docID]...), nil
}

func (f *fakeDocs) SaveLines(ctx context.Context, docID id.ID, lines []documents.Line) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.lines[docID] = append([]documents.Line(nil), lines...)
	return nil
}

func (f *fakeDocs) List(ctx context.Context, filter documents.ListFilter) (domain.ListResult[*documents.InventoryDocument], error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var result domain.ListResult[*documents.InventoryDocument]
	for _, doc := range f.s.docs {
		d := doc
		result.Items = append(result.Items, &d)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

type fakeStock struct{ s *state }

func (f *fakeStock) ApplyDelta(ctx context.Context, key ledger.StockKey, delta types.Quantity, inbound bool, at time.Time) (ledger.StockBalance, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b := f.s.stock[key]
	b.StockKey = key
	b.Quantity += delta
	if inbound {
		if b.FirstInAt == nil {
			t := at
			b.FirstInAt = &t
		}
		t := at
		b.LastInAt = &t
	} else {
		if b.FirstOutAt == nil {
			t := at
			b.FirstOutAt = &t
		}
		t := at
		b.LastOutAt = &t
	}
	b.UpdatedAt = at
	f.s.stock[key] = b
	return b, nil
}

func (f *fakeStock) GetBalance(ctx context.Context, key ledger.StockKey) (ledger.StockBalance, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b := f.s.stock[key]
	b.StockKey = key
	return b, nil
}

func (f *fakeStock) GetBalanceForUpdate(ctx context.Context, key ledger.StockKey) (ledger.StockBalance, error) {
	return f.GetBalance(ctx, key)
}

func (f *fakeStock) ConsumeFuture(ctx context.Context, key ledger.StockKey, inbound bool, qty types.Quantity) (ledger.StockBalance, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b := f.s.stock[key]
	b.StockKey = key
	if inbound {
		b.FutureIn -= qty
		if b.FutureIn < 0 {
			b.FutureIn = 0
		}
	} else {
		b.FutureOut -= qty
		if b.FutureOut < 0 {
			b.FutureOut = 0
		}
	}
	f.s.stock[key] = b
	return b, nil
}

type fakeLots struct{ s *state }

func (f *fakeLots) ApplyDelta(ctx context.Context, key ledger.LotKey, delta types.Quantity, at time.Time) (ledger.LotBalance, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	l := f.s.lots[key]
	l.LotKey = key
	l.Quantity += delta
	l.UpdatedAt = at
	f.s.lots[key] = l
	return l, nil
}

func (f *fakeLots) ListAvailableForUpdate(ctx context.Context, key ledger.StockKey) ([]ledger.LotBalance, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []ledger.LotBalance
	for _, l := range f.s.lots {
		if l.StockKey == key && l.Quantity.IsPositive() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLots) ListByStockKey(ctx context.Context, key ledger.StockKey) ([]ledger.LotBalance, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []ledger.LotBalance
	for _, l := range f.s.lots {
		if l.StockKey == key {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeAudit struct{ s *state }

func (f *fakeAudit) AppendActivity(ctx context.Context, entry audit.Activity) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.activities = append(f.s.activities, entry)
	return nil
}

func (f *fakeAudit) AppendStockMovement(ctx context.Context, entry audit.StockMovement) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.movements = append(f.s.movements, entry)
	return nil
}

func (f *fakeAudit) ListMovementsByDocument(ctx context.Context, documentID id.ID) ([]audit.StockMovement, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []audit.StockMovement
	for _, m := range f.s.movements {
		if m.DocumentID == documentID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeAudit) ListActivityByDocument(ctx context.Context, documentID id.ID) ([]audit.Activity, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []audit.Activity
	for _, a := range f.s.activities {
		if a.DocumentID == documentID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeProducts struct{ s *state }

func (f *fakeProducts) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return p, nil
}

func (f *fakeProducts) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, p := range f.s.products {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, apperror.NewNotFound("product", code)
}

type fakeWarehouses struct{ s *state }

func (f *fakeWarehouses) GetByID(ctx context.Context, warehouseID id.ID) (*warehouse.Warehouse, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	w, ok := f.s.warehouses[warehouseID]
	if !ok {
		return nil, apperror.NewNotFound("warehouse", warehouseID.String())
	}
	return w, nil
}

func (f *fakeWarehouses) GetByCode(ctx context.Context, code string) (*warehouse.Warehouse, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, w := range f.s.warehouses {
		if w.Code == code {
			return w, nil
		}
	}
	return nil, apperror.NewNotFound("warehouse", code)
}

type fakeMovementTypes struct{ s *state }

func (f *fakeMovementTypes) GetByCode(ctx context.Context, code string) (*direction.MovementType, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	mt, ok := f.s.mtypes[code]
	if !ok {
		return nil, apperror.NewNotFound("movement type", code)
	}
	return mt, nil
}

// --- fixture ---

type fixture struct {
	s           *state
	engine      *Engine
	productID   id.ID
	warehouseID id.ID
	destID      id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := newState()
	txm := &fakeTxManager{s: s}
	ledgerSvc := ledger.NewService(&fakeStock{s: s}, &fakeLots{s: s})
	auditSvc := audit.NewService(&fakeAudit{s: s})
	resolver := direction.NewResolver(&fakeMovementTypes{s: s})

	engine := NewEngine(&fakeDocs{s: s}, ledgerSvc, &fakeProducts{s: s}, &fakeWarehouses{s: s}, resolver, auditSvc, txm)

	prod := product.New("SKU-001", "Widget")
	src := warehouse.New("WH-MAIN", "Main warehouse")
	dst := warehouse.New("WH-EAST", "East warehouse")

	s.products[prod.ID] = prod
	s.warehouses[src.ID] = src
	s.warehouses[dst.ID] = dst

	return &fixture{
		s:           s,
		engine:      engine,
		productID:   prod.ID,
		warehouseID: src.ID,
		destID:      dst.ID,
	}
}

func (fx *fixture) stockKey() ledger.StockKey {
	return ledger.StockKey{
		ProductID:   fx.productID,
		WarehouseID: fx.warehouseID,
		Location:    "main",
	}
}

func (fx *fixture) seedDocument(t *testing.T, docType documents.DocumentType, qty float64, location string) *documents.InventoryDocument {
	t.Helper()
	doc := documents.NewInventoryDocument(docType, fx.warehouseID)
	doc.Number = "DOC-" + doc.ID.String()[:8]
	if docType == documents.TypeTransfer {
		doc.DestWarehouseID = &fx.destID
	}
	doc.AddLine(fx.productID, types.NewQuantityFromFloat64(qty), "pc", decimal.NewFromInt(1), location)

	fx.s.docs[doc.ID] = *doc
	fx.s.lines[doc.ID] = append([]documents.Line(nil), doc.Lines...)
	return doc
}

func (fx *fixture) seedStock(qty, futureIn, futureOut float64, mfg, exp time.Time) {
	key := fx.stockKey()
	fx.s.stock[key] = ledger.StockBalance{
		StockKey:  key,
		Quantity:  types.NewQuantityFromFloat64(qty),
		FutureIn:  types.NewQuantityFromFloat64(futureIn),
		FutureOut: types.NewQuantityFromFloat64(futureOut),
	}
	if qty > 0 {
		lotKey := ledger.LotKey{StockKey: key, ManufactureDate: mfg, ExpiryDate: exp}
		fx.s.lots[lotKey] = ledger.LotBalance{
			LotKey:   lotKey,
			Quantity: types.NewQuantityFromFloat64(qty),
		}
	}
}

// --- tests ---

func TestApprove_ConcurrentRequests_ExactlyOneWinner(t *testing.T) {
	fx := newFixture(t)
	doc := fx.seedDocument(t, documents.TypeReceipt, 10, "main")

	const workers = 3
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.engine.Approve(context.Background(), doc.ID, "racer")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case apperror.IsStateConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, conflicts)

	// Deltas applied exactly once.
	balance := fx.s.stock[fx.stockKey()]
	assert.Equal(t, types.NewQuantityFromFloat64(10), balance.Quantity)

	movements, _ := (&fakeAudit{s: fx.s}).ListMovementsByDocument(context.Background(), doc.ID)
	assert.Len(t, movements, 1)
}

func TestApprove_Receipt_CreditsStockAndConsumesFuture(t *testing.T) {
	fx := newFixture(t)
	fx.seedStock(0, 10, 0, time.Time{}, time.Time{})
	// Line with blank location resolves to the warehouse default.
	doc := fx.seedDocument(t, documents.TypeReceipt, 10, "")

	approved, err := fx.engine.Approve(context.Background(), doc.ID, "alice")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusApproved, approved.Status)
	assert.Equal(t, entity.StateClosed, approved.State)
	assert.Equal(t, "alice", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	balance := fx.s.stock[fx.stockKey()]
	assert.Equal(t, types.NewQuantityFromFloat64(10), balance.Quantity)
	assert.True(t, balance.FutureIn.IsZero())

	movements, _ := (&fakeAudit{s: fx.s}).ListMovementsByDocument(context.Background(), doc.ID)
	require.Len(t, movements, 1)
	assert.Equal(t, audit.OpReceipt, movements[0].Operation)
	assert.Equal(t, types.NewQuantityFromFloat64(10), movements[0].Delta)
	assert.Equal(t, types.NewQuantityFromFloat64(10), movements[0].OldFutureIn)
	assert.True(t, movements[0].NewFutureIn.IsZero())

	// Undated receipt lands in the indefinite shelf-life bucket.
	lotKey := ledger.LotKey{
		StockKey:        fx.stockKey(),
		ManufactureDate: ledger.IndefiniteDate,
		ExpiryDate:      ledger.IndefiniteDate,
	}
	assert.Equal(t, types.NewQuantityFromFloat64(10), fx.s.lots[lotKey].Quantity)
}

func TestApprove_InsufficientStock_LeavesNoTrace(t *testing.T) {
	fx := newFixture(t)
	fx.seedStock(3, 0, 5, day(0), day(30))
	doc := fx.seedDocument(t, documents.TypeIssue, 5, "main")

	_, err := fx.engine.Approve(context.Background(), doc.ID, "bob")
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// Whole unit rolled back: still draft, balances untouched, no audit.
	assert.Equal(t, entity.StatusDraft, fx.s.docs[doc.ID].Status)
	balance := fx.s.stock[fx.stockKey()]
	assert.Equal(t, types.NewQuantityFromFloat64(3), balance.Quantity)
	assert.Equal(t, types.NewQuantityFromFloat64(5), balance.FutureOut)
	assert.Empty(t, fx.s.movements)
}

func TestApprove_Issue_FEFOAllocation(t *testing.T) {
	fx := newFixture(t)
	key := fx.stockKey()
	fx.s.stock[key] = ledger.StockBalance{StockKey: key, Quantity: types.NewQuantityFromFloat64(15)}
	for i, exp := range []time.Time{day(10), day(20), day(30)} {
		lotKey := ledger.LotKey{StockKey: key, ManufactureDate: day(i), ExpiryDate: exp}
		fx.s.lots[lotKey] = ledger.LotBalance{LotKey: lotKey, Quantity: types.NewQuantityFromFloat64(5)}
	}

	doc := fx.seedDocument(t, documents.TypeIssue, 7, "main")

	_, err := fx.engine.Approve(context.Background(), doc.ID, "carol")
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromFloat64(8), fx.s.stock[key].Quantity)

	// Earliest expiry drained, second partially consumed, third untouched.
	remaining := map[time.Time]types.Quantity{}
	for lotKey, lot := range fx.s.lots {
		remaining[lotKey.ExpiryDate] = lot.Quantity
	}
	assert.True(t, remaining[day(10)].IsZero())
	assert.Equal(t, types.NewQuantityFromFloat64(3), remaining[day(20)])
	assert.Equal(t, types.NewQuantityFromFloat64(5), remaining[day(30)])
}

func TestApprove_Transfer_LotIdentityFollowsGoods(t *testing.T) {
	fx := newFixture(t)
	fx.seedStock(10, 0, 0, day(1), day(40))
	doc := fx.seedDocument(t, documents.TypeTransfer, 4, "main")

	_, err := fx.engine.Approve(context.Background(), doc.ID, "dave")
	require.NoError(t, err)

	sourceKey := fx.stockKey()
	destKey := sourceKey
	destKey.WarehouseID = fx.destID

	assert.Equal(t, types.NewQuantityFromFloat64(6), fx.s.stock[sourceKey].Quantity)
	assert.Equal(t, types.NewQuantityFromFloat64(4), fx.s.stock[destKey].Quantity)

	destLot := ledger.LotKey{StockKey: destKey, ManufactureDate: day(1), ExpiryDate: day(40)}
	assert.Equal(t, types.NewQuantityFromFloat64(4), fx.s.lots[destLot].Quantity)

	movements, _ := (&fakeAudit{s: fx.s}).ListMovementsByDocument(context.Background(), doc.ID)
	require.Len(t, movements, 2)
	assert.Equal(t, audit.OpTransferOut, movements[0].Operation)
	assert.Equal(t, types.NewQuantityFromFloat64(-4), movements[0].Delta)
	assert.Equal(t, audit.OpTransferIn, movements[1].Operation)
	assert.Equal(t, types.NewQuantityFromFloat64(4), movements[1].Delta)
}

func TestApprove_Transfer_SourceShortfallLeavesDestinationUntouched(t *testing.T) {
	fx := newFixture(t)
	fx.seedStock(3, 0, 0, day(1), day(40))

	destKey := fx.stockKey()
	destKey.WarehouseID = fx.destID
	fx.s.stock[destKey] = ledger.StockBalance{
		StockKey: destKey,
		Quantity: types.NewQuantityFromFloat64(2),
	}

	doc := fx.seedDocument(t, documents.TypeTransfer, 7, "main")

	_, err := fx.engine.Approve(context.Background(), doc.ID, "mallory")
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// The failed source leg aborts the unit before the destination leg
	// runs; nothing from either leg persists.
	assert.Equal(t, types.NewQuantityFromFloat64(2), fx.s.stock[destKey].Quantity)
	assert.Equal(t, types.NewQuantityFromFloat64(3), fx.s.stock[fx.stockKey()].Quantity)
	assert.Equal(t, entity.StatusDraft, fx.s.docs[doc.ID].Status)
	assert.Empty(t, fx.s.movements)
}

func TestApprove_TerminalDocument_StateConflict(t *testing.T) {
	fx := newFixture(t)
	doc := fx.seedDocument(t, documents.TypeReceipt, 2, "main")

	_, err := fx.engine.Approve(context.Background(), doc.ID, "erin")
	require.NoError(t, err)

	_, err = fx.engine.Approve(context.Background(), doc.ID, "erin")
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))

	// Second attempt applied nothing.
	assert.Equal(t, types.NewQuantityFromFloat64(2), fx.s.stock[fx.stockKey()].Quantity)
}

func TestApprove_UnknownDocument_NotFound(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.engine.Approve(context.Background(), id.New(), "frank")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestApprove_MovementTypeOverridesDirection(t *testing.T) {
	fx := newFixture(t)
	fx.seedStock(10, 0, 0, day(0), day(30))
	fx.s.mtypes["WRITE_OFF"] = direction.NewMovementType("WRITE_OFF", "Write-off", direction.Out)

	// Adjustment defaults inbound; the line-level code flips it outbound.
	doc := fx.seedDocument(t, documents.TypeAdjustment, 4, "main")
	lines := fx.s.lines[doc.ID]
	lines[0].MovementTypeCode = "WRITE_OFF"
	fx.s.lines[doc.ID] = lines

	_, err := fx.engine.Approve(context.Background(), doc.ID, "gus")
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromFloat64(6), fx.s.stock[fx.stockKey()].Quantity)

	movements, _ := (&fakeAudit{s: fx.s}).ListMovementsByDocument(context.Background(), doc.ID)
	require.Len(t, movements, 1)
	assert.Equal(t, audit.OpAdjustment, movements[0].Operation)
	assert.Equal(t, types.NewQuantityFromFloat64(-4), movements[0].Delta)
}

func TestCancel_ReleasesFuturesWithoutTouchingStock(t *testing.T) {
	fx := newFixture(t)
	fx.seedStock(8, 0, 5, day(0), day(30))
	doc := fx.seedDocument(t, documents.TypeIssue, 5, "main")

	cancelled, err := fx.engine.Cancel(context.Background(), doc.ID, "heidi")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusCancelled, cancelled.Status)
	assert.Equal(t, entity.StateClosed, cancelled.State)
	assert.Nil(t, cancelled.ApprovedAt)

	balance := fx.s.stock[fx.stockKey()]
	assert.Equal(t, types.NewQuantityFromFloat64(8), balance.Quantity)
	assert.True(t, balance.FutureOut.IsZero())
	assert.Empty(t, fx.s.movements)
}

func TestCancel_TerminalDocument_StateConflict(t *testing.T) {
	fx := newFixture(t)
	doc := fx.seedDocument(t, documents.TypeReceipt, 1, "main")

	_, err := fx.engine.Approve(context.Background(), doc.ID, "ivan")
	require.NoError(t, err)

	_, err = fx.engine.Cancel(context.Background(), doc.ID, "ivan")
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestLedgerConservation_LotsSumToStock(t *testing.T) {
	fx := newFixture(t)
	key := fx.stockKey()
	fx.s.stock[key] = ledger.StockBalance{StockKey: key, Quantity: types.NewQuantityFromFloat64(15)}
	for i, exp := range []time.Time{day(10), day(20), day(30)} {
		lotKey := ledger.LotKey{StockKey: key, ManufactureDate: day(i), ExpiryDate: exp}
		fx.s.lots[lotKey] = ledger.LotBalance{LotKey: lotKey, Quantity: types.NewQuantityFromFloat64(5)}
	}

	doc := fx.seedDocument(t, documents.TypeIssue, 11, "main")
	_, err := fx.engine.Approve(context.Background(), doc.ID, "judy")
	require.NoError(t, err)

	var lotSum types.Quantity
	for _, lot := range fx.s.lots {
		if lot.StockKey == key {
			lotSum += lot.Quantity
		}
	}
	assert.Equal(t, fx.s.stock[key].Quantity, lotSum)
}

func day(offset int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}
