package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBase struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

type testEntity struct {
	testBase
	Code     string  `db:"code"`
	Name     string  `db:"name"`
	Quantity int64   `db:"quantity"`
	Note     *string `db:"note"`
	Derived  string  `db:"-"`
	internal string  `db:"internal"`
	NoTag    string
}

func TestExtractDBColumns(t *testing.T) {
	columns := ExtractDBColumns[testEntity]()

	assert.Equal(t, []string{"id", "created_at", "code", "name", "quantity", "note"}, columns)
	assert.NotContains(t, columns, "internal", "unexported fields are skipped")
	assert.NotContains(t, columns, "-")
}

func TestExtractDBColumns_PointerType(t *testing.T) {
	assert.Equal(t, ExtractDBColumns[testEntity](), ExtractDBColumns[*testEntity]())
}

func TestStructToMap(t *testing.T) {
	note := "counted twice"
	e := testEntity{
		testBase: testBase{ID: "e-1", CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		Code:     "SKU-001",
		Name:     "Widget",
		Quantity: 42,
		Note:     &note,
		Derived:  "ignored",
		internal: "ignored",
	}

	m := StructToMap(&e)

	require.Len(t, m, 6)
	assert.Equal(t, "e-1", m["id"])
	assert.Equal(t, "SKU-001", m["code"])
	assert.Equal(t, "Widget", m["name"])
	assert.Equal(t, int64(42), m["quantity"])
	assert.Equal(t, &note, m["note"])
	assert.NotContains(t, m, "-")
}

func TestStructToMap_ValueAndPointerAgree(t *testing.T) {
	e := testEntity{Code: "SKU-002", Name: "Gadget"}
	assert.Equal(t, StructToMap(e), StructToMap(&e))
}

func TestStructToMap_NilPointerField(t *testing.T) {
	m := StructToMap(testEntity{Code: "SKU-003"})

	val, ok := m["note"]
	require.True(t, ok, "nil pointer columns still present for explicit NULL inserts")
	assert.Nil(t, val)
}
