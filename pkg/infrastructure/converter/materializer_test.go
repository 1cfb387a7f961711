package converter

import (
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skiffdb/skiff/pkg/errors"
	"github.com/skiffdb/skiff/pkg/models"
)

func strPtr(s string) *string { return &s }

func TestMaterialize_TypedRecord(t *testing.T) {
	m := NewMaterializer(zerolog.Nop())
	schema := models.Schema{
		{Name: "a", Type: "bigint"},
		{Name: "b", Type: "boolean"},
		{Name: "c", Type: "varchar"},
	}
	row := models.RawRow{Values: []*string{strPtr("42"), strPtr("TRUE"), strPtr("")}}

	record, err := m.Materialize(row, schema)
	require.NoError(t, err)

	assert.Equal(t, 0, record["a"].(*big.Int).Cmp(big.NewInt(42)))
	assert.Equal(t, true, record["b"])
	assert.Nil(t, record["c"])
}

func TestMaterialize_ColumnOrderIsPositional(t *testing.T) {
	// Cell i must land in schema column i; a swapped polarity would put
	// the name into the numeric column and fail.
	m := NewMaterializer(zerolog.Nop())
	schema := models.Schema{
		{Name: "id", Type: "integer"},
		{Name: "name", Type: "varchar"},
	}
	row := models.RawRow{Values: []*string{strPtr("7"), strPtr("alpha")}}

	record, err := m.Materialize(row, schema)
	require.NoError(t, err)
	assert.Equal(t, int64(7), record["id"])
	assert.Equal(t, "alpha", record["name"])
}

func TestMaterialize_MalformedValueAbortsRecord(t *testing.T) {
	m := NewMaterializer(zerolog.Nop())
	schema := models.Schema{{Name: "x", Type: "boolean"}}
	row := models.RawRow{Values: []*string{strPtr("maybe")}}

	record, err := m.Materialize(row, schema)
	require.Error(t, err)
	assert.True(t, errors.IsMalformedValue(err))
	assert.Nil(t, record, "no partial record on failure")
}

func TestMaterialize_MissingAndNilCellsBecomeNull(t *testing.T) {
	m := NewMaterializer(zerolog.Nop())
	schema := models.Schema{
		{Name: "a", Type: "varchar"},
		{Name: "b", Type: "integer"},
		{Name: "c", Type: "double"},
	}
	// Row shorter than the schema and with an explicit nil cell.
	row := models.RawRow{Values: []*string{nil, strPtr("3")}}

	record, err := m.Materialize(row, schema)
	require.NoError(t, err)
	assert.Nil(t, record["a"])
	assert.Equal(t, int64(3), record["b"])
	assert.Nil(t, record["c"])
}

func TestMaterializeFields(t *testing.T) {
	m := NewMaterializer(zerolog.Nop())
	schema := models.Schema{
		{Name: "name", Type: "varchar"},
		{Name: "active", Type: "boolean"},
	}

	record, err := m.MaterializeFields([]string{"beta", "false"}, schema)
	require.NoError(t, err)
	assert.Equal(t, "beta", record["name"])
	assert.Equal(t, false, record["active"])
}
