package converter

import (
	"github.com/rs/zerolog"

	"github.com/skiffdb/skiff/pkg/errors"
	"github.com/skiffdb/skiff/pkg/models"
)

// Materializer converts raw rows into typed records against a schema.
type Materializer struct {
	logger zerolog.Logger
}

// NewMaterializer creates a new row materializer.
func NewMaterializer(logger zerolog.Logger) *Materializer {
	return &Materializer{logger: logger}
}

// Materialize converts one structured raw row into a typed record.
// Cells are matched to columns by positional index: cell i belongs to
// schema column i. Absent or empty cells become nil. The first coercion
// failure aborts the record; no partial record is returned.
func (m *Materializer) Materialize(row models.RawRow, schema models.Schema) (models.TypedRecord, error) {
	record := make(models.TypedRecord, len(schema))

	for i, col := range schema {
		var cell *string
		if i < len(row.Values) {
			cell = row.Values[i]
		}
		if cell == nil || *cell == "" {
			record[col.Name] = nil
			continue
		}

		typed, err := Coerce(*cell, col.Type)
		if err != nil {
			m.logger.Debug().
				Str("column", col.Name).
				Str("declared_type", col.Type).
				Err(err).
				Msg("cell coercion failed")
			if qe, ok := err.(*errors.QueryError); ok {
				return nil, qe.WithDetail("column", col.Name)
			}
			return nil, err
		}
		record[col.Name] = typed
	}

	return record, nil
}

// MaterializeFields converts one already-split delimited-text row into a
// typed record. Used for full result blobs parsed as delimited text,
// where cells are plain strings rather than optional values.
func (m *Materializer) MaterializeFields(fields []string, schema models.Schema) (models.TypedRecord, error) {
	row := models.RawRow{Values: make([]*string, len(fields))}
	for i := range fields {
		row.Values[i] = &fields[i]
	}
	return m.Materialize(row, schema)
}
