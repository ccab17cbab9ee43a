package orm

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/ormato/database"
	"github.com/ridoystarlord/ormato/schema"
)

type Row struct {
	ID       int
	Count    uint16
	Label    string
	Done     bool
	Score    float64
	At       time.Time
	Ref      *uuid.UUID
	Nick     sql.NullString
	Blob     []byte
	Optional *int32
}

func rowModel(t *testing.T) *schema.Model {
	t.Helper()
	m, err := schema.Describe(Row{})
	require.NoError(t, err)
	return m
}

func TestHydrateConvertsDriverValues(t *testing.T) {
	m := rowModel(t)
	rs := &database.ResultSet{
		Columns: []string{"id", "count", "label", "done", "score", "at", "ref", "nick", "blob", "optional", "extra"},
		Rows: [][]any{
			{int64(1), int64(3), []byte("first"), int64(1), int64(2), "2024-05-06 07:08:09 +0000 UTC",
				"6ba7b810-9dad-11d1-80b4-00c04fd430c8", "ann", "raw", int64(12), "ignored"},
			{int64(2), int64(0), "second", false, 1.5, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				nil, nil, []byte{1, 2}, nil, nil},
		},
	}

	var rows []Row
	require.NoError(t, Hydrate(m, rs, &rows))
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, uint16(3), first.Count)
	assert.Equal(t, "first", first.Label)
	assert.True(t, first.Done)
	assert.Equal(t, 2.0, first.Score)
	assert.True(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC).Equal(first.At))
	require.NotNil(t, first.Ref)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", first.Ref.String())
	assert.Equal(t, sql.NullString{String: "ann", Valid: true}, first.Nick)
	assert.Equal(t, []byte("raw"), first.Blob)
	require.NotNil(t, first.Optional)
	assert.Equal(t, int32(12), *first.Optional)

	second := rows[1]
	assert.Equal(t, "second", second.Label)
	assert.False(t, second.Done)
	assert.Equal(t, 1.5, second.Score)
	assert.Nil(t, second.Ref)
	assert.False(t, second.Nick.Valid)
	assert.Nil(t, second.Optional)
}

func TestHydrateTargets(t *testing.T) {
	m := rowModel(t)
	rs := &database.ResultSet{Columns: []string{"id"}, Rows: [][]any{{int64(5)}, {int64(6)}}}

	var ptrs []*Row
	require.NoError(t, Hydrate(m, rs, &ptrs))
	require.Len(t, ptrs, 2)
	assert.Equal(t, 6, ptrs[1].ID)

	var one Row
	require.NoError(t, Hydrate(m, rs, &one))
	assert.Equal(t, 5, one.ID)

	empty := &database.ResultSet{Columns: []string{"id"}}
	assert.ErrorIs(t, Hydrate(m, empty, &one), ErrNotFound)

	var none []Row
	require.NoError(t, Hydrate(m, empty, &none))
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestHydrateErrors(t *testing.T) {
	m := rowModel(t)
	rs := &database.ResultSet{Columns: []string{"id"}, Rows: [][]any{{int64(5)}}}

	var rows []Row
	assert.Error(t, Hydrate(m, rs, rows), "destination must be a pointer")

	var wrong []string
	assert.Error(t, Hydrate(m, rs, &wrong))

	overflow := &database.ResultSet{Columns: []string{"count"}, Rows: [][]any{{int64(70000)}}}
	assert.Error(t, Hydrate(m, overflow, &rows))

	badTime := &database.ResultSet{Columns: []string{"at"}, Rows: [][]any{{"yesterday"}}}
	assert.Error(t, Hydrate(m, badTime, &rows))

	badInt := &database.ResultSet{Columns: []string{"id"}, Rows: [][]any{{struct{}{}}}}
	assert.Error(t, Hydrate(m, badInt, &rows))
}
