package sheets

import (
	"context"
	"testing"

	"crm-backend/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_SheetLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	sh, err := store.Sheet(ctx, "clients")
	require.NoError(t, err)
	assert.Equal(t, "clients", sh.Name())

	header := []string{"id", "name"}
	require.NoError(t, sh.EnsureHeader(ctx, header))
	got, err := sh.Header(ctx)
	require.NoError(t, err)
	assert.Equal(t, header, got)

	require.NoError(t, sh.Append(ctx, [][]string{{"C1000", "Ana"}, {"C1001", "Luis"}}))
	rows, err := sh.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, sh.UpdateRow(ctx, 1, []string{"C1001", "Luisa"}))
	rows, _ = sh.Rows(ctx)
	assert.Equal(t, "Luisa", rows[1][1])

	removed, err := sh.DeleteRowsWhere(ctx, 0, "C1000")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	rows, _ = sh.Rows(ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, "C1001", rows[0][0])

	require.NoError(t, sh.Clear(ctx))
	rows, _ = sh.Rows(ctx)
	assert.Empty(t, rows)
}

func TestMemStore_UpdateRowOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	sh, _ := store.Sheet(ctx, "clients")

	err := sh.UpdateRow(ctx, 5, []string{"x"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMemStore_FailNextClassifiesAsRemoteUnavailable(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	sh, _ := store.Sheet(ctx, "clients")

	store.FailNext = true
	_, err := sh.Rows(ctx)
	assert.True(t, apperr.IsRemoteUnavailable(err))
}

func TestMemStore_RowsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	sh, _ := store.Sheet(ctx, "clients")
	require.NoError(t, sh.Append(ctx, [][]string{{"C1000", "Ana"}}))

	rows, _ := sh.Rows(ctx)
	rows[0][1] = "mutated"

	again, _ := sh.Rows(ctx)
	assert.Equal(t, "Ana", again[0][1])
}
