package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend/internal/localstore"
	"crm-backend/internal/logging"
	"crm-backend/internal/sheets"
)

func newService(t *testing.T) (*DefaultService, *sheets.MemStore) {
	t.Helper()
	store := sheets.NewMemStore()
	local, err := localstore.New(t.TempDir())
	require.NoError(t, err)

	var seq int
	svc := NewService(Options{
		Store: store,
		Local: local,
		TTL:   4 * time.Second,
		Log:   logging.NewDefault(),
		Now:   func() time.Time { seq++; return time.Date(2025, 1, 1, 0, 0, seq, 0, time.UTC) },
		NewID: func() string { return fmt.Sprintf("entry-%04d", seq) },
	})
	return svc, store
}

func TestAppendAndList_NewestFirst(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for i, action := range []string{ActionCreated, ActionStatusChanged, ActionDeleted} {
		_, err := svc.Append(ctx, Entry{
			ClientID: fmt.Sprintf("C%d", 1000+i),
			Name:     "Client",
			Action:   action,
			Actor:    "admin",
		})
		require.NoError(t, err)
	}

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ActionDeleted, entries[0].Action)
	assert.Equal(t, ActionStatusChanged, entries[1].Action)
	assert.Equal(t, ActionCreated, entries[2].Action)
	for _, e := range entries {
		assert.NotEmpty(t, e.TS)
	}
}

func TestList_ReadsRemoteLedgerFirst(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	// Rows appended by another process exist only in the sheet.
	sheet, err := store.Sheet(ctx, sheetName)
	require.NoError(t, err)
	require.NoError(t, sheet.EnsureHeader(ctx, sheetColumns))
	require.NoError(t, sheet.Append(ctx, [][]string{
		{"2025-01-01T00:00:01Z", ActionCreated, "C1001", "Ana", "created", "admin"},
	}))

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "C1001", entries[0].ClientID)
	assert.Equal(t, ActionCreated, entries[0].Action)
	assert.Equal(t, "admin", entries[0].Actor)
	// The condensed sheet shape has no status columns or entry id.
	assert.Empty(t, entries[0].ID)
	assert.Empty(t, entries[0].StatusOld)
}

func TestList_RemoteDownUsesLocalFile(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, Entry{ClientID: "C1001", Action: ActionCreated})
	require.NoError(t, err)

	store.FailNext = true
	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	// The local file keeps the full shape, entry id included.
	assert.NotEmpty(t, entries[0].ID)
}

func TestList_SameTimestampKeepsLatestFirst(t *testing.T) {
	store := sheets.NewMemStore()
	local, err := localstore.New(t.TempDir())
	require.NoError(t, err)

	var seq int
	svc := NewService(Options{
		Store: store,
		Local: local,
		TTL:   4 * time.Second,
		Log:   logging.NewDefault(),
		Now:   func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
		NewID: func() string { seq++; return fmt.Sprintf("entry-%04d", seq) },
	})
	ctx := context.Background()

	for _, action := range []string{ActionCreated, ActionStatusChanged} {
		_, err := svc.Append(ctx, Entry{ClientID: "C1001", Action: action})
		require.NoError(t, err)
	}

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionStatusChanged, entries[0].Action)
	assert.Equal(t, ActionCreated, entries[1].Action)
}

func TestAppend_MirrorsToRemoteSheet(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, Entry{ClientID: "C1001", Name: "Ana", Action: ActionCreated, Actor: "admin", Detail: "created"})
	require.NoError(t, err)

	sheet, err := store.Sheet(ctx, sheetName)
	require.NoError(t, err)
	rows, err := sheet.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C1001", rows[0][sheetClientIDCol])
	assert.Equal(t, ActionCreated, rows[0][1])
}

func TestAppend_SurvivesRemoteFailure(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	store.FailNext = true
	_, err := svc.Append(ctx, Entry{ClientID: "C1001", Action: ActionCreated})
	require.NoError(t, err)
	store.FailNext = false

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestForClient_FiltersByID(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, id := range []string{"C1001", "C1002", "C1001"} {
		_, err := svc.Append(ctx, Entry{ClientID: id, Action: ActionUpdated})
		require.NoError(t, err)
	}

	entries, err := svc.ForClient(ctx, "C1001")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "C1001", e.ClientID)
	}
}

func TestWipe_ClearsLocalAndRemote(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, Entry{ClientID: "C1001", Action: ActionCreated})
	require.NoError(t, err)
	require.NoError(t, svc.Wipe(ctx))

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	sheet, err := store.Sheet(ctx, sheetName)
	require.NoError(t, err)
	rows, err := sheet.Rows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPurgeClient_RemovesOnlyThatClient(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	for _, id := range []string{"C1001", "C1002", "C1001"} {
		_, err := svc.Append(ctx, Entry{ClientID: id, Action: ActionUpdated})
		require.NoError(t, err)
	}
	require.NoError(t, svc.PurgeClient(ctx, "C1001"))

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "C1002", entries[0].ClientID)

	sheet, err := store.Sheet(ctx, sheetName)
	require.NoError(t, err)
	rows, err := sheet.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C1002", rows[0][sheetClientIDCol])
}

func TestList_EmptyLedger(t *testing.T) {
	svc, _ := newService(t)
	entries, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
