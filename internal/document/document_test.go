package document

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend/internal/cache"
	"crm-backend/internal/history"
	"crm-backend/internal/localstore"
	"crm-backend/internal/logging"
	"crm-backend/internal/sheets"
	"crm-backend/internal/worker"
)

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Ana Gómez  ", "Ana Gómez"},
		{"con/trato.pdf", "con_trato.pdf"},
		{"a\tb   c", "a b c"},
		{"ñandú.png", "ñandú.png"},
		{"semi;colon?.pdf", "semi_colon_.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeFileName(tt.in), tt.in)
	}
}

func TestSafeFileName_CapsLength(t *testing.T) {
	long := strings.Repeat("a", 200)
	assert.Len(t, SafeFileName(long), 150)
}

func TestCategory_ApplyAndDetect(t *testing.T) {
	cat, ok := CategoryByName("estado_cuenta")
	require.True(t, ok)

	assert.Equal(t, "estado_cuenta_enero.pdf", cat.Apply("enero.pdf"))
	assert.Equal(t, "estado_cuenta_enero.pdf", cat.Apply("estado_cuenta_enero.pdf"))
	assert.Equal(t, "estado_cuenta", CategoryOf("estado_cuenta_enero.pdf"))
	assert.Equal(t, "otros", CategoryOf("random.pdf"))
}

func TestCategory_Allows(t *testing.T) {
	cat, _ := CategoryByName("contrato")
	assert.True(t, cat.Allows("firma.PDF"))
	assert.True(t, cat.Allows("firma.docx"))
	assert.False(t, cat.Allows("firma.xlsx"))
}

func TestRef_Key(t *testing.T) {
	assert.Equal(t, "Ana Gómez", Ref{ID: "C1001", Name: "Ana Gómez"}.Key())
	assert.Equal(t, "C1001", Ref{ID: "C1001"}.Key())
	assert.Equal(t, "C1001", Ref{ID: "C1001", Name: "Ana"}.LegacyKey())
	assert.Equal(t, "", Ref{ID: "C1001"}.LegacyKey())
}

func newFSStore(t *testing.T) (*FSStore, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewFSStore(root, logging.NewDefault())
	require.NoError(t, err)
	return store, root
}

func TestFSStore_SaveListOpenDelete(t *testing.T) {
	store, _ := newFSStore(t)
	ctx := context.Background()
	ref := Ref{ID: "C1001", Name: "Ana Gómez"}

	doc, err := store.Save(ctx, ref, "contrato_firma.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "contrato_firma.pdf", doc.Name)
	assert.Equal(t, "contrato", doc.Category)
	assert.Equal(t, int64(9), doc.Size)

	docs, err := store.List(ctx, ref)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	rc, err := store.Open(ctx, ref, "contrato_firma.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))

	require.NoError(t, store.Delete(ctx, ref, "contrato_firma.pdf"))
	docs, err = store.List(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFSStore_MigratesLegacyIDFolder(t *testing.T) {
	store, root := newFSStore(t)
	ctx := context.Background()

	legacy := filepath.Join(root, "C1001")
	require.NoError(t, os.MkdirAll(legacy, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(legacy, "otros_nota.pdf"), []byte("x"), 0o644))

	ref := Ref{ID: "C1001", Name: "Ana Gómez"}
	docs, err := store.List(ctx, ref)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "otros_nota.pdf", docs[0].Name)

	_, err = os.Stat(filepath.Join(root, "Ana Gómez"))
	assert.NoError(t, err)
	_, err = os.Stat(legacy)
	assert.True(t, os.IsNotExist(err))
}

func TestFSStore_OpenRejectsTraversal(t *testing.T) {
	store, _ := newFSStore(t)
	_, err := store.Open(context.Background(), Ref{ID: "C1001"}, "../secret")
	require.Error(t, err)
}

func newTestService(t *testing.T) (*Service, *FSStore, history.Service) {
	t.Helper()
	store, _ := newFSStore(t)
	local, err := localstore.New(t.TempDir())
	require.NoError(t, err)
	ledger := history.NewService(history.Options{
		Store: sheets.NewMemStore(),
		Local: local,
		TTL:   time.Second,
		Reg:   cache.NewRegistry(),
		Log:   logging.NewDefault(),
	})
	log := logging.NewDefault()
	pool := worker.NewPool(4, log)
	t.Cleanup(pool.Shutdown)
	return NewService(store, pool, ledger, log), store, ledger
}

func TestServiceUpload_FansOutAndSkipsBadFiles(t *testing.T) {
	svc, store, ledger := newTestService(t)
	ctx := context.Background()
	ref := Ref{ID: "C1001", Name: "Ana"}

	results, err := svc.Upload(ctx, ref, "estado_cuenta", "admin", []Upload{
		{Filename: "enero.pdf", Data: []byte("one")},
		{Filename: "febrero.xlsx", Data: []byte("two")},
		{Filename: "marzo.png", Data: []byte("three")},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "estado_cuenta_enero.pdf", results[0].Stored)
	assert.Contains(t, results[1].Error, "extension not allowed")
	assert.Equal(t, "estado_cuenta_marzo.png", results[2].Stored)

	docs, err := store.List(ctx, ref)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	entries, err := ledger.ForClient(ctx, "C1001")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.ActionDocumentUploaded, entries[0].Action)
}

func TestServiceUpload_UnknownCategory(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Upload(context.Background(), Ref{ID: "C1"}, "nope", "admin", []Upload{{Filename: "a.pdf"}})
	require.Error(t, err)
}

func TestServiceDownload_RecordsAccess(t *testing.T) {
	svc, store, ledger := newTestService(t)
	ctx := context.Background()
	ref := Ref{ID: "C1001", Name: "Ana"}

	_, err := store.Save(ctx, ref, "otros_nota.pdf", "", strings.NewReader("x"))
	require.NoError(t, err)

	rc, err := svc.Download(ctx, ref, "otros_nota.pdf", "maria")
	require.NoError(t, err)
	rc.Close()

	entries, err := ledger.ForClient(ctx, "C1001")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.ActionDocumentDownloaded, entries[0].Action)
	assert.Equal(t, "maria", entries[0].Actor)
}

func TestServiceArchive_BundlesAllFiles(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	ref := Ref{ID: "C1001", Name: "Ana"}

	for _, name := range []string{"otros_a.pdf", "otros_b.pdf"} {
		_, err := store.Save(ctx, ref, name, "", strings.NewReader("content-"+name))
		require.NoError(t, err)
	}

	data, err := svc.Archive(ctx, ref)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	names := []string{zr.File[0].Name, zr.File[1].Name}
	assert.ElementsMatch(t, []string{"otros_a.pdf", "otros_b.pdf"}, names)
}

func TestServiceArchive_EmptyClient(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Archive(context.Background(), Ref{ID: "C9999"})
	require.Error(t, err)
}
