package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend/internal/cache"
	"crm-backend/internal/catalog"
	"crm-backend/internal/document"
	"crm-backend/internal/fuzzy"
	"crm-backend/internal/history"
	"crm-backend/internal/localstore"
	"crm-backend/internal/logging"
	"crm-backend/internal/search"
	"crm-backend/internal/sheets"
	"crm-backend/internal/worker"
)

type testEnv struct {
	svc    *DefaultService
	repo   *StoreRepository
	store  *sheets.MemStore
	ledger history.Service
	docs   *document.FSStore
	root   string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logging.NewDefault()
	store := sheets.NewMemStore()
	local, err := localstore.New(t.TempDir())
	require.NoError(t, err)
	reg := cache.NewRegistry()

	repo := NewRepository(RepositoryOptions{
		Store: store, Local: local, TTL: 3 * time.Second, Reg: reg, Log: log,
	})
	ledger := history.NewService(history.Options{
		Store: store, Local: local, TTL: 4 * time.Second, Reg: reg, Log: log,
	})
	catalogs := catalog.NewService(catalog.Options{
		Store:    store,
		Local:    local,
		Caches:   cache.NewKeyed[[]string](10 * time.Minute),
		Canon:    fuzzy.NewCanonicalizer(0.90),
		Searcher: search.NewSearcher(0.82, 0.6),
		Log:      log,
	})

	docsRoot := t.TempDir()
	fsStore, err := document.NewFSStore(docsRoot, log)
	require.NoError(t, err)
	pool := worker.NewPool(2, log)
	t.Cleanup(pool.Shutdown)
	docs := document.NewService(fsStore, pool, ledger, log)

	svc := NewService(ServiceOptions{
		Repo:     repo,
		Ledger:   ledger,
		Docs:     docs,
		Catalogs: catalogs,
		Searcher: search.NewSearcher(0.82, 0.6),
		Log:      log,
	})
	return &testEnv{svc: svc, repo: repo, store: store, ledger: ledger, docs: fsStore, root: docsRoot}
}

func TestCreate_AssignsNextID(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	first, err := env.svc.Create(ctx, Client{Name: "Ana"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "C1000", first.ID)

	second, err := env.svc.Create(ctx, Client{Name: "Bruno"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "C1001", second.ID)

	entries, err := env.ledger.ForClient(ctx, "C1000")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.ActionCreated, entries[0].Action)
}

func TestCreate_CanonicalizesFields(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, Client{Name: "Ana", Advisor: "María López"}, "admin")
	require.NoError(t, err)

	created, err := env.svc.Create(ctx, Client{
		Name:    "Bruno",
		Status:  "disbursd",
		Branch:  "north",
		Advisor: "maria lopez",
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "DISBURSED", created.Status)
	assert.Equal(t, "NORTH", created.Branch)
	assert.Equal(t, "María López", created.Advisor)
}

func TestCreate_RejectsDuplicateID(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, Client{ID: "C1000", Name: "Ana"}, "admin")
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, Client{ID: "C1000", Name: "Bruno"}, "admin")
	require.Error(t, err)
}

func TestLoad_RepairsIDsAndPersists(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	seedSheet(t, env.store,
		Client{Name: "A"},
		Client{Name: "B"},
		Client{ID: "C1005", Name: "C"},
	)

	clients, err := env.svc.List(ctx, Filter{})
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, c := range clients {
		ids[c.ID] = true
	}
	assert.True(t, ids["C1005"] && ids["C1006"] && ids["C1007"], "got %v", ids)

	sheet, err := env.store.Sheet(ctx, sheetName)
	require.NoError(t, err)
	rows, err := sheet.Rows(ctx)
	require.NoError(t, err)
	for _, row := range rows {
		assert.NotEmpty(t, FromRow(Columns, row).ID)
	}
}

func TestChangeStatus_RecordsTransition(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, Client{Name: "Ana", Status: "PROPOSAL"}, "admin")
	require.NoError(t, err)

	updated, err := env.svc.ChangeStatus(ctx, created.ID, "funded", "", "approved by committee", "maria")
	require.NoError(t, err)
	assert.Equal(t, "DISBURSED", updated.Status)

	// The local ledger file keeps the full shape with the status columns.
	env.store.FailNext = true
	entries, err := env.ledger.ForClient(ctx, created.ID)
	env.store.FailNext = false
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, history.ActionStatusChanged, entries[0].Action)
	assert.Equal(t, "PROPOSAL", entries[0].StatusOld)
	assert.Equal(t, "DISBURSED", entries[0].StatusNew)
	assert.Equal(t, "maria", entries[0].Actor)
}

func TestChangeStatus_NoopWhenUnchanged(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, Client{Name: "Ana", Status: "PROPOSAL"}, "admin")
	require.NoError(t, err)

	_, err = env.svc.ChangeStatus(ctx, created.ID, "PROPOSAL", "", "", "maria")
	require.NoError(t, err)

	entries, err := env.ledger.ForClient(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDelete_RemovesRowDocsAndOptionallyHistory(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, Client{Name: "Ana"}, "admin")
	require.NoError(t, err)
	ref := document.Ref{ID: created.ID, Name: created.Name}
	_, err = env.docs.Save(ctx, ref, "otros_nota.pdf", "", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, created.ID, true, "admin"))

	_, err = env.svc.Get(ctx, created.ID)
	require.Error(t, err)

	docs, err := env.docs.List(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, docs)

	entries, err := env.ledger.ForClient(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDelete_KeepsHistoryWithoutPurge(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, Client{Name: "Ana"}, "admin")
	require.NoError(t, err)
	require.NoError(t, env.svc.Delete(ctx, created.ID, false, "admin"))

	entries, err := env.ledger.ForClient(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, history.ActionDeleted, entries[0].Action)
}

func TestList_FiltersAndSearch(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	for _, c := range []Client{
		{Name: "Ana Gómez", Branch: "NORTH", Status: "PROPOSAL", Phone: "555-1000"},
		{Name: "Bruno Díaz", Branch: "SOUTH", Status: "PROPOSAL", Phone: "555-2000"},
		{Name: "Carla Ruiz", Branch: "NORTH", Status: "DISBURSED", Phone: "555-3000"},
	} {
		_, err := env.svc.Create(ctx, c, "admin")
		require.NoError(t, err)
	}

	north, err := env.svc.List(ctx, Filter{Branch: "NORTH"})
	require.NoError(t, err)
	assert.Len(t, north, 2)

	proposals, err := env.svc.List(ctx, Filter{Status: "PROPOSAL"})
	require.NoError(t, err)
	assert.Len(t, proposals, 2)

	found, err := env.svc.List(ctx, Filter{Query: "bruno"})
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "Bruno Díaz", found[0].Name)
}

func TestImport_AddOnlySkipsDuplicates(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, Client{Name: "Ana", Phone: "555"}, "admin")
	require.NoError(t, err)

	header := []string{"name", "phone", "status"}
	rows := [][]string{
		{"Ana", "555", "PROPOSAL"},
		{"Bruno", "777", "PROPOSAL"},
	}
	res, err := env.svc.Import(ctx, header, rows, nil, ImportAddOnly, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Skipped)

	clients, err := env.svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, clients, 2)
}

func TestImport_UpdateByID(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, Client{Name: "Ana", Status: "PROPOSAL"}, "admin")
	require.NoError(t, err)

	header := []string{"id", "status"}
	rows := [][]string{{created.ID, "DISBURSED"}}
	res, err := env.svc.Import(ctx, header, rows, nil, ImportUpdateByID, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	got, err := env.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "DISBURSED", got.Status)
	assert.Equal(t, "Ana", got.Name)
}

func TestImport_ColumnMapping(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	header := []string{"full name", "cell"}
	rows := [][]string{{"Diana Prince", "888"}}
	mapping := map[string]string{"name": "full name", "phone": "cell"}

	res, err := env.svc.Import(ctx, header, rows, mapping, ImportUpsert, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	clients, err := env.svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Diana Prince", clients[0].Name)
	assert.Equal(t, "888", clients[0].Phone)
	assert.NotEmpty(t, clients[0].ID)
}

func TestImport_UnknownMode(t *testing.T) {
	env := newEnv(t)
	_, err := env.svc.Import(context.Background(), nil, nil, nil, ImportMode("nope"), "admin")
	require.Error(t, err)
}

func TestAdvisors_Distinct(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	for _, c := range []Client{
		{Name: "A", Advisor: "María López"},
		{Name: "B", Advisor: "maria lopez"},
		{Name: "C", Advisor: "Pedro Sol"},
	} {
		_, err := env.svc.Create(ctx, c, "admin")
		require.NoError(t, err)
	}

	advisors, err := env.svc.Advisors(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"María López", "Pedro Sol"}, advisors)
}
