package client

import (
	"context"
	"time"

	"crm-backend/internal/apperr"
	"crm-backend/internal/cache"
	"crm-backend/internal/localstore"
	"crm-backend/internal/logging"
	"crm-backend/internal/sheets"
)

const (
	sheetName = "clients"
	localFile = "clients.csv"

	// updateBatchSize caps how many changed rows one save pushes to the
	// remote sheet per batch.
	updateBatchSize = 100
)

// Repository loads and saves the client table.
type Repository interface {
	Load(ctx context.Context) ([]Client, error)
	Save(ctx context.Context, clients []Client) error
	DeleteRemote(ctx context.Context, id string) error
	Invalidate()
}

// StoreRepository reads remote-first with the short-lived cache in
// front and the local CSV as fallback. Saves write the CSV, refresh the
// cache and diff-push the remote sheet; a remote failure never fails
// the save.
type StoreRepository struct {
	store sheets.Store
	local *localstore.Store
	cache *cache.Value[[]Client]
	log   logging.Logger
}

// RepositoryOptions wires a StoreRepository.
type RepositoryOptions struct {
	Store sheets.Store
	Local *localstore.Store
	TTL   time.Duration
	Reg   *cache.Registry
	Log   logging.Logger
}

func NewRepository(opts RepositoryOptions) *StoreRepository {
	c := cache.NewValue[[]Client](opts.TTL)
	if opts.Reg != nil {
		opts.Reg.Register(c)
	}
	return &StoreRepository{
		store: opts.Store,
		local: opts.Local,
		cache: c,
		log:   opts.Log,
	}
}

// Load returns the client table: cache, then remote sheet, then local
// CSV, then empty. A successful remote read refreshes the local mirror.
func (r *StoreRepository) Load(ctx context.Context) ([]Client, error) {
	if clients, ok := r.cache.Get(); ok {
		return cloneClients(clients), nil
	}

	clients, err := r.loadRemote(ctx)
	if err == nil {
		r.cache.Put(cloneClients(clients))
		if err := r.saveLocal(clients); err != nil {
			r.log.Warn(ctx, "clients: local mirror write failed", "error", err)
		}
		return clients, nil
	}
	r.log.Warn(ctx, "clients: remote load failed, falling back to local file", "error", err)

	clients, lerr := r.loadLocal()
	if lerr != nil {
		if apperr.IsNotFound(lerr) {
			return nil, nil
		}
		return nil, lerr
	}
	r.cache.Put(cloneClients(clients))
	return clients, nil
}

// Save persists the table locally and pushes only the remote rows that
// actually changed. Last write wins per row.
func (r *StoreRepository) Save(ctx context.Context, clients []Client) error {
	if err := r.saveLocal(clients); err != nil {
		return err
	}
	r.cache.Put(cloneClients(clients))

	if err := r.pushRemote(ctx, clients); err != nil {
		r.log.Warn(ctx, "clients: remote push failed, local copy kept", "error", err)
	}
	return nil
}

// DeleteRemote removes the client's row from the remote sheet.
func (r *StoreRepository) DeleteRemote(ctx context.Context, id string) error {
	sheet, err := r.store.Sheet(ctx, sheetName)
	if err != nil {
		return err
	}
	_, err = sheet.DeleteRowsWhere(ctx, 0, id)
	return err
}

func (r *StoreRepository) Invalidate() {
	r.cache.Invalidate()
}

func (r *StoreRepository) loadRemote(ctx context.Context) ([]Client, error) {
	sheet, err := r.store.Sheet(ctx, sheetName)
	if err != nil {
		return nil, err
	}
	header, err := sheet.Header(ctx)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		header = Columns
	}
	rows, err := sheet.Rows(ctx)
	if err != nil {
		return nil, err
	}
	clients := make([]Client, 0, len(rows))
	for _, row := range rows {
		clients = append(clients, FromRow(header, row))
	}
	return clients, nil
}

func (r *StoreRepository) loadLocal() ([]Client, error) {
	header, rows, err := r.local.LoadCSV(localFile)
	if err != nil {
		return nil, err
	}
	clients := make([]Client, 0, len(rows))
	for _, row := range rows {
		clients = append(clients, FromRow(header, row))
	}
	return clients, nil
}

func (r *StoreRepository) saveLocal(clients []Client) error {
	rows := make([][]string, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, c.Row())
	}
	return r.local.SaveCSV(localFile, Columns, rows)
}

// pushRemote diffs the desired table against the current sheet content
// by id: new ids are appended, changed rows rewritten in place, rows
// whose cells match are left alone. Rows present remotely but absent
// locally are not touched here; deletion is explicit.
func (r *StoreRepository) pushRemote(ctx context.Context, clients []Client) error {
	sheet, err := r.store.Sheet(ctx, sheetName)
	if err != nil {
		return err
	}
	header, err := sheet.Header(ctx)
	if err != nil {
		return err
	}
	if len(header) == 0 {
		rows := make([][]string, 0, len(clients))
		for _, c := range clients {
			rows = append(rows, c.Row())
		}
		return sheet.ReplaceAll(ctx, Columns, rows)
	}

	existing, err := sheet.Rows(ctx)
	if err != nil {
		return err
	}
	rowByID := make(map[string]int, len(existing))
	anonRows := false
	for i, row := range existing {
		rec := FromRow(header, row)
		if rec.ID == "" {
			anonRows = true
			continue
		}
		rowByID[rec.ID] = i
	}
	// Rows without an id cannot be diffed; rewrite the whole sheet so id
	// repair converges remotely too.
	if anonRows {
		rows := make([][]string, 0, len(clients))
		for _, c := range clients {
			rows = append(rows, c.Row())
		}
		return sheet.ReplaceAll(ctx, Columns, rows)
	}

	var appends [][]string
	type update struct {
		index int
		cells []string
	}
	var updates []update
	for _, c := range clients {
		idx, ok := rowByID[c.ID]
		if !ok {
			appends = append(appends, c.Row())
			continue
		}
		if FromRow(header, existing[idx]) != c {
			updates = append(updates, update{index: idx, cells: c.Row()})
		}
	}

	if len(appends) > 0 {
		if err := sheet.Append(ctx, appends); err != nil {
			return err
		}
	}
	for start := 0; start < len(updates); start += updateBatchSize {
		end := start + updateBatchSize
		if end > len(updates) {
			end = len(updates)
		}
		for _, u := range updates[start:end] {
			if err := sheet.UpdateRow(ctx, u.index, u.cells); err != nil {
				return err
			}
		}
	}
	return nil
}

func cloneClients(clients []Client) []Client {
	out := make([]Client, len(clients))
	copy(out, clients)
	return out
}
