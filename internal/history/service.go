package history

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"crm-backend/internal/apperr"
	"crm-backend/internal/cache"
	"crm-backend/internal/localstore"
	"crm-backend/internal/logging"
	"crm-backend/internal/sheets"
)

const (
	sheetName = "history"
	localFile = "history.csv"
)

// Service records and reads ledger entries.
type Service interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	ForClient(ctx context.Context, clientID string) ([]Entry, error)
	Wipe(ctx context.Context) error
	PurgeClient(ctx context.Context, clientID string) error
}

// Options wires a DefaultService.
type Options struct {
	Store sheets.Store
	Local *localstore.Store
	TTL   time.Duration
	Reg   *cache.Registry
	Log   logging.Logger
	Now   func() time.Time
	NewID func() string
}

// DefaultService keeps the ledger in a local CSV file and mirrors a
// condensed form to the remote sheet. Writes land in the local file
// first with a best-effort remote append; reads prefer the remote
// sheet so entries appended by other processes show up, falling back
// to the local file when the sheet is unreachable or empty.
type DefaultService struct {
	store sheets.Store
	local *localstore.Store
	cache *cache.Value[[]Entry]
	log   logging.Logger
	now   func() time.Time
	newID func() string
}

func NewService(opts Options) *DefaultService {
	c := cache.NewValue[[]Entry](opts.TTL)
	if opts.Reg != nil {
		opts.Reg.Register(c)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &DefaultService{
		store: opts.Store,
		local: opts.Local,
		cache: c,
		log:   opts.Log,
		now:   now,
		newID: newID,
	}
}

// Append stamps the entry and adds it to the ledger. The remote mirror
// is appended after the local write; a remote failure is logged and the
// call still succeeds.
func (s *DefaultService) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.TS == "" {
		e.TS = s.now().UTC().Format(time.RFC3339)
	}

	entries, err := s.loadLocal()
	if err != nil && !apperr.IsNotFound(err) {
		return Entry{}, err
	}
	entries = append(entries, e)
	if err := s.saveLocal(entries); err != nil {
		return Entry{}, err
	}
	s.cache.Invalidate()

	if err := s.appendRemote(ctx, e); err != nil {
		s.log.Warn(ctx, "history: remote append failed", "error", err)
	}
	return e, nil
}

// List returns all entries newest first. The remote sheet is read
// first; the local file serves reads while it is down. Remote rows
// carry the condensed shape only, so their status columns and entry
// ids come back empty.
func (s *DefaultService) List(ctx context.Context) ([]Entry, error) {
	if entries, ok := s.cache.Get(); ok {
		return entries, nil
	}

	entries, err := s.loadRemote(ctx)
	if err != nil || len(entries) == 0 {
		if err != nil {
			s.log.Warn(ctx, "history: remote read failed, using local file", "error", err)
		}
		entries, err = s.loadLocal()
		if err != nil {
			if !apperr.IsNotFound(err) {
				return nil, err
			}
			entries = nil
		}
	}
	sortNewestFirst(entries)
	s.cache.Put(entries)
	return entries, nil
}

func (s *DefaultService) ForClient(ctx context.Context, clientID string) ([]Entry, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.ClientID == clientID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Wipe clears the whole ledger, locally and remotely.
func (s *DefaultService) Wipe(ctx context.Context) error {
	if err := s.saveLocal(nil); err != nil {
		return err
	}
	s.cache.Invalidate()

	sheet, err := s.store.Sheet(ctx, sheetName)
	if err != nil {
		s.log.Warn(ctx, "history: remote wipe skipped", "error", err)
		return nil
	}
	if err := sheet.Clear(ctx); err != nil {
		s.log.Warn(ctx, "history: remote wipe failed", "error", err)
	}
	return nil
}

// PurgeClient drops the entries of one client. Used when a client is
// deleted together with its trail.
func (s *DefaultService) PurgeClient(ctx context.Context, clientID string) error {
	entries, err := s.loadLocal()
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ClientID != clientID {
			kept = append(kept, e)
		}
	}
	if err := s.saveLocal(kept); err != nil {
		return err
	}
	s.cache.Invalidate()

	sheet, err := s.store.Sheet(ctx, sheetName)
	if err != nil {
		s.log.Warn(ctx, "history: remote purge skipped", "client_id", clientID, "error", err)
		return nil
	}
	if _, err := sheet.DeleteRowsWhere(ctx, sheetClientIDCol, clientID); err != nil {
		s.log.Warn(ctx, "history: remote purge failed", "client_id", clientID, "error", err)
	}
	return nil
}

func (s *DefaultService) loadRemote(ctx context.Context) ([]Entry, error) {
	sheet, err := s.store.Sheet(ctx, sheetName)
	if err != nil {
		return nil, err
	}
	rows, err := sheet.Rows(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, entryFromSheet(row))
	}
	return entries, nil
}

func (s *DefaultService) loadLocal() ([]Entry, error) {
	header, rows, err := s.local.LoadCSV(localFile)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, entryFromCSV(header, row))
	}
	return entries, nil
}

func (s *DefaultService) saveLocal(entries []Entry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, e.csvRow())
	}
	return s.local.SaveCSV(localFile, csvColumns, rows)
}

func (s *DefaultService) appendRemote(ctx context.Context, e Entry) error {
	sheet, err := s.store.Sheet(ctx, sheetName)
	if err != nil {
		return err
	}
	if err := sheet.EnsureHeader(ctx, sheetColumns); err != nil {
		return err
	}
	return sheet.Append(ctx, [][]string{e.sheetRow()})
}

// sortNewestFirst orders by timestamp descending. Timestamps have
// second resolution, so entries sharing one keep their append order
// reversed, latest append first.
func sortNewestFirst(entries []Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ti, iok := parseTS(entries[i].TS)
		tj, jok := parseTS(entries[j].TS)
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
}
