package catalog

import (
	"context"

	"crm-backend/internal/apperr"
	"crm-backend/internal/cache"
	"crm-backend/internal/fuzzy"
	"crm-backend/internal/localstore"
	"crm-backend/internal/logging"
	"crm-backend/internal/search"
	"crm-backend/internal/sheets"
)

// Service defines catalog business logic.
type Service interface {
	Load(ctx context.Context, name string) ([]string, error)
	Save(ctx context.Context, name string, values []string) ([]string, error)
	Canonicalize(ctx context.Context, name, raw string) string
	Search(ctx context.Context, name, query string, limit int) ([]string, error)
}

// DefaultService implements Service. Load order is remote sheet (through
// the catalogs cache) → local JSON file → hardcoded defaults; saves write
// the local file first and push the sheet best-effort.
type DefaultService struct {
	store  sheets.Store
	local  *localstore.Store
	caches *cache.Keyed[[]string]
	canon  fuzzy.Canonicalizer
	search search.Searcher
	log    logging.Logger
}

type Options struct {
	Store    sheets.Store
	Local    *localstore.Store
	Caches   *cache.Keyed[[]string]
	Canon    fuzzy.Canonicalizer
	Searcher search.Searcher
	Log      logging.Logger
}

func NewService(opts Options) *DefaultService {
	return &DefaultService{
		store:  opts.Store,
		local:  opts.Local,
		caches: opts.Caches,
		canon:  opts.Canon,
		search: opts.Searcher,
		log:    opts.Log,
	}
}

var sheetHeader = []string{"value"}

// Load returns the catalog values. The cache absorbs UI re-reads; a remote
// miss falls back to the local file, then to the defaults (recreating the
// local file and best-effort pushing the defaults to the sheet).
func (s *DefaultService) Load(ctx context.Context, name string) ([]string, error) {
	def, ok := definitions[name]
	if !ok {
		return nil, apperr.NotFound(nil).WithMessage("Unknown catalog")
	}

	if vals, ok := s.caches.Get(name); ok {
		return vals, nil
	}

	if vals, err := s.loadSheet(ctx, def); err == nil && len(vals) > 0 {
		s.caches.Put(name, vals)
		if err := s.local.SaveJSON(def.file, vals); err != nil {
			s.log.Warn(ctx, "catalog local mirror write failed", "catalog", name, "err", err)
		}
		return vals, nil
	} else if err != nil {
		s.log.Warn(ctx, "catalog remote load failed, falling back", "catalog", name, "kind", string(apperr.KindOf(err)))
	}

	var vals []string
	if err := s.local.LoadJSON(def.file, &vals); err == nil {
		vals = clean(vals, def.keepEmpty)
		if len(vals) > 0 {
			s.caches.Put(name, vals)
			return vals, nil
		}
	}

	// Everything failed: recreate from defaults.
	defaults := append([]string(nil), def.defaults...)
	if err := s.local.SaveJSON(def.file, defaults); err != nil {
		s.log.Warn(ctx, "catalog defaults write failed", "catalog", name, "err", err)
	}
	if err := s.pushSheet(ctx, def, defaults); err != nil {
		s.log.Warn(ctx, "catalog defaults push failed", "catalog", name, "kind", string(apperr.KindOf(err)))
	}
	s.caches.Put(name, defaults)
	return defaults, nil
}

// Save de-duplicates, writes the local file, invalidates the cache and
// pushes the whole list to the sheet. A remote failure does not fail the
// save; the local value stays current.
func (s *DefaultService) Save(ctx context.Context, name string, values []string) ([]string, error) {
	def, ok := definitions[name]
	if !ok {
		return nil, apperr.NotFound(nil).WithMessage("Unknown catalog")
	}

	cleaned := clean(values, def.keepEmpty)
	if err := s.local.SaveJSON(def.file, cleaned); err != nil {
		return nil, err
	}
	s.caches.Invalidate(name)
	if err := s.pushSheet(ctx, def, cleaned); err != nil {
		s.log.Warn(ctx, "catalog remote push failed, keeping local value", "catalog", name, "kind", string(apperr.KindOf(err)))
	}
	s.caches.Put(name, cleaned)
	return cleaned, nil
}

// Canonicalize maps raw onto the closest accepted value of the catalog.
// Pure lookup on the loaded list; load failures degrade to returning raw.
func (s *DefaultService) Canonicalize(ctx context.Context, name, raw string) string {
	vals, err := s.Load(ctx, name)
	if err != nil {
		return raw
	}
	def := definitions[name]
	return s.canon.Canonicalize(raw, vals, def.synonyms)
}

// Search runs the typo-tolerant option search over the catalog.
func (s *DefaultService) Search(ctx context.Context, name, query string, limit int) ([]string, error) {
	vals, err := s.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	idx := search.BuildIndex(vals)
	return s.search.Search(query, idx, limit), nil
}

func (s *DefaultService) loadSheet(ctx context.Context, def definition) ([]string, error) {
	sh, err := s.store.Sheet(ctx, def.sheetTab)
	if err != nil {
		return nil, err
	}
	rows, err := sh.Rows(ctx)
	if err != nil {
		return nil, err
	}
	vals := make([]string, 0, len(rows))
	for _, r := range rows {
		if len(r) > 0 {
			vals = append(vals, r[0])
		}
	}
	return clean(vals, def.keepEmpty), nil
}

func (s *DefaultService) pushSheet(ctx context.Context, def definition, values []string) error {
	sh, err := s.store.Sheet(ctx, def.sheetTab)
	if err != nil {
		return err
	}
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return sh.ReplaceAll(ctx, sheetHeader, rows)
}
