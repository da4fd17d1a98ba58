package client

import (
	"context"
	"strings"

	"crm-backend/internal/apperr"
	"crm-backend/internal/catalog"
	"crm-backend/internal/document"
	"crm-backend/internal/history"
	"crm-backend/internal/logging"
	"crm-backend/internal/search"
)

// Filter narrows the client list. Empty fields match everything; Query
// is free-text search over id, name, phone, email and advisor.
type Filter struct {
	Branch          string
	Advisor         string
	Status          string
	SecondaryStatus string
	Source          string
	Query           string
}

// ImportMode selects how imported rows merge into the registry.
type ImportMode string

const (
	// ImportAddOnly adds rows whose name+phone pair is not present yet.
	ImportAddOnly ImportMode = "add-only-new"
	// ImportUpdateByID updates rows matched by id, adds the rest.
	ImportUpdateByID ImportMode = "update-by-id"
	// ImportUpsert matches by name+phone, updating hits and adding misses.
	ImportUpsert ImportMode = "upsert-by-name-phone"
)

// ImportResult summarizes one import run.
type ImportResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Service is the client registry's business surface.
type Service interface {
	List(ctx context.Context, f Filter) ([]Client, error)
	Get(ctx context.Context, id string) (Client, error)
	Create(ctx context.Context, c Client, actor string) (Client, error)
	Update(ctx context.Context, id string, c Client, actor string) (Client, error)
	ChangeStatus(ctx context.Context, id, status, secondary, note, actor string) (Client, error)
	Delete(ctx context.Context, id string, purgeHistory bool, actor string) error
	Import(ctx context.Context, header []string, rows [][]string, mapping map[string]string, mode ImportMode, actor string) (ImportResult, error)
	Advisors(ctx context.Context) ([]string, error)
	Ref(ctx context.Context, id string) (document.Ref, error)
}

// DefaultService implements Service over the repository, repairing
// identifiers on every load.
type DefaultService struct {
	repo     Repository
	ledger   history.Service
	docs     *document.Service
	catalogs catalog.Service
	searcher search.Searcher
	log      logging.Logger
}

type ServiceOptions struct {
	Repo     Repository
	Ledger   history.Service
	Docs     *document.Service
	Catalogs catalog.Service
	Searcher search.Searcher
	Log      logging.Logger
}

func NewService(opts ServiceOptions) *DefaultService {
	return &DefaultService{
		repo:     opts.Repo,
		ledger:   opts.Ledger,
		docs:     opts.Docs,
		catalogs: opts.Catalogs,
		searcher: opts.Searcher,
		log:      opts.Log,
	}
}

// load returns the table with identifiers repaired; a repair that
// changed anything is persisted immediately.
func (s *DefaultService) load(ctx context.Context) ([]Client, error) {
	clients, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	repaired, changed := RepairIDs(clients)
	if changed {
		if err := s.repo.Save(ctx, repaired); err != nil {
			return nil, err
		}
	}
	return repaired, nil
}

func (s *DefaultService) List(ctx context.Context, f Filter) ([]Client, error) {
	clients, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	clients = applyFieldFilters(clients, f)
	SortByDates(clients)
	if strings.TrimSpace(f.Query) != "" {
		clients = s.searchClients(clients, f.Query)
	}
	return clients, nil
}

func (s *DefaultService) Get(ctx context.Context, id string) (Client, error) {
	clients, err := s.load(ctx)
	if err != nil {
		return Client{}, err
	}
	for _, c := range clients {
		if c.ID == id {
			return c, nil
		}
	}
	return Client{}, apperr.NotFound(nil).WithMessage("Client not found")
}

// Ref resolves the document-folder reference for a client.
func (s *DefaultService) Ref(ctx context.Context, id string) (document.Ref, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return document.Ref{}, err
	}
	return document.Ref{ID: c.ID, Name: c.Name}, nil
}

func (s *DefaultService) Create(ctx context.Context, c Client, actor string) (Client, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Client{}, apperr.InvalidInput(nil).WithMessage("Client name is required")
	}
	clients, err := s.load(ctx)
	if err != nil {
		return Client{}, err
	}

	c = s.canonicalize(ctx, c, clients)
	if strings.TrimSpace(c.ID) == "" {
		c.ID = NextID(clients)
	} else if idInTable(clients, c.ID) {
		return Client{}, apperr.Conflict(nil).WithMessage("Client id already exists")
	}

	clients = append(clients, c)
	if err := s.repo.Save(ctx, clients); err != nil {
		return Client{}, err
	}
	s.record(ctx, history.Entry{
		ClientID:  c.ID,
		Name:      c.Name,
		StatusNew: c.Status,
		Action:    history.ActionCreated,
		Actor:     actor,
		Detail:    "created",
	})
	return c, nil
}

func (s *DefaultService) Update(ctx context.Context, id string, in Client, actor string) (Client, error) {
	clients, err := s.load(ctx)
	if err != nil {
		return Client{}, err
	}
	idx := indexOf(clients, id)
	if idx < 0 {
		return Client{}, apperr.NotFound(nil).WithMessage("Client not found")
	}

	prev := clients[idx]
	in.ID = prev.ID
	if strings.TrimSpace(in.Name) == "" {
		in.Name = prev.Name
	}
	in = s.canonicalize(ctx, in, clients)
	if in == prev {
		return prev, nil
	}
	clients[idx] = in
	if err := s.repo.Save(ctx, clients); err != nil {
		return Client{}, err
	}

	entry := history.Entry{
		ClientID: in.ID,
		Name:     in.Name,
		Action:   history.ActionUpdated,
		Actor:    actor,
		Detail:   "updated",
	}
	if prev.Status != in.Status || prev.SecondaryStatus != in.SecondaryStatus {
		entry.Action = history.ActionStatusChanged
		entry.StatusOld = prev.Status
		entry.StatusNew = in.Status
		entry.SecondaryOld = prev.SecondaryStatus
		entry.SecondaryNew = in.SecondaryStatus
		entry.Detail = "status changed"
	}
	s.record(ctx, entry)
	return in, nil
}

func (s *DefaultService) ChangeStatus(ctx context.Context, id, status, secondary, note, actor string) (Client, error) {
	clients, err := s.load(ctx)
	if err != nil {
		return Client{}, err
	}
	idx := indexOf(clients, id)
	if idx < 0 {
		return Client{}, apperr.NotFound(nil).WithMessage("Client not found")
	}

	prev := clients[idx]
	c := prev
	c.Status = s.catalogs.Canonicalize(ctx, catalog.Statuses, status)
	if secondary != "" {
		c.SecondaryStatus = s.catalogs.Canonicalize(ctx, catalog.SecondaryStatuses, secondary)
	}
	if note != "" {
		c.Notes = note
	}
	if c == prev {
		return prev, nil
	}
	clients[idx] = c
	if err := s.repo.Save(ctx, clients); err != nil {
		return Client{}, err
	}
	s.record(ctx, history.Entry{
		ClientID:     c.ID,
		Name:         c.Name,
		StatusOld:    prev.Status,
		StatusNew:    c.Status,
		SecondaryOld: prev.SecondaryStatus,
		SecondaryNew: c.SecondaryStatus,
		Detail:       note,
		Action:       history.ActionStatusChanged,
		Actor:        actor,
	})
	return c, nil
}

// Delete removes the client locally and remotely, drops its document
// folder and optionally purges its ledger rows.
func (s *DefaultService) Delete(ctx context.Context, id string, purgeHistory bool, actor string) error {
	clients, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(clients, id)
	if idx < 0 {
		return apperr.NotFound(nil).WithMessage("Client not found")
	}
	victim := clients[idx]

	clients = append(clients[:idx], clients[idx+1:]...)
	if err := s.repo.Save(ctx, clients); err != nil {
		return err
	}
	if err := s.repo.DeleteRemote(ctx, id); err != nil {
		s.log.Warn(ctx, "clients: remote delete failed", "id", id, "error", err)
	}
	if s.docs != nil {
		ref := document.Ref{ID: victim.ID, Name: victim.Name}
		if err := s.docs.DeleteAll(ctx, ref); err != nil {
			s.log.Warn(ctx, "clients: document folder delete failed", "id", id, "error", err)
		}
	}

	s.record(ctx, history.Entry{
		ClientID:  victim.ID,
		Name:      victim.Name,
		StatusOld: victim.Status,
		Action:    history.ActionDeleted,
		Actor:     actor,
		Detail:    "deleted",
	})
	if purgeHistory {
		if err := s.ledger.PurgeClient(ctx, id); err != nil {
			s.log.Warn(ctx, "clients: history purge failed", "id", id, "error", err)
		}
	}
	return nil
}

// Import merges mapped CSV rows into the registry. mapping is target
// field name to source column name; unmapped fields stay empty.
func (s *DefaultService) Import(ctx context.Context, header []string, rows [][]string, mapping map[string]string, mode ImportMode, actor string) (ImportResult, error) {
	switch mode {
	case ImportAddOnly, ImportUpdateByID, ImportUpsert:
	default:
		return ImportResult{}, apperr.InvalidInput(nil).WithMessage("Unknown import mode")
	}

	clients, err := s.load(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	byID := make(map[string]int, len(clients))
	byNamePhone := make(map[string]int, len(clients))
	for i, c := range clients {
		if c.ID != "" {
			byID[c.ID] = i
		}
		byNamePhone[namePhoneKey(c)] = i
	}

	var res ImportResult
	for _, row := range rows {
		in := mapRow(header, row, mapping)
		if strings.TrimSpace(in.Name) == "" && strings.TrimSpace(in.ID) == "" {
			res.Skipped++
			continue
		}
		in = s.canonicalize(ctx, in, clients)

		switch mode {
		case ImportAddOnly:
			if _, dup := byNamePhone[namePhoneKey(in)]; dup {
				res.Skipped++
				continue
			}
			var stored Client
			clients, stored = addImported(clients, in, byID, byNamePhone)
			res.Added++
			s.recordImport(ctx, stored, actor, "import - created")
		case ImportUpdateByID:
			if idx, ok := byID[in.ID]; ok && in.ID != "" {
				merged := mergeImported(clients[idx], in)
				if merged != clients[idx] {
					clients[idx] = merged
					res.Updated++
					s.recordImport(ctx, merged, actor, "import - updated")
				} else {
					res.Skipped++
				}
				continue
			}
			var stored Client
			clients, stored = addImported(clients, in, byID, byNamePhone)
			res.Added++
			s.recordImport(ctx, stored, actor, "import - created")
		case ImportUpsert:
			if idx, ok := byNamePhone[namePhoneKey(in)]; ok {
				merged := mergeImported(clients[idx], in)
				if merged != clients[idx] {
					clients[idx] = merged
					res.Updated++
					s.recordImport(ctx, merged, actor, "import - updated")
				} else {
					res.Skipped++
				}
				continue
			}
			var stored Client
			clients, stored = addImported(clients, in, byID, byNamePhone)
			res.Added++
			s.recordImport(ctx, stored, actor, "import - created")
		}
	}

	clients, _ = RepairIDs(clients)
	if err := s.repo.Save(ctx, clients); err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

// Advisors lists the distinct advisor names present in the registry.
func (s *DefaultService) Advisors(ctx context.Context) ([]string, error) {
	clients, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, c := range clients {
		a := strings.TrimSpace(c.Advisor)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}

// canonicalize maps catalog-backed fields onto their registered forms
// and the advisor onto an already-known advisor spelling.
func (s *DefaultService) canonicalize(ctx context.Context, c Client, clients []Client) Client {
	if c.Status != "" {
		c.Status = s.catalogs.Canonicalize(ctx, catalog.Statuses, c.Status)
	}
	if c.Branch != "" {
		c.Branch = s.catalogs.Canonicalize(ctx, catalog.Branches, c.Branch)
	}
	if c.SecondaryStatus != "" {
		c.SecondaryStatus = s.catalogs.Canonicalize(ctx, catalog.SecondaryStatuses, c.SecondaryStatus)
	}
	if c.Advisor != "" {
		registered := make([]string, 0, len(clients))
		for _, existing := range clients {
			registered = append(registered, existing.Advisor)
		}
		c.Advisor = catalog.CanonicalAdvisor(c.Advisor, registered)
	}
	return c
}

// searchClients ranks the already-filtered clients against the query,
// keeping only matches.
func (s *DefaultService) searchClients(clients []Client, query string) []Client {
	rendered := make([]string, len(clients))
	byText := make(map[string][]int, len(clients))
	for i, c := range clients {
		text := strings.Join([]string{c.ID, c.Name, c.Phone, c.Email, c.Advisor}, " ")
		rendered[i] = text
		byText[text] = append(byText[text], i)
	}
	idx := search.BuildIndex(rendered)
	ranked := s.searcher.Search(query, idx, 0)

	out := make([]Client, 0, len(ranked))
	for _, text := range ranked {
		bucket := byText[text]
		if len(bucket) == 0 {
			continue
		}
		out = append(out, clients[bucket[0]])
		byText[text] = bucket[1:]
	}
	return out
}

func (s *DefaultService) record(ctx context.Context, e history.Entry) {
	if _, err := s.ledger.Append(ctx, e); err != nil {
		s.log.Warn(ctx, "clients: ledger entry failed", "action", e.Action, "error", err)
	}
}

func (s *DefaultService) recordImport(ctx context.Context, c Client, actor, detail string) {
	s.record(ctx, history.Entry{
		ClientID:  c.ID,
		Name:      c.Name,
		StatusNew: c.Status,
		Action:    history.ActionImported,
		Actor:     actor,
		Detail:    detail,
	})
}

func applyFieldFilters(clients []Client, f Filter) []Client {
	match := func(c Client) bool {
		if f.Branch != "" && c.Branch != f.Branch {
			return false
		}
		if f.Advisor != "" && c.Advisor != f.Advisor {
			return false
		}
		if f.Status != "" && c.Status != f.Status {
			return false
		}
		if f.SecondaryStatus != "" && c.SecondaryStatus != f.SecondaryStatus {
			return false
		}
		if f.Source != "" && c.Source != f.Source {
			return false
		}
		return true
	}
	out := make([]Client, 0, len(clients))
	for _, c := range clients {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}

func indexOf(clients []Client, id string) int {
	for i, c := range clients {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func namePhoneKey(c Client) string {
	return strings.ToLower(strings.TrimSpace(c.Name)) + "|" + strings.TrimSpace(c.Phone)
}

func mapRow(header, row []string, mapping map[string]string) Client {
	remapped := make([]string, len(Columns))
	for i, field := range Columns {
		src, ok := mapping[field]
		if !ok {
			src = field
		}
		for j, h := range header {
			if h == src && j < len(row) {
				remapped[i] = strings.TrimSpace(row[j])
				break
			}
		}
	}
	return FromRow(Columns, remapped)
}

// mergeImported overlays non-empty imported fields on the existing
// record; empty cells never erase data.
func mergeImported(existing, in Client) Client {
	merge := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	out := existing
	merge(&out.Name, in.Name)
	merge(&out.Branch, in.Branch)
	merge(&out.Advisor, in.Advisor)
	merge(&out.IntakeDate, in.IntakeDate)
	merge(&out.DisbursedDate, in.DisbursedDate)
	merge(&out.Status, in.Status)
	merge(&out.ProposedAmount, in.ProposedAmount)
	merge(&out.FinalAmount, in.FinalAmount)
	merge(&out.SecondaryStatus, in.SecondaryStatus)
	merge(&out.Notes, in.Notes)
	merge(&out.Score, in.Score)
	merge(&out.Phone, in.Phone)
	merge(&out.Email, in.Email)
	merge(&out.Analyst, in.Analyst)
	merge(&out.Source, in.Source)
	return out
}

func addImported(clients []Client, in Client, byID, byNamePhone map[string]int) ([]Client, Client) {
	if strings.TrimSpace(in.ID) == "" || idInTable(clients, in.ID) {
		in.ID = NextID(clients)
	}
	clients = append(clients, in)
	i := len(clients) - 1
	byID[in.ID] = i
	byNamePhone[namePhoneKey(in)] = i
	return clients, in
}
