package user

import (
	"context"
	"strings"
	"time"

	"crm-backend/internal/apperr"
	"crm-backend/internal/cache"
	"crm-backend/internal/localstore"
	"crm-backend/internal/logging"
	"crm-backend/internal/sheets"
)

const (
	sheetName = "users"
	localFile = "users.json"
)

var sheetColumns = []string{"username", "role", "salt", "hash"}

// Repository loads and saves the account list.
type Repository interface {
	Load(ctx context.Context) ([]User, error)
	Save(ctx context.Context, users []User) error
	Invalidate()
}

// StoreRepository reads remote-first through the long users cache with
// the local JSON file as fallback; saves write both.
type StoreRepository struct {
	store sheets.Store
	local *localstore.Store
	cache *cache.Value[[]User]
	log   logging.Logger
}

type RepositoryOptions struct {
	Store sheets.Store
	Local *localstore.Store
	TTL   time.Duration
	Reg   *cache.Registry
	Log   logging.Logger
}

func NewRepository(opts RepositoryOptions) *StoreRepository {
	c := cache.NewValue[[]User](opts.TTL)
	if opts.Reg != nil {
		opts.Reg.Register(c)
	}
	return &StoreRepository{store: opts.Store, local: opts.Local, cache: c, log: opts.Log}
}

func (r *StoreRepository) Load(ctx context.Context) ([]User, error) {
	return r.cache.GetOrLoad(func() ([]User, error) {
		users, err := r.loadRemote(ctx)
		if err == nil && len(users) > 0 {
			return users, nil
		}
		if err != nil {
			r.log.Warn(ctx, "users: remote load failed, falling back to local file", "error", err)
		}

		var local struct {
			Users []User `json:"users"`
		}
		if err := r.local.LoadJSON(localFile, &local); err != nil {
			if apperr.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return local.Users, nil
	})
}

func (r *StoreRepository) Save(ctx context.Context, users []User) error {
	payload := struct {
		Users []User `json:"users"`
	}{Users: users}
	if err := r.local.SaveJSON(localFile, payload); err != nil {
		return err
	}
	r.cache.Put(users)

	if err := r.saveRemote(ctx, users); err != nil {
		r.log.Warn(ctx, "users: remote save failed, local copy kept", "error", err)
	}
	return nil
}

func (r *StoreRepository) Invalidate() {
	r.cache.Invalidate()
}

func (r *StoreRepository) loadRemote(ctx context.Context) ([]User, error) {
	sheet, err := r.store.Sheet(ctx, sheetName)
	if err != nil {
		return nil, err
	}
	header, err := sheet.Header(ctx)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, nil
	}
	rows, err := sheet.Rows(ctx)
	if err != nil {
		return nil, err
	}
	col := func(name string, row []string) string {
		for i, h := range header {
			if h == name && i < len(row) {
				return row[i]
			}
		}
		return ""
	}
	users := make([]User, 0, len(rows))
	for _, row := range rows {
		u := User{
			Username: strings.TrimSpace(col("username", row)),
			Role:     strings.TrimSpace(col("role", row)),
			Salt:     col("salt", row),
			Hash:     col("hash", row),
		}
		if u.Username == "" || u.Salt == "" || u.Hash == "" {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *StoreRepository) saveRemote(ctx context.Context, users []User) error {
	sheet, err := r.store.Sheet(ctx, sheetName)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.Username, u.Role, u.Salt, u.Hash})
	}
	return sheet.ReplaceAll(ctx, sheetColumns, rows)
}
