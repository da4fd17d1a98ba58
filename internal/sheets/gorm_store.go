package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"crm-backend/internal/apperr"
	"crm-backend/internal/cache"

	"gorm.io/gorm"
)

// Row is the storage model: one sheet row as a JSON-encoded cell list.
// RowNum 0 is the header.
type Row struct {
	ID     uint   `gorm:"primaryKey"`
	Sheet  string `gorm:"size:128;uniqueIndex:idx_sheet_row,priority:1"`
	RowNum int    `gorm:"uniqueIndex:idx_sheet_row,priority:2"`
	Cells  string
}

// GormStore implements Store on a SQL database through gorm. Sheet handles
// are cached per name with a fixed expiry.
type GormStore struct {
	db      *gorm.DB
	handles *cache.Keyed[Sheet]
}

// NewGormStore wraps db. The handle cache expiry follows the sheets TTL.
func NewGormStore(db *gorm.DB, handleTTL time.Duration, reg *cache.Registry) *GormStore {
	handles := cache.NewKeyed[Sheet](handleTTL)
	if reg != nil {
		reg.Register(handles)
	}
	return &GormStore{db: db, handles: handles}
}

// Migrate creates the backing table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Row{})
}

func (s *GormStore) Sheet(ctx context.Context, name string) (Sheet, error) {
	if h, ok := s.handles.Get(name); ok {
		return h, nil
	}
	// Touch the store once so connectivity problems surface at open time.
	var n int64
	if err := s.db.WithContext(ctx).Model(&Row{}).Where("sheet = ?", name).Count(&n).Error; err != nil {
		return nil, apperr.RemoteUnavailable(err)
	}
	h := &gormSheet{db: s.db, name: name}
	s.handles.Put(name, h)
	return h, nil
}

type gormSheet struct {
	db   *gorm.DB
	name string
}

func (g *gormSheet) Name() string { return g.name }

func (g *gormSheet) Header(ctx context.Context) ([]string, error) {
	var row Row
	err := g.db.WithContext(ctx).
		Where("sheet = ? AND row_num = 0", g.name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.RemoteUnavailable(err)
	}
	return decodeCells(row.Cells)
}

func (g *gormSheet) EnsureHeader(ctx context.Context, header []string) error {
	existing, err := g.Header(ctx)
	if err != nil {
		return err
	}
	if equalCells(existing, header) {
		return nil
	}
	cells, err := encodeCells(header)
	if err != nil {
		return err
	}
	err = g.db.WithContext(ctx).
		Where("sheet = ? AND row_num = 0", g.name).
		Assign(Row{Cells: cells}).
		FirstOrCreate(&Row{Sheet: g.name, RowNum: 0, Cells: cells}).Error
	if err != nil {
		return apperr.RemoteUnavailable(err)
	}
	return nil
}

func (g *gormSheet) Rows(ctx context.Context) ([][]string, error) {
	var rows []Row
	err := g.db.WithContext(ctx).
		Where("sheet = ? AND row_num > 0", g.name).
		Order("row_num").Find(&rows).Error
	if err != nil {
		return nil, apperr.RemoteUnavailable(err)
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells, err := decodeCells(r.Cells)
		if err != nil {
			return nil, err
		}
		out = append(out, cells)
	}
	return out, nil
}

func (g *gormSheet) ReplaceAll(ctx context.Context, header []string, rows [][]string) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sheet = ?", g.name).Delete(&Row{}).Error; err != nil {
			return err
		}
		records := make([]Row, 0, len(rows)+1)
		if len(header) > 0 {
			cells, err := encodeCells(header)
			if err != nil {
				return err
			}
			records = append(records, Row{Sheet: g.name, RowNum: 0, Cells: cells})
		}
		for i, r := range rows {
			cells, err := encodeCells(r)
			if err != nil {
				return err
			}
			records = append(records, Row{Sheet: g.name, RowNum: i + 1, Cells: cells})
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 200).Error
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperr.RemoteUnavailable(err)
	}
	return nil
}

func (g *gormSheet) Append(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := g.nextRowNum(tx)
		if err != nil {
			return err
		}
		records := make([]Row, 0, len(rows))
		for i, r := range rows {
			cells, err := encodeCells(r)
			if err != nil {
				return err
			}
			records = append(records, Row{Sheet: g.name, RowNum: next + i, Cells: cells})
		}
		return tx.CreateInBatches(records, 200).Error
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperr.RemoteUnavailable(err)
	}
	return nil
}

func (g *gormSheet) UpdateRow(ctx context.Context, index int, cells []string) error {
	encoded, err := encodeCells(cells)
	if err != nil {
		return err
	}
	res := g.db.WithContext(ctx).Model(&Row{}).
		Where("sheet = ? AND row_num = ?", g.name, index+1).
		Update("cells", encoded)
	if res.Error != nil {
		return apperr.RemoteUnavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(nil).WithMessage("Sheet row not found")
	}
	return nil
}

func (g *gormSheet) DeleteRowsWhere(ctx context.Context, col int, value string) (int, error) {
	header, err := g.Header(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := g.Rows(ctx)
	if err != nil {
		return 0, err
	}
	kept := make([][]string, 0, len(rows))
	removed := 0
	for _, r := range rows {
		if col < len(r) && r[col] == value {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := g.ReplaceAll(ctx, header, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func (g *gormSheet) Clear(ctx context.Context) error {
	err := g.db.WithContext(ctx).Where("sheet = ?", g.name).Delete(&Row{}).Error
	if err != nil {
		return apperr.RemoteUnavailable(err)
	}
	return nil
}

func (g *gormSheet) nextRowNum(tx *gorm.DB) (int, error) {
	var maxRow *int
	err := tx.Model(&Row{}).
		Where("sheet = ?", g.name).
		Select("MAX(row_num)").Scan(&maxRow).Error
	if err != nil {
		return 0, err
	}
	if maxRow == nil {
		return 1, nil
	}
	return *maxRow + 1, nil
}

func encodeCells(cells []string) (string, error) {
	b, err := json.Marshal(cells)
	if err != nil {
		return "", apperr.MalformedData(err)
	}
	return string(b), nil
}

func decodeCells(s string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(s), &cells); err != nil {
		return nil, apperr.MalformedData(err)
	}
	return cells, nil
}

func equalCells(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
