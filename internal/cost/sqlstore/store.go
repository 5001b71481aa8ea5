package sqlstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/frahmantamala/cost-tracker/internal"
	costDatamodel "github.com/frahmantamala/cost-tracker/internal/core/datamodel/cost"
	"github.com/frahmantamala/cost-tracker/internal/cost"
	"gorm.io/gorm"
)

// Store is the gorm-backed cost.Store. Each call runs as its own statement
// bounded by the configured request timeout.
type Store struct {
	db      *gorm.DB
	timeout time.Duration

	closeOnce sync.Once
	onClose   func()
}

var _ cost.Store = (*Store)(nil)

// NewStore wraps an already migrated database.
func NewStore(db *gorm.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

func (s *Store) Insert(ctx context.Context, c cost.Cost) (int64, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := cost.ToDataModel(c)
	row.ID = 0
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, internal.NewWriteError("failed to insert cost", err)
	}
	return row.ID, nil
}

func (s *Store) ListAll(ctx context.Context) ([]cost.Cost, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []*costDatamodel.Cost
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, internal.NewReadError("failed to list costs", err)
	}
	return cost.FromDataModelSlice(rows), nil
}

// Update writes every column, so zero values such as an unstarred flag or an empty description are stored too.
func (s *Store) Update(ctx context.Context, c cost.Cost) error {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := cost.ToDataModel(c)
	result := s.db.WithContext(ctx).
		Model(&costDatamodel.Cost{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"date":        row.Date,
			"item":        row.Item,
			"sum":         row.Sum,
			"category":    row.Category,
			"description": row.Description,
			"starred":     row.Starred,
		})
	if result.Error != nil {
		return internal.NewWriteError("failed to update cost", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.NewWriteError(fmt.Sprintf("failed to update cost %d", c.ID), internal.ErrCostNotFound)
	}
	return nil
}

func (s *Store) DeleteByKey(ctx context.Context, id int64) error {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&costDatamodel.Cost{})
	if result.Error != nil {
		return internal.NewWriteError("failed to delete cost", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.NewWriteError(fmt.Sprintf("failed to delete cost %d", id), internal.ErrCostNotFound)
	}
	return nil
}

// DeleteAll empties the collection. Used by the seeder.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&costDatamodel.Cost{})
	if result.Error != nil {
		return 0, internal.NewWriteError("failed to clear costs", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool. The opener forgets the handle so the next Open starts afresh.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
		sqlDB, dbErr := s.db.DB()
		if dbErr != nil {
			err = dbErr
			return
		}
		err = sqlDB.Close()
	})
	return err
}
