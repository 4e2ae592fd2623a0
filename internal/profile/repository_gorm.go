package profile

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormRepository struct {
	db    *gorm.DB
	table string
}

// NewGORMRepository creates a profile repository over a SQL table and
// migrates the table schema.
func NewGORMRepository(db *gorm.DB, table string) (Repository, error) {
	if err := db.Table(table).AutoMigrate(&Profile{}); err != nil {
		return nil, fmt.Errorf("failed to migrate profile table %q: %w", table, err)
	}
	return &gormRepository{db: db, table: table}, nil
}

func (r *gormRepository) Put(ctx context.Context, p *Profile) error {
	return r.db.WithContext(ctx).
		Table(r.table).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(p).Error
}

func (r *gormRepository) FindAll(ctx context.Context) ([]Document, error) {
	var rows []Profile
	if err := r.db.WithContext(ctx).Table(r.table).Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(rows))
	for i := range rows {
		docs = append(docs, rows[i].ToDocument())
	}
	return docs, nil
}

func (r *gormRepository) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := r.db.WithContext(ctx).Table(r.table).Pluck("uid", &keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list profile keys: %w", err)
	}
	return keys, nil
}
