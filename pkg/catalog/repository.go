package catalog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Record{})
}

func (r *Repository) List(ctx context.Context, f Filter) ([]Record, error) {
	q := r.db.WithContext(ctx).Model(&Record{})
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	} else {
		if f.Status != "" {
			q = q.Where("status = ?", string(f.Status))
		}
		if f.Published != nil {
			q = q.Where("is_published = ?", *f.Published)
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > MaxListSize {
		limit = MaxListSize
	}

	var recs []Record
	if err := q.Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	for i := range recs {
		recs[i].Metadata = MigrateMetadata(recs[i].Metadata)
	}
	return recs, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	result := r.db.WithContext(ctx).First(&rec, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	rec.Metadata = MigrateMetadata(rec.Metadata)
	return &rec, nil
}

func (r *Repository) Patch(ctx context.Context, id string, fields map[string]interface{}) error {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&Record{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Upsert(ctx context.Context, rec *Record) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(rec).Error
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&Record{}).Error
}
