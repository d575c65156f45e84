package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/turulko-oleksandr/cinema-api/internal/models"
)

// LookupRepository manages one of the catalog's named lookup tables.
type LookupRepository interface {
	List(ctx context.Context, offset, limit int) ([]models.Lookup, int64, error)
	GetByID(ctx context.Context, id string) (*models.Lookup, error)
	Create(ctx context.Context, entry *models.Lookup) error
	Rename(ctx context.Context, id, name string) (*models.Lookup, error)
	Delete(ctx context.Context, id string) error
}

// GORMLookupRepository is a GORM implementation of LookupRepository.
type GORMLookupRepository struct {
	db    *gorm.DB
	table string
	// detach drops every movie reference to the entry before it is deleted.
	detach func(tx *gorm.DB, id string) error
}

func joinTableDetach(joinTable, column string) func(*gorm.DB, string) error {
	return func(tx *gorm.DB, id string) error {
		return tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", joinTable, column), id).Error
	}
}

func NewGORMGenreRepository(db *gorm.DB) *GORMLookupRepository {
	return &GORMLookupRepository{db: db, table: "genres", detach: joinTableDetach("movie_genres", "genre_id")}
}

func NewGORMDirectorRepository(db *gorm.DB) *GORMLookupRepository {
	return &GORMLookupRepository{db: db, table: "directors", detach: joinTableDetach("movie_directors", "director_id")}
}

func NewGORMStarRepository(db *gorm.DB) *GORMLookupRepository {
	return &GORMLookupRepository{db: db, table: "stars", detach: joinTableDetach("movie_stars", "star_id")}
}

// NewGORMCertificationRepository manages certifications. Deleting one leaves
// its movies without a certification.
func NewGORMCertificationRepository(db *gorm.DB) *GORMLookupRepository {
	return &GORMLookupRepository{db: db, table: "certifications", detach: func(tx *gorm.DB, id string) error {
		return tx.Model(&models.Movie{}).Where("certification_id = ?", id).Update("certification_id", nil).Error
	}}
}

// List returns one page of entries ordered by name and the total count.
func (r *GORMLookupRepository) List(ctx context.Context, offset, limit int) ([]models.Lookup, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Table(r.table).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", r.table, err)
	}
	var entries []models.Lookup
	err := r.db.WithContext(ctx).Table(r.table).
		Order("name ASC").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", r.table, err)
	}
	return entries, total, nil
}

func (r *GORMLookupRepository) GetByID(ctx context.Context, id string) (*models.Lookup, error) {
	var entry models.Lookup
	if err := r.db.WithContext(ctx).Table(r.table).First(&entry, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", r.table, id, translate(err))
	}
	return &entry, nil
}

// Create inserts an entry. ErrDuplicate means the name is taken.
func (r *GORMLookupRepository) Create(ctx context.Context, entry *models.Lookup) error {
	if err := r.db.WithContext(ctx).Table(r.table).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create %s entry: %w", r.table, translate(err))
	}
	return nil
}

// Rename changes the name of an entry and returns the updated row.
func (r *GORMLookupRepository) Rename(ctx context.Context, id, name string) (*models.Lookup, error) {
	res := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to rename %s %s: %w", r.table, id, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%s %s: %w", r.table, id, ErrNotFound)
	}
	return &models.Lookup{ID: id, Name: name}, nil
}

// Delete removes an entry together with the movie references to it.
func (r *GORMLookupRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.detach(tx, id); err != nil {
			return fmt.Errorf("failed to detach %s %s: %w", r.table, id, err)
		}
		res := tx.Table(r.table).Where("id = ?", id).Delete(&models.Lookup{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete %s %s: %w", r.table, id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%s %s: %w", r.table, id, ErrNotFound)
		}
		return nil
	})
}
