package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turulko-oleksandr/cinema-api/internal/models"
)

// MovieFilter narrows a catalog listing.
type MovieFilter struct {
	Search string
	Year   int
	Genre  string
	Offset int
	Limit  int
}

// MovieRepository defines the interface for catalog data access.
type MovieRepository interface {
	List(ctx context.Context, filter MovieFilter) ([]models.Movie, int64, error)
	GetByID(ctx context.Context, id string) (*models.Movie, error)
	Create(ctx context.Context, movie *models.Movie) error
	Update(ctx context.Context, movie *models.Movie) error
	Delete(ctx context.Context, id string) error
	GetPrice(ctx context.Context, id string) (decimal.Decimal, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// GORMMovieRepository is a GORM implementation of MovieRepository.
type GORMMovieRepository struct {
	db *gorm.DB
}

// NewGORMMovieRepository creates a new instance of GORMMovieRepository.
func NewGORMMovieRepository(db *gorm.DB) *GORMMovieRepository {
	return &GORMMovieRepository{
		db: db,
	}
}

// List returns one page of movies and the total number of matches.
func (r *GORMMovieRepository) List(ctx context.Context, filter MovieFilter) ([]models.Movie, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Movie{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(movies.name) LIKE ? OR LOWER(movies.description) LIKE ?", like, like)
	}
	if filter.Year > 0 {
		q = q.Where("movies.year = ?", filter.Year)
	}
	if filter.Genre != "" {
		q = q.Where("movies.id IN (?)", r.db.Table("movie_genres").
			Select("movie_genres.movie_id").
			Joins("JOIN genres ON genres.id = movie_genres.genre_id").
			Where("LOWER(genres.name) = ?", strings.ToLower(filter.Genre)))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count movies: %w", err)
	}

	var movies []models.Movie
	err := q.Preload("Genres").Preload("Certification").
		Order("movies.name ASC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&movies).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movies: %w", err)
	}
	return movies, total, nil
}

// GetByID retrieves a movie with all of its relations.
func (r *GORMMovieRepository) GetByID(ctx context.Context, id string) (*models.Movie, error) {
	var movie models.Movie
	err := r.db.WithContext(ctx).
		Preload("Genres").Preload("Directors").Preload("Stars").Preload("Certification").
		First(&movie, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get movie by ID %s: %w", id, translate(err))
	}
	return &movie, nil
}

// Create inserts a movie, reusing genres, directors, stars and the
// certification by name when they already exist.
func (r *GORMMovieRepository) Create(ctx context.Context, movie *models.Movie) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resolveRelations(tx, movie); err != nil {
			return err
		}
		// Related rows exist now; only the join tables need writing.
		if err := tx.Omit("Certification", "Genres.*", "Directors.*", "Stars.*").Create(movie).Error; err != nil {
			return fmt.Errorf("failed to create movie: %w", translate(err))
		}
		return nil
	})
}

// Update saves every column of the movie and replaces its genres, directors
// and stars with the ones it currently holds.
func (r *GORMMovieRepository) Update(ctx context.Context, movie *models.Movie) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resolveRelations(tx, movie); err != nil {
			return err
		}
		if movie.Certification == nil {
			movie.CertificationID = nil
		}
		if err := tx.Omit(clause.Associations).Save(movie).Error; err != nil {
			return fmt.Errorf("failed to update movie %s: %w", movie.ID, translate(err))
		}
		relations := []struct {
			name  string
			value any
			empty bool
		}{
			{"Genres", movie.Genres, len(movie.Genres) == 0},
			{"Directors", movie.Directors, len(movie.Directors) == 0},
			{"Stars", movie.Stars, len(movie.Stars) == 0},
		}
		for _, rel := range relations {
			assoc := tx.Model(movie).Association(rel.name)
			var err error
			if rel.empty {
				err = assoc.Clear()
			} else {
				err = assoc.Replace(rel.value)
			}
			if err != nil {
				return fmt.Errorf("failed to replace %s of movie %s: %w", strings.ToLower(rel.name), movie.ID, err)
			}
		}
		return nil
	})
}

// Delete removes a movie and its join rows. Movies referenced by an order
// are kept for the order history and yield ErrInUse.
func (r *GORMMovieRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var movie models.Movie
		if err := tx.Select("id").First(&movie, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to get movie by ID %s: %w", id, translate(err))
		}
		var ordered int64
		if err := tx.Model(&models.OrderItem{}).Where("movie_id = ?", id).Count(&ordered).Error; err != nil {
			return fmt.Errorf("failed to check orders of movie %s: %w", id, err)
		}
		if ordered > 0 {
			return fmt.Errorf("movie %s appears in %d order items: %w", id, ordered, ErrInUse)
		}
		if err := tx.Where("movie_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to remove movie %s from carts: %w", id, err)
		}
		if err := tx.Select("Genres", "Directors", "Stars").Delete(&movie).Error; err != nil {
			return fmt.Errorf("failed to delete movie %s: %w", id, err)
		}
		return nil
	})
}

func resolveRelations(tx *gorm.DB, movie *models.Movie) error {
	if movie.Certification != nil {
		cert := models.Certification{Name: movie.Certification.Name}
		if err := tx.Where(models.Certification{Name: cert.Name}).FirstOrCreate(&cert).Error; err != nil {
			return fmt.Errorf("failed to resolve certification %s: %w", cert.Name, err)
		}
		movie.Certification = &cert
		movie.CertificationID = &cert.ID
	}
	for i := range movie.Genres {
		if err := tx.Where(models.Genre{Name: movie.Genres[i].Name}).FirstOrCreate(&movie.Genres[i]).Error; err != nil {
			return fmt.Errorf("failed to resolve genre %s: %w", movie.Genres[i].Name, err)
		}
	}
	for i := range movie.Directors {
		if err := tx.Where(models.Director{Name: movie.Directors[i].Name}).FirstOrCreate(&movie.Directors[i]).Error; err != nil {
			return fmt.Errorf("failed to resolve director %s: %w", movie.Directors[i].Name, err)
		}
	}
	for i := range movie.Stars {
		if err := tx.Where(models.Star{Name: movie.Stars[i].Name}).FirstOrCreate(&movie.Stars[i]).Error; err != nil {
			return fmt.Errorf("failed to resolve star %s: %w", movie.Stars[i].Name, err)
		}
	}
	return nil
}

// GetPrice returns the current catalog price of a movie.
func (r *GORMMovieRepository) GetPrice(ctx context.Context, id string) (decimal.Decimal, error) {
	var movie models.Movie
	if err := r.db.WithContext(ctx).Select("id", "price").First(&movie, "id = ?", id).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to get price of movie %s: %w", id, translate(err))
	}
	return movie.Price, nil
}

func (r *GORMMovieRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Movie{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check movie %s: %w", id, err)
	}
	return count > 0, nil
}
