package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/turulko-oleksandr/cinema-api/internal/logging"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/repositories"
)

// MovieFilter selects a page of the catalog.
type MovieFilter = repositories.MovieFilter

// LookupKind names one of the catalog's lookup tables.
type LookupKind string

const (
	LookupGenres         LookupKind = "genres"
	LookupDirectors      LookupKind = "directors"
	LookupStars          LookupKind = "stars"
	LookupCertifications LookupKind = "certifications"
)

// LookupKinds lists every lookup table exposed by the catalog.
var LookupKinds = []LookupKind{LookupGenres, LookupDirectors, LookupStars, LookupCertifications}

// MovieUpdate carries the fields to change on a movie. Nil fields are kept.
// A non-nil empty slice removes every genre, director or star; an empty
// certification removes the certification.
type MovieUpdate struct {
	Name          *string
	Year          *int
	Time          *int
	IMDB          *float64
	Votes         *int
	MetaScore     *float64
	Gross         *float64
	Description   *string
	Price         *decimal.Decimal
	Certification *string
	Genres        []string
	Directors     []string
	Stars         []string
}

// MovieService handles business logic related to the catalog.
type MovieService struct {
	repos *repositories.Repositories
}

// NewMovieService creates a new MovieService.
func NewMovieService(repos *repositories.Repositories) *MovieService {
	return &MovieService{
		repos: repos,
	}
}

// ListMovies returns one page of movies and the total number of matches.
func (s *MovieService) ListMovies(ctx context.Context, filter MovieFilter) ([]models.Movie, int64, error) {
	filter.Offset, filter.Limit = clampPage(filter.Offset, filter.Limit)
	return s.repos.Movies.List(ctx, filter)
}

// GetMovie retrieves a single movie by its ID.
func (s *MovieService) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	movie, err := s.repos.Movies.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("movie %s: %w", id, ErrNotFound)
	}
	return movie, err
}

// CreateMovie adds a movie to the catalog.
func (s *MovieService) CreateMovie(ctx context.Context, movie *models.Movie) error {
	if movie.Price.IsNegative() {
		return fmt.Errorf("price must not be negative: %w", ErrInvalidState)
	}
	if err := s.repos.Movies.Create(ctx, movie); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return fmt.Errorf("movie %s (%d): %w", movie.Name, movie.Year, ErrAlreadyExists)
		}
		return err
	}
	return nil
}

// UpdateMovie applies the non-nil fields of upd to a movie. Prices frozen in
// existing orders are not affected.
func (s *MovieService) UpdateMovie(ctx context.Context, id string, upd MovieUpdate) (*models.Movie, error) {
	movie, err := s.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		movie.Name = *upd.Name
	}
	if upd.Year != nil {
		movie.Year = *upd.Year
	}
	if upd.Time != nil {
		movie.Time = *upd.Time
	}
	if upd.IMDB != nil {
		movie.IMDB = *upd.IMDB
	}
	if upd.Votes != nil {
		movie.Votes = *upd.Votes
	}
	if upd.MetaScore != nil {
		movie.MetaScore = upd.MetaScore
	}
	if upd.Gross != nil {
		movie.Gross = upd.Gross
	}
	if upd.Description != nil {
		movie.Description = *upd.Description
	}
	if upd.Price != nil {
		if upd.Price.IsNegative() {
			return nil, fmt.Errorf("price must not be negative: %w", ErrInvalidState)
		}
		movie.Price = upd.Price.Round(2)
	}
	if upd.Certification != nil {
		movie.Certification = nil
		if name := strings.TrimSpace(*upd.Certification); name != "" {
			movie.Certification = &models.Certification{Name: name}
		}
	}
	if upd.Genres != nil {
		movie.Genres = make([]models.Genre, 0, len(upd.Genres))
		for _, name := range upd.Genres {
			movie.Genres = append(movie.Genres, models.Genre{Name: name})
		}
	}
	if upd.Directors != nil {
		movie.Directors = make([]models.Director, 0, len(upd.Directors))
		for _, name := range upd.Directors {
			movie.Directors = append(movie.Directors, models.Director{Name: name})
		}
	}
	if upd.Stars != nil {
		movie.Stars = make([]models.Star, 0, len(upd.Stars))
		for _, name := range upd.Stars {
			movie.Stars = append(movie.Stars, models.Star{Name: name})
		}
	}

	if err := s.repos.Movies.Update(ctx, movie); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("movie %s (%d): %w", movie.Name, movie.Year, ErrAlreadyExists)
		}
		return nil, err
	}
	logging.FromContext(ctx).Info("movie updated", "movie_id", id)
	return s.GetMovie(ctx, id)
}

// DeleteMovie removes a movie from the catalog and from every cart.
// Movies that were ever ordered cannot be deleted.
func (s *MovieService) DeleteMovie(ctx context.Context, id string) error {
	err := s.repos.Movies.Delete(ctx, id)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("movie %s: %w", id, ErrNotFound)
	case errors.Is(err, repositories.ErrInUse):
		return fmt.Errorf("movie %s has been ordered: %w", id, ErrInUse)
	case err != nil:
		return err
	}
	logging.FromContext(ctx).Info("movie deleted", "movie_id", id)
	return nil
}

func (s *MovieService) lookups(kind LookupKind) (repositories.LookupRepository, error) {
	switch kind {
	case LookupGenres:
		return s.repos.Genres, nil
	case LookupDirectors:
		return s.repos.Directors, nil
	case LookupStars:
		return s.repos.Stars, nil
	case LookupCertifications:
		return s.repos.Certifications, nil
	}
	return nil, fmt.Errorf("catalog list %q: %w", kind, ErrNotFound)
}

// ListLookups returns one page of a lookup table ordered by name.
func (s *MovieService) ListLookups(ctx context.Context, kind LookupKind, offset, limit int) ([]models.Lookup, int64, error) {
	repo, err := s.lookups(kind)
	if err != nil {
		return nil, 0, err
	}
	offset, limit = clampPage(offset, limit)
	return repo.List(ctx, offset, limit)
}

func (s *MovieService) GetLookup(ctx context.Context, kind LookupKind, id string) (*models.Lookup, error) {
	repo, err := s.lookups(kind)
	if err != nil {
		return nil, err
	}
	entry, err := repo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return entry, err
}

// CreateLookup adds a named entry. Names are unique per table.
func (s *MovieService) CreateLookup(ctx context.Context, kind LookupKind, name string) (*models.Lookup, error) {
	repo, err := s.lookups(kind)
	if err != nil {
		return nil, err
	}
	entry := &models.Lookup{Name: strings.TrimSpace(name)}
	if entry.Name == "" {
		return nil, fmt.Errorf("name must not be empty: %w", ErrInvalidState)
	}
	if err := repo.Create(ctx, entry); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%s %q: %w", kind, entry.Name, ErrAlreadyExists)
		}
		return nil, err
	}
	return entry, nil
}

func (s *MovieService) RenameLookup(ctx context.Context, kind LookupKind, id, name string) (*models.Lookup, error) {
	repo, err := s.lookups(kind)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name must not be empty: %w", ErrInvalidState)
	}
	entry, err := repo.Rename(ctx, id, name)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	case errors.Is(err, repositories.ErrDuplicate):
		return nil, fmt.Errorf("%s %q: %w", kind, name, ErrAlreadyExists)
	}
	return entry, err
}

// DeleteLookup removes an entry and detaches it from every movie.
func (s *MovieService) DeleteLookup(ctx context.Context, kind LookupKind, id string) error {
	repo, err := s.lookups(kind)
	if err != nil {
		return err
	}
	err = repo.Delete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}

func clampPage(offset, limit int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
