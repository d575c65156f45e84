package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Movie is a purchasable catalog entry.
type Movie struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name            string          `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_movie_name_year_time"`
	Year            int             `json:"year" gorm:"not null;uniqueIndex:idx_movie_name_year_time"`
	Time            int             `json:"time" gorm:"not null;uniqueIndex:idx_movie_name_year_time"`
	IMDB            float64         `json:"imdb" gorm:"not null"`
	Votes           int             `json:"votes" gorm:"not null"`
	MetaScore       *float64        `json:"meta_score"`
	Gross           *float64        `json:"gross"`
	Description     string          `json:"description" gorm:"type:text;not null"`
	Price           decimal.Decimal `json:"price" gorm:"type:numeric(10,2);not null"`
	CertificationID *string         `json:"-" gorm:"type:varchar(36)"`
	Certification   *Certification  `json:"certification,omitempty"`
	Genres          []Genre         `json:"genres,omitempty" gorm:"many2many:movie_genres"`
	Directors       []Director      `json:"directors,omitempty" gorm:"many2many:movie_directors"`
	Stars           []Star          `json:"stars,omitempty" gorm:"many2many:movie_stars"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (m *Movie) BeforeCreate(tx *gorm.DB) error {
	newID(&m.ID)
	return nil
}

type Genre struct {
	ID   string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name string `json:"name" gorm:"uniqueIndex;type:varchar(100);not null"`
}

func (g *Genre) BeforeCreate(tx *gorm.DB) error {
	newID(&g.ID)
	return nil
}

type Director struct {
	ID   string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name string `json:"name" gorm:"uniqueIndex;type:varchar(255);not null"`
}

func (d *Director) BeforeCreate(tx *gorm.DB) error {
	newID(&d.ID)
	return nil
}

type Star struct {
	ID   string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name string `json:"name" gorm:"uniqueIndex;type:varchar(255);not null"`
}

func (s *Star) BeforeCreate(tx *gorm.DB) error {
	newID(&s.ID)
	return nil
}

// Certification is the age rating of a movie (PG-13, R, ...).
type Certification struct {
	ID   string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name string `json:"name" gorm:"uniqueIndex;type:varchar(64);not null"`
}

func (c *Certification) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}

// Lookup is the row shape shared by genres, directors, stars and
// certifications. It is read and written through an explicit table name.
type Lookup struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Name string `json:"name"`
}

func (l *Lookup) BeforeCreate(tx *gorm.DB) error {
	newID(&l.ID)
	return nil
}
