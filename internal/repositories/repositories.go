package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInUse is returned when a row cannot be deleted while others refer to it.
	ErrInUse = errors.New("record is in use")
)

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	db *gorm.DB

	Users          UserRepository
	Tokens         TokenRepository
	Profiles       ProfileRepository
	Movies         MovieRepository
	Genres         LookupRepository
	Directors      LookupRepository
	Stars          LookupRepository
	Certifications LookupRepository
	Carts          CartRepository
	Orders         OrderRepository
	Payments       PaymentRepository
	Webhooks       WebhookEventRepository
}

// New builds GORM repositories on top of db.
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		db:             db,
		Users:          NewGORMUserRepository(db),
		Tokens:         NewGORMTokenRepository(db),
		Profiles:       NewGORMProfileRepository(db),
		Movies:         NewGORMMovieRepository(db),
		Genres:         NewGORMGenreRepository(db),
		Directors:      NewGORMDirectorRepository(db),
		Stars:          NewGORMStarRepository(db),
		Certifications: NewGORMCertificationRepository(db),
		Carts:          NewGORMCartRepository(db),
		Orders:         NewGORMOrderRepository(db),
		Payments:       NewGORMPaymentRepository(db),
		Webhooks:       NewGORMWebhookEventRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
