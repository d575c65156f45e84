package services

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrDuplicateItem       = errors.New("movie is already in the cart")
	ErrAlreadyPurchased    = errors.New("movie has already been purchased")
	ErrConflictingPurchase = errors.New("cart contains a movie that has already been purchased")
	ErrInvalidState        = errors.New("operation not allowed in the current state")
	ErrAlreadyHasSession   = errors.New("order already has an open checkout session")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrMalformedEvent      = errors.New("malformed webhook event")
	ErrUnknownSession      = errors.New("unknown checkout session")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInUse               = errors.New("still referenced")

	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user account is not activated")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidFile        = errors.New("invalid file")
	ErrStorageUnavailable = errors.New("object storage is not configured")
)
