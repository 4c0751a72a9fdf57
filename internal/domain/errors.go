package domain

import "errors"

// Expected outcomes of the identity core. Handlers translate them into
// status codes with errors.Is; anything else is an unrecovered fault.
var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrTokenInvalid           = errors.New("invalid refresh token")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidCurrentPassword = errors.New("invalid current password")

	ErrUserExists        = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrCannotDeleteAdmin = errors.New("admin user cannot be deleted")
	ErrValidation        = errors.New("validation error")
)
