package domain

// Identity is the caller established by the request authenticator.
// It is passed by value and never mutated after creation.
type Identity struct {
	UserID uint
	Email  string
	Role   string
}

// UserSummary is what login and refresh hand back to the HTTP layer.
type UserSummary struct {
	ID    uint    `json:"id"`
	Email string  `json:"email"`
	Role  string  `json:"role"`
	Name  *string `json:"name,omitempty"`
}
