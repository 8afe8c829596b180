package model

import "time"

// User represents an account as stored in the `users` table.  Users are
// identified by their email address, which is stored lower-cased.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	FirstName    – given name, may be empty.
//	LastName     – family name, may be empty.
//	PasswordHash – bcrypt hashed password.
//	IsActive     – whether the account may log in.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

func (u User) String() string { return u.Email }

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
