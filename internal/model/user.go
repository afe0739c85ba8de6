package model

import "time"

// Roles a user can hold.  ADMIN may manage clubs and sessions.
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  PasswordHash is never serialized.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, normalized (lower-case) email address.
//  PasswordHash – bcrypt hashed password.
//  Name         – display name.
//  Role         – MEMBER or ADMIN.
//  IsVerified   – whether the email address has been verified.
//  HomeClubID   – optional reference to the user's home club.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsVerified   bool      `json:"isVerified"`
	HomeClubID   *uint64   `json:"homeClubId"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// VerificationToken models an entry in the `verification_tokens` table.  The
// plain token is sent to the user; only its SHA‑256 hash is stored.
type VerificationToken struct {
	ID        uint64     // verification_tokens.id
	UserID    uint64     // verification_tokens.user_id
	TokenHash string     // verification_tokens.token_hash
	ExpiresAt time.Time  // verification_tokens.expires_at
	UsedAt    *time.Time // verification_tokens.used_at (nullable)
	CreatedAt time.Time  // verification_tokens.created_at
}
