package repository

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/iliyamo/openmat-booking/internal/repository ClubRepository,SessionRepository,BookingRepository,UserRepository,TokenRepository

import (
	"context"
	"time"

	"github.com/iliyamo/openmat-booking/internal/model"
)

// ClubRepository persists clubs.
type ClubRepository interface {
	Create(ctx context.Context, c *model.Club) error
	GetByID(ctx context.Context, id uint64) (*model.Club, error)
	List(ctx context.Context) ([]model.Club, error)
	Update(ctx context.Context, c *model.Club) error
	Delete(ctx context.Context, id uint64) error
}

// SessionRepository persists sessions.  Capacity counters are never written
// here; see BookingRepository.
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id uint64) (*model.Session, error)
	ListByClub(ctx context.Context, clubID uint64) ([]model.Session, error)
	ListUpcomingPerClub(ctx context.Context, perClub int) (map[uint64][]model.Session, error)
	SearchUpcoming(ctx context.Context, q SessionSearchQuery) ([]model.SessionListing, int64, error)
}

// BookingRepository books spots.  Create returns the session as it stands
// after the booking, joined with its club name.
type BookingRepository interface {
	Create(ctx context.Context, b *model.Booking) (*model.SessionListing, error)
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// TokenRepository persists email verification tokens.
type TokenRepository interface {
	StoreVerification(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ConsumeVerification(ctx context.Context, tokenHash string) (uint64, error)
}
