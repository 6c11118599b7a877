// internal/identity/service.go
package identity

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the identity service.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	Profile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) error
	SetAvailability(ctx context.Context, donorID, callerUserID uuid.UUID, available bool) error
	SearchDonors(ctx context.Context, query string) ([]DonorProfile, error)
}
