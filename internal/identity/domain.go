// internal/identity/domain.go
package identity

import (
	"time"

	"github.com/google/uuid"

	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/blood"
)

// Role names the three account kinds the engine serves.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleRecipient Role = "recipient"
	RoleManager   Role = "manager"
)

// ParseRole validates a role string from the outside world.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDonor, RoleRecipient, RoleManager:
		return Role(s), nil
	}
	return "", apperrors.Newf(apperrors.CodeValidation, "unknown role %q", s)
}

// User is the authentication identity shared by every role.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// DonorProfile is a donor's profile row joined with their area.
type DonorProfile struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Name        string      `json:"name"`
	Group       blood.Group `json:"blood_group"`
	AreaID      uuid.UUID   `json:"area_id"`
	AreaName    string      `json:"area_name"`
	Phone       string      `json:"phone"`
	DateOfBirth *time.Time  `json:"date_of_birth,omitempty"`
	Age         *int        `json:"age,omitempty"`
	Available   bool        `json:"available"`
}

// RecipientProfile is a recipient's profile row joined with their area.
type RecipientProfile struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Name        string      `json:"name"`
	Group       blood.Group `json:"blood_group"`
	AreaID      uuid.UUID   `json:"area_id"`
	AreaName    string      `json:"area_name"`
	Phone       string      `json:"phone"`
	DateOfBirth *time.Time  `json:"date_of_birth,omitempty"`
	Age         *int        `json:"age,omitempty"`
}

// ManagerProfile is a manager's profile row.
type ManagerProfile struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
}

// Profile bundles the user with whichever role profile they carry.
type Profile struct {
	User      User              `json:"user"`
	Donor     *DonorProfile     `json:"donor,omitempty"`
	Recipient *RecipientProfile `json:"recipient,omitempty"`
	Manager   *ManagerProfile   `json:"manager,omitempty"`
}

// RegisterInput carries everything needed to create an account. Group
// and AreaName are required for donors and recipients, ignored for
// managers.
type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	Role        Role
	Group       blood.Group
	AreaName    string
	Phone       string
	DateOfBirth *time.Time
}

// UpdateProfileInput carries the mutable profile fields. Nil fields are
// left untouched.
type UpdateProfileInput struct {
	Name        *string
	AreaName    *string
	Phone       *string
	DateOfBirth *time.Time
}

// ageAt derives whole years between dob and now; dob is stored, age
// never is.
func ageAt(dob time.Time, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
