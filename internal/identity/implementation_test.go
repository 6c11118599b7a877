package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/testdb"
	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

func newTestService(t *testing.T) Service {
	db := testdb.Connect(t)
	return NewService(db, txn.NewRunner(db))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Email:    "Dana@Example.com",
		Password: "longenough",
		Name:     "Dana Donor",
		Role:     RoleDonor,
		Group:    blood.ONegative,
		AreaName: "North District",
	})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", user.Email, "email is stored lowercased")
	assert.Equal(t, RoleDonor, user.Role)

	got, err := svc.Authenticate(ctx, "dana@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, RoleDonor, got.Role)

	_, err = svc.Authenticate(ctx, "dana@example.com", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	_, err = svc.Authenticate(ctx, "nobody@example.com", "longenough")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

// Repeated logins never draw from the registration limiter: every bad
// attempt keeps reporting invalid credentials, not a throttle error.
func TestAuthenticateNotRateLimited(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "patient@example.com",
		Password: "longenough",
		Name:     "Pat",
		Role:     RoleManager,
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := svc.Authenticate(ctx, "patient@example.com", "wrong-password")
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	}

	got, err := svc.Authenticate(ctx, "patient@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "patient@example.com", got.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := RegisterInput{
		Email:    "dup@example.com",
		Password: "longenough",
		Name:     "First",
		Role:     RoleManager,
	}
	_, err := svc.Register(ctx, in)
	require.NoError(t, err)

	in.Name = "Second"
	_, err = svc.Register(ctx, in)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestRegisterSharesAreaByName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u1, err := svc.Register(ctx, RegisterInput{
		Email: "a@example.com", Password: "longenough", Name: "A",
		Role: RoleDonor, Group: blood.APositive, AreaName: "Harborview",
	})
	require.NoError(t, err)
	u2, err := svc.Register(ctx, RegisterInput{
		Email: "b@example.com", Password: "longenough", Name: "B",
		Role: RoleRecipient, Group: blood.BPositive, AreaName: "Harborview",
	})
	require.NoError(t, err)

	p1, err := svc.Profile(ctx, u1.ID)
	require.NoError(t, err)
	p2, err := svc.Profile(ctx, u2.ID)
	require.NoError(t, err)
	require.NotNil(t, p1.Donor)
	require.NotNil(t, p2.Recipient)
	assert.Equal(t, p1.Donor.AreaID, p2.Recipient.AreaID)
	assert.Equal(t, "Harborview", p1.Donor.AreaName)
}

func TestProfileUpdateAndAvailability(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Email: "donor@example.com", Password: "longenough", Name: "Old Name",
		Role: RoleDonor, Group: blood.ABPositive, AreaName: "Eastside", Phone: "555-0100",
	})
	require.NoError(t, err)

	newName := "New Name"
	newArea := "Westside"
	require.NoError(t, svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{
		Name:     &newName,
		AreaName: &newArea,
	}))

	p, err := svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, p.Donor)
	assert.Equal(t, "New Name", p.Donor.Name)
	assert.Equal(t, "Westside", p.Donor.AreaName)
	assert.Equal(t, "555-0100", p.Donor.Phone, "unset fields keep their value")
	assert.True(t, p.Donor.Available)

	require.NoError(t, svc.SetAvailability(ctx, p.Donor.ID, user.ID, false))

	err = svc.SetAvailability(ctx, p.Donor.ID, uuid.New(), true)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	p, err = svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, p.Donor.Available)
}

func TestSearchDonors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{
		Email: "findme@example.com", Password: "longenough", Name: "Jordan Finch",
		Role: RoleDonor, Group: blood.OPositive, AreaName: "Midtown",
	})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{
		Email: "other@example.com", Password: "longenough", Name: "Alex Stone",
		Role: RoleDonor, Group: blood.OPositive, AreaName: "Midtown",
	})
	require.NoError(t, err)

	byName, err := svc.SearchDonors(ctx, "finch")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Jordan Finch", byName[0].Name)

	p, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	byID, err := svc.SearchDonors(ctx, p.Donor.ID.String())
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, p.Donor.ID, byID[0].ID)

	_, err = svc.SearchDonors(ctx, "   ")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}
