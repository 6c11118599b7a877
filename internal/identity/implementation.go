// internal/identity/implementation.go
package identity

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

// service implements the Service interface.
type service struct {
	db     *sql.DB
	runner txn.Runner

	// registerLimiter throttles account creation only.
	registerLimiter *rate.Limiter
}

// NewService creates a new identity service instance.
func NewService(db *sql.DB, runner txn.Runner) Service {
	return &service{
		db:              db,
		runner:          runner,
		registerLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 registrations per minute
	}
}

// Register creates a user row plus the role profile in one transaction.
func (s *service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if !s.registerLimiter.Allow() {
		return nil, apperrors.New(apperrors.CodeConflict, "registration rate limit exceeded, try again shortly")
	}
	if err := validateRegister(in); err != nil {
		return nil, err
	}

	passwordHash, salt, err := hashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePersistence, "failed to hash password")
	}

	user := &User{
		ID:        uuid.New(),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Role:      in.Role,
		CreatedAt: time.Now().UTC(),
	}

	err = s.runner.RunInTx(ctx, func(q txn.Querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO users (id, email, password_hash, salt, role, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			user.ID, user.Email, passwordHash, salt, string(user.Role), user.CreatedAt)
		if err != nil {
			return err
		}

		switch in.Role {
		case RoleDonor:
			areaID, err := resolveArea(ctx, q, in.AreaName)
			if err != nil {
				return err
			}
			_, err = q.ExecContext(ctx,
				`INSERT INTO donors (id, user_id, name, blood_group, area_id, phone, date_of_birth, available)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)`,
				uuid.New(), user.ID, in.Name, string(in.Group), areaID, in.Phone, nullTime(in.DateOfBirth))
			return err
		case RoleRecipient:
			areaID, err := resolveArea(ctx, q, in.AreaName)
			if err != nil {
				return err
			}
			_, err = q.ExecContext(ctx,
				`INSERT INTO recipients (id, user_id, name, blood_group, area_id, phone, date_of_birth)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				uuid.New(), user.ID, in.Name, string(in.Group), areaID, in.Phone, nullTime(in.DateOfBirth))
			return err
		case RoleManager:
			_, err = q.ExecContext(ctx,
				`INSERT INTO managers (id, user_id, name) VALUES ($1, $2, $3)`,
				uuid.New(), user.ID, in.Name)
			return err
		}
		return apperrors.Newf(apperrors.CodeValidation, "unknown role %q", in.Role)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func validateRegister(in RegisterInput) error {
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		return apperrors.New(apperrors.CodeValidation, "a valid email is required")
	}
	if len(in.Password) < 8 {
		return apperrors.New(apperrors.CodeValidation, "password must be at least 8 characters")
	}
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.New(apperrors.CodeValidation, "name is required")
	}
	if _, err := ParseRole(string(in.Role)); err != nil {
		return err
	}
	if in.Role == RoleDonor || in.Role == RoleRecipient {
		if _, err := blood.Parse(string(in.Group)); err != nil {
			return err
		}
		if strings.TrimSpace(in.AreaName) == "" {
			return apperrors.New(apperrors.CodeValidation, "area is required")
		}
	}
	return nil
}

// resolveArea maps an area name to its id, creating the area on first
// use. The upsert keeps concurrent registrations in the same new area
// from racing each other.
func resolveArea(ctx context.Context, q txn.Querier, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRowContext(ctx,
		`INSERT INTO areas (id, name) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		uuid.New(), strings.TrimSpace(name)).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// Authenticate verifies credentials and returns the user for the
// gateway to stamp onto subsequent requests.
func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user := &User{}
	var passwordHash, salt, role string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, salt, role, created_at FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email))).
		Scan(&user.ID, &user.Email, &passwordHash, &salt, &role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "Invalid email or password.")
	}
	if err != nil {
		return nil, txn.Translate(err)
	}

	ok, err := verifyPassword(password, salt, passwordHash)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePersistence, "credential verification failed")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "Invalid email or password.")
	}

	user.Role = Role(role)
	return user, nil
}

// Profile loads the user and whichever role profile they carry.
func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p := &Profile{}
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, role, created_at FROM users WHERE id = $1`, userID).
		Scan(&p.User.ID, &p.User.Email, &role, &p.User.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.CodeNotFound, "User not found.")
	}
	if err != nil {
		return nil, txn.Translate(err)
	}
	p.User.Role = Role(role)

	switch p.User.Role {
	case RoleDonor:
		d, err := s.donorByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		p.Donor = d
	case RoleRecipient:
		r, err := s.recipientByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		p.Recipient = r
	case RoleManager:
		m := &ManagerProfile{}
		err := s.db.QueryRowContext(ctx,
			`SELECT id, user_id, name FROM managers WHERE user_id = $1`, userID).
			Scan(&m.ID, &m.UserID, &m.Name)
		if err != nil {
			return nil, txn.Translate(err)
		}
		p.Manager = m
	}
	return p, nil
}

func (s *service) donorByUser(ctx context.Context, userID uuid.UUID) (*DonorProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT d.id, d.user_id, d.name, d.blood_group, d.area_id, a.name, d.phone, d.date_of_birth, d.available
		 FROM donors d JOIN areas a ON a.id = d.area_id
		 WHERE d.user_id = $1`, userID)
	return scanDonor(row)
}

func (s *service) recipientByUser(ctx context.Context, userID uuid.UUID) (*RecipientProfile, error) {
	r := &RecipientProfile{}
	var group string
	var dob sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT r.id, r.user_id, r.name, r.blood_group, r.area_id, a.name, r.phone, r.date_of_birth
		 FROM recipients r JOIN areas a ON a.id = r.area_id
		 WHERE r.user_id = $1`, userID).
		Scan(&r.ID, &r.UserID, &r.Name, &group, &r.AreaID, &r.AreaName, &r.Phone, &dob)
	if err != nil {
		return nil, txn.Translate(err)
	}
	r.Group = blood.Group(group)
	if dob.Valid {
		t := dob.Time
		r.DateOfBirth = &t
		age := ageAt(t, time.Now().UTC())
		r.Age = &age
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonor(row rowScanner) (*DonorProfile, error) {
	d := &DonorProfile{}
	var group string
	var dob sql.NullTime
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &group, &d.AreaID, &d.AreaName, &d.Phone, &dob, &d.Available)
	if err != nil {
		return nil, txn.Translate(err)
	}
	d.Group = blood.Group(group)
	if dob.Valid {
		t := dob.Time
		d.DateOfBirth = &t
		age := ageAt(t, time.Now().UTC())
		d.Age = &age
	}
	return d, nil
}

// UpdateProfile rewrites the mutable donor or recipient fields. The row
// is read under lock so concurrent updates serialize cleanly.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) error {
	return s.runner.RunInTx(ctx, func(q txn.Querier) error {
		var role string
		err := q.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
		if err == sql.ErrNoRows {
			return apperrors.New(apperrors.CodeNotFound, "User not found.")
		}
		if err != nil {
			return err
		}

		var table string
		switch Role(role) {
		case RoleDonor:
			table = "donors"
		case RoleRecipient:
			table = "recipients"
		default:
			return apperrors.New(apperrors.CodeValidation, "this account has no editable profile")
		}

		var name, phone string
		var dob sql.NullTime
		var areaID uuid.UUID
		err = q.QueryRowContext(ctx,
			`SELECT name, phone, date_of_birth, area_id FROM `+table+` WHERE user_id = $1 FOR UPDATE`,
			userID).Scan(&name, &phone, &dob, &areaID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return apperrors.New(apperrors.CodeValidation, "name is required")
			}
			name = *in.Name
		}
		if in.Phone != nil {
			phone = *in.Phone
		}
		if in.DateOfBirth != nil {
			dob = sql.NullTime{Time: *in.DateOfBirth, Valid: true}
		}
		if in.AreaName != nil {
			areaID, err = resolveArea(ctx, q, *in.AreaName)
			if err != nil {
				return err
			}
		}

		_, err = q.ExecContext(ctx,
			`UPDATE `+table+` SET name = $1, phone = $2, date_of_birth = $3, area_id = $4 WHERE user_id = $5`,
			name, phone, dob, areaID, userID)
		return err
	})
}

// SetAvailability flips a donor's availability preference. Only the
// owning user may flip it.
func (s *service) SetAvailability(ctx context.Context, donorID, callerUserID uuid.UUID, available bool) error {
	return s.runner.RunInTx(ctx, func(q txn.Querier) error {
		var ownerID uuid.UUID
		err := q.QueryRowContext(ctx,
			`SELECT user_id FROM donors WHERE id = $1 FOR UPDATE`, donorID).Scan(&ownerID)
		if err == sql.ErrNoRows {
			return apperrors.New(apperrors.CodeNotFound, "Donor not found.")
		}
		if err != nil {
			return err
		}
		if ownerID != callerUserID {
			return apperrors.New(apperrors.CodeUnauthorized, "you may only change your own availability")
		}
		_, err = q.ExecContext(ctx,
			`UPDATE donors SET available = $1 WHERE id = $2`, available, donorID)
		return err
	})
}

// SearchDonors finds donors by exact id or partial name match.
func (s *service) SearchDonors(ctx context.Context, query string) ([]DonorProfile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "a search query is required")
	}

	const base = `SELECT d.id, d.user_id, d.name, d.blood_group, d.area_id, a.name, d.phone, d.date_of_birth, d.available
		 FROM donors d JOIN areas a ON a.id = d.area_id `

	var rows *sql.Rows
	var err error
	if id, perr := uuid.Parse(query); perr == nil {
		rows, err = s.db.QueryContext(ctx, base+`WHERE d.id = $1`, id)
	} else {
		rows, err = s.db.QueryContext(ctx, base+`WHERE d.name ILIKE '%' || $1 || '%' ORDER BY d.name LIMIT 50`, query)
	}
	if err != nil {
		return nil, txn.Translate(err)
	}
	defer rows.Close()

	var out []DonorProfile
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, txn.Translate(rows.Err())
}
