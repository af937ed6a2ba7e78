package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"terracafe/db"
	"terracafe/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	// bcrypt refuses longer input.
	maxPasswordBytes = 72
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RoleForEmail grants the staff role to configured kitchen/counter accounts.
func RoleForEmail(email string, staffEmails []string) string {
	if slices.Contains(staffEmails, NormalizeEmail(email)) {
		return models.RoleStaff
	}
	return models.RoleCustomer
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
}

func (in *RegisterInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" {
		return invalid("name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return invalid("invalid email: %s", in.Email)
	}
	if len(in.Password) < minPasswordLen {
		return invalid("password must have at least %d characters", minPasswordLen)
	}
	if len(in.Password) > maxPasswordBytes {
		return invalid("password must have at most %d bytes", maxPasswordBytes)
	}
	if in.Role == "" {
		in.Role = models.RoleCustomer
	}
	return nil
}

const userColumns = `id, name, email, phone, loyalty_points, role, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var points int
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &points, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.LoyaltyPoints = &points
	return &u, nil
}

// Register creates an account with a bcrypt-hashed password.
func Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	var phone *string
	if in.Phone != "" {
		phone = &in.Phone
	}
	u, err := scanUser(db.Pool.QueryRow(ctx, `
		INSERT INTO users (name, email, phone, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		in.Name, in.Email, phone, string(hash), in.Role,
	))
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	return u, err
}

// CreateUserWithTempPassword registers a client on their behalf. When no
// password is given a random one is generated and returned once.
func CreateUserWithTempPassword(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	temp := ""
	if in.Password == "" {
		p, err := GenerateSecurePassword()
		if err != nil {
			return nil, "", fmt.Errorf("generate password: %w", err)
		}
		in.Password, temp = p, p
	}
	u, err := Register(ctx, in)
	if err != nil {
		return nil, "", err
	}
	return u, temp, nil
}

// VerifyPassword checks credentials without touching the throttle.
func VerifyPassword(ctx context.Context, email, password string) (*models.User, error) {
	var hash string
	row := db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+`, password_hash FROM users WHERE email = $1`,
		NormalizeEmail(email),
	)
	var u models.User
	var points int
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &points, &u.Role, &u.CreatedAt, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	u.LoyaltyPoints = &points
	return &u, nil
}

// Login verifies credentials under the failed-attempt throttle and opens a session.
func Login(ctx context.Context, sessions SessionStore, email, password string) (string, *models.User, error) {
	email = NormalizeEmail(email)
	wait, err := LoginWaitSeconds(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if wait > 0 {
		return "", nil, &ThrottledError{WaitSeconds: wait}
	}

	u, err := VerifyPassword(ctx, email, password)
	if errors.Is(err, ErrInvalidCredentials) {
		cooldown, recErr := recordLoginFailure(ctx, email)
		if recErr != nil {
			return "", nil, errors.Join(err, recErr)
		}
		log.Info().Str("email", email).Dur("cooldown", cooldown).Msg("login failed")
		return "", nil, err
	}
	if err != nil {
		return "", nil, err
	}
	if err := clearLoginFailures(ctx, email); err != nil {
		return "", nil, err
	}

	token, err := sessions.Create(ctx, u.ID)
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	return token, u, nil
}

func Logout(ctx context.Context, sessions SessionStore, token string) error {
	return sessions.Delete(ctx, token)
}

// UserForToken resolves a bearer token to its account.
func UserForToken(ctx context.Context, sessions SessionStore, token string) (*models.User, error) {
	id, err := sessions.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	return GetUser(ctx, id)
}

func GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

func ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser changes the profile fields a client may edit.
func UpdateUser(ctx context.Context, id int64, name, phone string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}
	var phonePtr *string
	if p := strings.TrimSpace(phone); p != "" {
		phonePtr = &p
	}
	u, err := scanUser(db.Pool.QueryRow(ctx, `
		UPDATE users SET name = $1, phone = $2, updated_at = now()
		WHERE id = $3
		RETURNING `+userColumns,
		name, phonePtr, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, err
}

func DeleteUser(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}
