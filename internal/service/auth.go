package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"qrorder/internal/model"
)

const tokenTTL = 12 * time.Hour

// AuthService manages staff accounts for the kitchen and cashier dashboards.
type AuthService struct {
	db     *sql.DB
	secret []byte
}

func NewAuthService(db *sql.DB, jwtSecret string) *AuthService {
	return &AuthService{db: db, secret: []byte(jwtSecret)}
}

func (s *AuthService) Register(ctx context.Context, login, password string) (*model.Staff, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	query := `INSERT INTO staff (login, password_hash) VALUES ($1, $2) RETURNING id, login, created_at`
	row := s.db.QueryRowContext(ctx, query, login, hash)

	var staff model.Staff
	if err := row.Scan(&staff.ID, &staff.Login, &staff.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert staff: %w", err)
	}
	staff.PasswordHash = hash

	return &staff, nil
}

func (s *AuthService) Authenticate(ctx context.Context, login, password string) (*model.Staff, error) {
	query := `SELECT id, login, password_hash, created_at FROM staff WHERE login = $1`
	row := s.db.QueryRowContext(ctx, query, login)

	var staff model.Staff
	if err := row.Scan(&staff.ID, &staff.Login, &staff.PasswordHash, &staff.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get staff: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(staff.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &staff, nil
}

// IssueToken signs an HS256 token carrying staff_id.
func (s *AuthService) IssueToken(staffID string) (string, error) {
	return SignStaffToken(s.secret, staffID, time.Now().Add(tokenTTL))
}

func SignStaffToken(secret []byte, staffID string, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"staff_id": staffID,
		"exp":      jwt.NewNumericDate(exp),
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
