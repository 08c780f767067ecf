package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"inspection-service/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrDuplicatePin is returned when the requested PIN is already
	// assigned to another account
	ErrDuplicatePin = errors.New("pin already in use")
	// ErrInvalidPin is returned when the PIN is not exactly 4 digits
	ErrInvalidPin = errors.New("pin must be exactly 4 digits")
	// ErrInvalidCredentials is returned on a failed login attempt
	ErrInvalidCredentials = errors.New("invalid email or pin")
	// ErrUserExists is returned when registering an email that is taken
	ErrUserExists = errors.New("user already exists")
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// AuthService handles inspector accounts and authentication
type AuthService struct {
	db        *sql.DB
	jwtSecret []byte
}

// NewAuthService creates a new authentication service instance
func NewAuthService(db *sql.DB, jwtSecret string) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: []byte(jwtSecret),
	}
}

// CreateUser registers a new inspector account. The 4-digit PIN must be
// unique across all accounts; the check runs against the stored bcrypt
// hashes, which stays cheap at the tens-of-users scale this tool serves.
func (s *AuthService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if !pinPattern.MatchString(req.Pin) {
		return nil, ErrInvalidPin
	}

	exists, err := s.UserExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	taken, err := s.pinTaken(ctx, req.Pin, "")
	if err != nil {
		return nil, fmt.Errorf("failed to check pin uniqueness: %w", err)
	}
	if taken {
		return nil, ErrDuplicatePin
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(req.Pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pin: %w", err)
	}

	userID := generateUserID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, pin_hash, is_admin, agency) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, strings.ToLower(req.Email), req.Name, string(pinHash), req.IsAdmin, req.Agency)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &models.User{
		ID:        userID,
		Email:     strings.ToLower(req.Email),
		Name:      req.Name,
		IsAdmin:   req.IsAdmin,
		Agency:    req.Agency,
		CreatedAt: time.Now(),
	}, nil
}

// Login authenticates an inspector by email and PIN and returns an
// access/refresh token pair
func (s *AuthService) Login(ctx context.Context, email, pin string) (*models.TokenResponse, error) {
	var userID, pinHash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, pin_hash FROM users WHERE email = ?`, strings.ToLower(email)).
		Scan(&userID, &pinHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(pinHash), []byte(pin)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, userID)
}

// ValidateToken validates a JWT access token and returns the user
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != "access" {
		return nil, errors.New("cannot use refresh token for authentication")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid user id in token")
	}

	if err := s.verifyTokenInDB(ctx, userID, tokenString, "access"); err != nil {
		return nil, err
	}

	return s.GetUser(ctx, userID)
}

// RefreshToken exchanges a valid refresh token for a new token pair
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid refresh token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	tokenType, _ := claims["type"].(string)
	if tokenType != "refresh" {
		return nil, errors.New("not a refresh token")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid user id in token")
	}

	if err := s.verifyTokenInDB(ctx, userID, refreshToken, "refresh"); err != nil {
		return nil, err
	}

	return s.generateTokenPair(ctx, userID)
}

// Logout revokes all tokens for a user
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, is_admin, agency, created_at FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.Agency, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all inspector accounts
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, is_admin, agency, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.Agency, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser removes an inspector account and its tokens
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePin resets a user's PIN, enforcing the same uniqueness rule as
// registration
func (s *AuthService) UpdatePin(ctx context.Context, userID, pin string) error {
	if !pinPattern.MatchString(pin) {
		return ErrInvalidPin
	}

	taken, err := s.pinTaken(ctx, pin, userID)
	if err != nil {
		return fmt.Errorf("failed to check pin uniqueness: %w", err)
	}
	if taken {
		return ErrDuplicatePin
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET pin_hash = ? WHERE id = ?`, string(pinHash), userID)
	if err != nil {
		return fmt.Errorf("failed to update pin: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAdmin toggles the admin flag on an account
func (s *AuthService) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_admin = ? WHERE id = ?`, isAdmin, userID)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UserExistsByEmail checks whether an account with the email exists
func (s *AuthService) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ?`, strings.ToLower(email)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// pinTaken reports whether any account other than excludeUserID already
// uses the given PIN
func (s *AuthService) pinTaken(ctx context.Context, pin, excludeUserID string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, pin_hash FROM users`)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return false, err
		}
		if id == excludeUserID {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (s *AuthService) generateTokenPair(ctx context.Context, userID string) (*models.TokenResponse, error) {
	now := time.Now()
	accessExpiry := now.Add(1 * time.Hour)
	refreshExpiry := now.Add(30 * 24 * time.Hour)

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"type":    "access",
		"exp":     accessExpiry.Unix(),
		"iat":     now.Unix(),
	})
	accessTokenString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"type":    "refresh",
		"exp":     refreshExpiry.Unix(),
		"iat":     now.Unix(),
	})
	refreshTokenString, err := refreshToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	if err := s.storeToken(ctx, userID, accessTokenString, "access", accessExpiry); err != nil {
		return nil, err
	}
	if err := s.storeToken(ctx, userID, refreshTokenString, "refresh", refreshExpiry); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.TokenResponse{
		Token:        accessTokenString,
		RefreshToken: refreshTokenString,
		ExpiresIn:    int(time.Until(accessExpiry).Seconds()),
		User:         user,
	}, nil
}

func (s *AuthService) storeToken(ctx context.Context, userID, token, tokenType string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (user_id, token_hash, token_type, expires_at) VALUES (?, ?, ?, ?)`,
		userID, hashToken(token), tokenType, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s *AuthService) verifyTokenInDB(ctx context.Context, userID, token, tokenType string) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM auth_tokens
		 WHERE user_id = ? AND token_hash = ? AND token_type = ? AND expires_at > NOW()`,
		userID, hashToken(token), tokenType).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to verify token: %w", err)
	}
	if count == 0 {
		return errors.New("token revoked or expired")
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateUserID() string {
	return fmt.Sprintf("user_%d", time.Now().UnixNano())
}
