package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"bizbook/backend/internal/domain"
	"bizbook/backend/internal/store"
)

// AuthManager owns account signup, credential checks and bearer tokens.
// Accounts live in the repository; this type only sees hashes.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    store.Repository
}

type accountClaims struct {
	jwtlib.RegisteredClaims
	Email string `json:"email"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users store.Repository) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
	}
}

func (a *AuthManager) Signup(ctx context.Context, req domain.SignupRequest) (string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: a valid email is required", store.ErrValidation)
	}
	if len(req.Password) < 6 {
		return "", fmt.Errorf("%w: password must be at least 6 characters", store.ErrValidation)
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = "User"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := a.users.CreateUser(ctx, domain.UserAccount{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || strings.TrimSpace(req.Password) == "" {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	user, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		// NotFound and real store failures both read as a credential
		// failure to the caller.
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user.ID, user.Email, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		DisplayName: user.DisplayName,
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Identity, error) {
	claims := &accountClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Identity{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Identity{}, errors.New("invalid token subject")
	}
	return domain.Identity{UserID: sub, Email: claims.Email}, nil
}

func (a *AuthManager) sign(userID string, email string, expiresAt time.Time) (string, error) {
	claims := accountClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "bizbook",
		},
		Email: email,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
