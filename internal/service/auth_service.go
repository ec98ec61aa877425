package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-timetable-admin/internal/model"
	"go-timetable-admin/pkg/apierror"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// bcryptCost is a variable so tests can lower it.
var bcryptCost = 12

type authUserStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByLogin(ctx context.Context, login string) (model.User, error)
	Create(ctx context.Context, u model.User, profile model.ProfileFields) (model.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	Count(ctx context.Context) (int, error)
}

type refreshTokenStore interface {
	Store(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	Consume(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}

type AuthService struct {
	users      authUserStore
	tokens     refreshTokenStore
	activity   ActivityLogger
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(users authUserStore, tokens refreshTokenStore, activity ActivityLogger, jwtSecret string, accessTTL time.Duration, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		activity:   activity,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login checks credentials first and account status second, so an unknown
// user and a wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, login string, password string, ip string) (model.TokenPair, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return model.TokenPair{}, apierror.BadRequest("login and password are required", "")
	}

	user, err := s.users.FindByLogin(ctx, login)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	if err := checkLoginStatus(user.Status); err != nil {
		return model.TokenPair{}, err
	}

	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		slog.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}

	if s.activity != nil {
		userID := user.ID
		if err := s.activity.Log(ctx, model.ActivityEntry{
			UserID:      &userID,
			Action:      model.ActionLogin,
			Description: "User logged in: " + user.Username,
			IPAddress:   ip,
			Timestamp:   now,
		}); err != nil {
			slog.Warn("failed to record login activity", "user_id", user.ID, "error", err)
		}
	}

	return s.issueTokenPair(ctx, user)
}

// Refresh rotates a refresh token. The presented token is consumed even when
// the owner can no longer log in.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := s.ValidateToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return model.TokenPair{}, err
	}

	ownerID, err := s.tokens.Consume(ctx, refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	if ownerID != claims.UserID {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "refresh token is invalid", "", http.StatusUnauthorized)
	}

	user, err := s.users.FindByID(ctx, ownerID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "user not found", "", http.StatusUnauthorized)
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := checkLoginStatus(user.Status); err != nil {
		return model.TokenPair{}, err
	}

	return s.issueTokenPair(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, refreshToken)
}

func (s *AuthService) ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.New("UNAUTHORIZED", "invalid token signing method", "", http.StatusUnauthorized)
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierror.New("UNAUTHORIZED", "invalid token", "", http.StatusUnauthorized)
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.New("UNAUTHORIZED", "invalid token claims", "", http.StatusUnauthorized)
	}

	typ, _ := claimsMap["typ"].(string)
	if expectedType != "" && typ != expectedType {
		return nil, apierror.New("UNAUTHORIZED", "invalid token type", "", http.StatusUnauthorized)
	}

	claims := &model.AuthClaims{Type: typ}
	subject, _ := claimsMap["sub"].(string)
	claims.Username, _ = claimsMap["username"].(string)
	claims.Role, _ = claimsMap["role"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	claims.UserID, err = strconv.ParseInt(subject, 10, 64)
	if err != nil || claims.UserID <= 0 {
		return nil, apierror.New("UNAUTHORIZED", "invalid token subject", "", http.StatusUnauthorized)
	}

	return claims, nil
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (model.User, error) {
	return s.users.FindByID(ctx, id)
}

// SeedDefaultAdmin creates an active admin account when no users exist yet.
func (s *AuthService) SeedDefaultAdmin(ctx context.Context, username string, email string, password string) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin, err := s.users.Create(ctx, model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Administrator",
		Role:         model.RoleAdmin,
		Status:       model.StatusActive,
		CreatedAt:    now,
	}, model.ProfileFields{})
	if err != nil {
		return fmt.Errorf("seed default admin: %w", err)
	}

	slog.Warn("default admin account created, change its password", "username", admin.Username)
	return nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user model.User) (model.TokenPair, error) {
	now := time.Now().UTC()
	subject := strconv.FormatInt(user.ID, 10)

	accessToken, err := s.signToken(jwt.MapClaims{
		"sub":      subject,
		"username": user.Username,
		"role":     string(user.Role),
		"typ":      tokenTypeAccess,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.accessTTL).Unix(),
	})
	if err != nil {
		return model.TokenPair{}, err
	}

	refreshExpiry := now.Add(s.refreshTTL)
	refreshToken, err := s.signToken(jwt.MapClaims{
		"sub":      subject,
		"username": user.Username,
		"role":     string(user.Role),
		"typ":      tokenTypeRefresh,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      refreshExpiry.Unix(),
	})
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.tokens.Store(ctx, refreshToken, user.ID, refreshExpiry); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		User:         model.NewAuthUser(user),
	}, nil
}

func (s *AuthService) signToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func checkLoginStatus(status model.Status) error {
	switch status {
	case model.StatusActive:
		return nil
	case model.StatusPending:
		return model.ErrAccountPending
	default:
		return model.ErrAccountDisabled
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
