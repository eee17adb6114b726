package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/UnifiedAI-ONeID/verbatim/internal/locale"
	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
	pgrepo "github.com/UnifiedAI-ONeID/verbatim/internal/repositories/postgres"
	"github.com/UnifiedAI-ONeID/verbatim/internal/utils"
)

type UserService interface {
	Register(ctx context.Context, email, password, loc string) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Get(ctx context.Context, userID string) (*models.User, error)
	UpdatePreferences(ctx context.Context, userID, loc string, keepAwake bool) error
}

type userService struct {
	users     pgrepo.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewUserService(users pgrepo.UserRepository, jwtSecret string) UserService {
	return &userService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  24 * time.Hour,
	}
}

func (s *userService) Register(ctx context.Context, email, password, loc string) (*models.User, string, error) {
	const op = "UserService.Register"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return nil, "", utils.E(utils.CodeInvalidArgument, op, "email and a password of at least 8 characters are required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", utils.E(utils.CodeConflict, op, "email already registered", nil)
	} else if !errors.Is(err, utils.ErrNotFound) {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to check email", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}

	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Locale:       locale.Normalize(loc),
		CreatedAt:    now,
		LastSignInAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to create user", err)
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to issue token", err)
	}
	return u, token, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	const op = "UserService.Login"

	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, "", utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil)
		}
		return nil, "", utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if err := utils.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, "", utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil)
	}

	_ = s.users.TouchSignIn(ctx, u.ID, time.Now().UTC())

	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to issue token", err)
	}
	return u, token, nil
}

func (s *userService) Get(ctx context.Context, userID string) (*models.User, error) {
	const op = "UserService.Get"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	return u, nil
}

func (s *userService) UpdatePreferences(ctx context.Context, userID, loc string, keepAwake bool) error {
	const op = "UserService.UpdatePreferences"

	if userID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if err := s.users.UpdatePreferences(ctx, userID, locale.Normalize(loc), keepAwake); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update preferences", err)
	}
	return nil
}

func (s *userService) issueToken(u *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  u.ID,
		"role": string(u.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}
