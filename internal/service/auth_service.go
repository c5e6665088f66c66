package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-transit-api/internal/models"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
)

type authDriverRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Driver, error)
	FindByID(ctx context.Context, id string) (*models.Driver, error)
}

// AuthConfig defines configuration for driver authentication.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

// AuthService authenticates drivers and issues scan-surface access tokens.
type AuthService struct {
	repo      authDriverRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authDriverRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config}
}

// Login authenticates a driver and returns an issued access token. The token
// carries the driver's route and shift so scan checks never re-read the roster.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	driver, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch driver")
	}

	if !driver.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "driver account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(driver.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}

	now := time.Now().UTC()
	token, err := s.generateAccessToken(driver, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("driver logged in",
		zap.String("driver_id", driver.ID),
		zap.String("route_id", driver.RouteID))

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		IssuedAt:    now,
		Driver: models.DriverInfo{
			ID:       driver.ID,
			FullName: driver.FullName,
			RouteID:  driver.RouteID,
			Shift:    driver.Shift,
		},
	}, nil
}

// ValidateToken parses and validates a driver access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.DriverClaims, error) {
	claims := &models.DriverClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if claims.Role != models.RoleDriver {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token does not carry the driver role")
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(driver *models.Driver, now time.Time) (string, error) {
	claims := models.DriverClaims{
		DriverID: driver.ID,
		Role:     models.RoleDriver,
		FullName: driver.FullName,
		RouteID:  driver.RouteID,
		Shift:    driver.Shift,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   driver.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.TokenSecret))
}
