package services

import (
	"context"
	"strings"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/models"
	"trading_dashboard/internal/validation"
)

// Account form validation messages.
const (
	MsgUsernameRequired    = "Username is required"
	MsgUsernameTooLong     = "Username must be at most 50 characters"
	MsgEmailInvalid        = "Please enter a valid email address"
	MsgPasswordRequired    = "Password is required"
	MsgPasswordTooShort    = "Password must be at least 8 characters"
	MsgCredentialsRequired = "Username and password are required"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 50
)

// AccountAPI is the subset of the trading API used for accounts.
type AccountAPI interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.Token, error)
}

// AccountService registers users and exchanges credentials for tokens.
type AccountService struct {
	api    AccountAPI
	logger *logger.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(api AccountAPI, log *logger.Logger) *AccountService {
	if log == nil {
		log = logger.NewSilent()
	}
	return &AccountService{api: api, logger: log.Component("account")}
}

// Register validates the registration form and creates the user.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = validation.SanitizeText(username)
	email = strings.TrimSpace(email)

	if !validation.ValidateRequired(username) {
		return nil, apperrors.ValidationField("username", MsgUsernameRequired)
	}
	if !validation.ValidateLength(username, 1, maxUsernameLength) {
		return nil, apperrors.ValidationField("username", MsgUsernameTooLong)
	}
	if !validation.ValidateEmail(email) {
		return nil, apperrors.ValidationField("email", MsgEmailInvalid)
	}
	if password == "" {
		return nil, apperrors.ValidationField("password", MsgPasswordRequired)
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.ValidationField("password", MsgPasswordTooShort)
	}

	user, err := s.api.Register(ctx, username, email, password)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Authenticate exchanges credentials for an access token.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", apperrors.Validation(MsgCredentialsRequired)
	}

	token, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.logger.Info().Err(err).Str("username", username).Msg("login failed")
		return "", err
	}
	return token.AccessToken, nil
}
