package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/models"
)

func (f *fakeAPI) Register(_ context.Context, username, email, _ string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, username)
	return &models.User{ID: int64(len(f.users)), Username: username, Email: email}, nil
}

func (f *fakeAPI) Login(_ context.Context, username, _ string) (*models.Token, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.Token{AccessToken: "token-for-" + username, TokenType: "bearer"}, nil
}

func TestAccountService_Register(t *testing.T) {
	api := newFakeAPI()
	svc := NewAccountService(api, nil)

	user, err := svc.Register(context.Background(), " alice ", " alice@example.com ", "s3cretpass")
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, []string{"alice"}, api.users)
}

func TestAccountService_Register_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		email     string
		password  string
		wantField string
		wantMsg   string
	}{
		{"missing username", "", "a@example.com", "s3cretpass", "username", MsgUsernameRequired},
		{"markup username", "<b></b>", "a@example.com", "s3cretpass", "username", MsgUsernameRequired},
		{"long username", longName(51), "a@example.com", "s3cretpass", "username", MsgUsernameTooLong},
		{"bad email", "alice", "not-an-email", "s3cretpass", "email", MsgEmailInvalid},
		{"missing password", "alice", "a@example.com", "", "password", MsgPasswordRequired},
		{"short password", "alice", "a@example.com", "short", "password", MsgPasswordTooShort},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI()
			svc := NewAccountService(api, nil)

			_, err := svc.Register(context.Background(), tc.username, tc.email, tc.password)
			require.Error(t, err)

			appErr := apperrors.As(err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tc.wantField, appErr.Field())
			assert.Equal(t, tc.wantMsg, appErr.Message)
			assert.Empty(t, api.users)
		})
	}
}

func TestAccountService_Authenticate(t *testing.T) {
	svc := NewAccountService(newFakeAPI(), nil)

	token, err := svc.Authenticate(context.Background(), " alice ", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "token-for-alice", token)
}

func TestAccountService_Authenticate_MissingCredentials(t *testing.T) {
	svc := NewAccountService(newFakeAPI(), nil)

	_, err := svc.Authenticate(context.Background(), "alice", "")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, MsgCredentialsRequired, apperrors.UserMessage(err))
}

func TestAccountService_Authenticate_Rejected(t *testing.T) {
	api := newFakeAPI()
	api.loginErr = apperrors.FromAPI(http.StatusUnauthorized, "Incorrect username or password", nil, "Login failed. Please check your credentials.")
	svc := NewAccountService(api, nil)

	_, err := svc.Authenticate(context.Background(), "alice", "wrongpass")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, "Incorrect username or password", apperrors.UserMessage(err))
}
