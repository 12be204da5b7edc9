package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/user"
)

type mockUserRepository struct {
	createFunc     func(ctx context.Context, u *user.User) error
	getByIDFunc    func(ctx context.Context, id uuid.UUID) (*user.User, error)
	getByEmailFunc func(ctx context.Context, email string) (*user.User, error)
}

func (m *mockUserRepository) Create(ctx context.Context, u *user.User) error {
	return m.createFunc(ctx, u)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.getByEmailFunc(ctx, email)
}

func TestService_Register(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	tests := []struct {
		name       string
		user       *user.User
		password   string
		createFunc func(ctx context.Context, u *user.User) error
		wantErr    bool
		wantErrIs  error
	}{
		{
			name:     "empty_password_rejected",
			user:     &user.User{Email: "a@b.co", Role: auth.RoleCashier},
			password: "",
			wantErr:  true,
		},
		{
			name:     "unknown_role_rejected",
			user:     &user.User{Email: "a@b.co", Role: auth.Role("janitor")},
			password: "hunter2hunter2",
			wantErr:  true,
		},
		{
			name:       "duplicate_email_reported",
			user:       &user.User{Email: "a@b.co", Role: auth.RoleCashier},
			password:   "hunter2hunter2",
			createFunc: func(_ context.Context, _ *user.User) error { return user.ErrEmailExists },
			wantErr:    true,
			wantErrIs:  user.ErrEmailExists,
		},
		{
			name:       "password_is_hashed",
			user:       &user.User{Email: "a@b.co", Role: auth.RoleManager},
			password:   "hunter2hunter2",
			createFunc: func(_ context.Context, _ *user.User) error { return nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUserRepository{createFunc: tt.createFunc}
			svc := user.NewService(repo, issuer)

			created, err := svc.Register(context.Background(), tt.user, tt.password)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
				}
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, created.PasswordHash)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte(tt.password)))
		})
	}
}

func TestService_Login(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	tenantID := uuid.Must(uuid.NewV4())
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &user.User{
		ID:           uuid.Must(uuid.NewV4()),
		Email:        "cashier@shop.example",
		PasswordHash: string(hash),
		Role:         auth.RoleCashier,
		TenantID:     &tenantID,
	}

	repo := &mockUserRepository{
		getByEmailFunc: func(_ context.Context, email string) (*user.User, error) {
			if email == stored.Email {
				return stored, nil
			}
			return nil, user.ErrNotFound
		},
	}
	svc := user.NewService(repo, issuer)

	t.Run("valid_credentials_issue_token", func(t *testing.T) {
		token, loggedIn, err := svc.Login(context.Background(), stored.Email, "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, loggedIn.ID)

		principal, err := issuer.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, principal.UserID)
		assert.Equal(t, auth.RoleCashier, principal.Role)
		require.NotNil(t, principal.TenantID)
		assert.Equal(t, tenantID, *principal.TenantID)
	})

	t.Run("wrong_password_rejected", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), stored.Email, "wrong")
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})

	t.Run("unknown_email_same_error_as_wrong_password", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "nobody@shop.example", "whatever")
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})
}
