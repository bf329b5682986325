package service

import (
	"testing"
	"time"

	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/app/repository"
	"github.com/ikkim/annualreport-backend/internal/db"
	"github.com/ikkim/annualreport-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret"

func setupAuthServiceTest(t *testing.T) AuthService {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return NewAuthService(
		repository.NewUserRepository(testDB),
		testJWTSecret,
		15*time.Minute,
		7*24*time.Hour,
	)
}

func TestAuthService_CreateStaff(t *testing.T) {
	authService := setupAuthServiceTest(t)

	tests := []struct {
		name     string
		email    string
		password string
		role     model.UserRole
		wantRole model.UserRole
		wantErr  error
	}{
		{
			name:     "Advisor by default",
			email:    "dana@practice.test",
			password: "password123",
			wantRole: model.RoleAdvisor,
		},
		{
			name:     "Admin",
			email:    "noa@practice.test",
			password: "password123",
			role:     model.RoleAdmin,
			wantRole: model.RoleAdmin,
		},
		{
			name:     "Duplicate email",
			email:    "dana@practice.test",
			password: "password456",
			wantErr:  ErrEmailAlreadyExists,
		},
		{
			name:     "Unknown role",
			email:    "eli@practice.test",
			password: "password123",
			role:     model.UserRole("owner"),
			wantErr:  ErrInvalidRole,
		},
		{
			name:     "Short password",
			email:    "eli@practice.test",
			password: "short",
			wantErr:  ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := authService.CreateStaff(tt.email, tt.password, "Staff Member", tt.role)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, user.Role)
			assert.NotEqual(t, tt.password, user.PasswordHash)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	authService := setupAuthServiceTest(t)

	created, err := authService.CreateStaff("dana@practice.test", "password123", "Dana Levi", model.RoleAdvisor)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"Valid credentials", "dana@practice.test", "password123", nil},
		{"Wrong password", "dana@practice.test", "wrongpassword", ErrInvalidCredentials},
		{"Unknown email", "nobody@practice.test", "password123", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, tokens, err := authService.Login(tt.email, tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				assert.Nil(t, tokens)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, created.ID, user.ID)

			claims, err := util.ValidateToken(tokens.AccessToken, testJWTSecret)
			require.NoError(t, err)
			assert.Equal(t, created.ID, claims.UserID)
			assert.Equal(t, "Dana Levi", claims.Name)
			assert.Equal(t, string(model.RoleAdvisor), claims.Role)
		})
	}
}

func TestAuthService_GetUserByID(t *testing.T) {
	authService := setupAuthServiceTest(t)

	created, err := authService.CreateStaff("dana@practice.test", "password123", "Dana Levi", "")
	require.NoError(t, err)

	user, err := authService.GetUserByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "dana@practice.test", user.Email)

	_, err = authService.GetUserByID(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
