package users_test

import (
	"testing"

	"github.com/jrsteele09/go-estate-client/internal/utils"
	"github.com/jrsteele09/go-estate-client/users"
	fakeuserrepo "github.com/jrsteele09/go-estate-client/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Password123", false},
		{"too short", "Pa1", true},
		{"no upper", "password123", true},
		{"no lower", "PASSWORD123", true},
		{"no number", "Passwordabc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := users.HashPassword("Secret123")
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash("Secret123", hash))
	require.False(t, users.CheckPasswordHash("secret123", hash))
}

func TestRoles(t *testing.T) {
	admin := &users.User{Role: users.RoleAdmin}
	employee := &users.User{Role: users.RoleEmployee}
	member := &users.User{Role: users.RoleUser}
	var nobody *users.User

	require.True(t, admin.IsAdmin())
	require.True(t, admin.IsStaff())
	require.False(t, employee.IsAdmin())
	require.True(t, employee.IsStaff())
	require.False(t, member.IsStaff())
	require.False(t, nobody.HasRole(users.RoleUser))
	require.False(t, users.RoleType("owner").Valid())
}

func TestFakeRepoUpdateProfile(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	require.NoError(t, repo.Upsert(&users.User{Email: "A@B.com", Username: "alice", Role: users.RoleUser}))

	u, err := repo.GetByEmail("a@b.com")
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	updated, err := repo.UpdateProfile(u.ID, users.ProfileUpdate{Username: utils.Ptr("alice2")})
	require.NoError(t, err)
	require.Equal(t, "alice2", updated.Username)
	require.NotNil(t, updated.UpdatedAt)

	// Returned copies must not alias the stored user
	updated.Username = "mutated"
	again, err := repo.GetByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice2", again.Username)
}
