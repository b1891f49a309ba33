package identity

import (
	"errors"
	"strings"
	"testing"

	"github.com/store/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("  Admin ", "admin", AuthorityAdmin, AuthorityUser)
	require.NoError(t, err)

	assert.Equal(t, "admin", u.Login)
	assert.True(t, u.Activated)
	assert.True(t, u.CanLogin())
	assert.NotEqual(t, "admin", u.PasswordHash)
	assert.True(t, u.VerifyPassword("admin"))
	assert.False(t, u.VerifyPassword("Admin"))
	assert.True(t, u.HasAuthority(AuthorityAdmin))
	assert.NotNil(t, u.PasswordAt)
}

func TestNewUser_Invalid(t *testing.T) {
	_, err := NewUser(" ", "secret")
	assert.Error(t, err)

	_, err = NewUser("bob", "abc")
	assert.Error(t, err)

	_, err = NewUser("bob", strings.Repeat("x", PasswordMaxLength+1))
	assert.Error(t, err)
}

func TestUser_ChangePassword(t *testing.T) {
	u, err := NewUser("user", "user", AuthorityUser)
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := u.ChangePassword("nope", "new-password")
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidPassword))
		assert.Equal(t, "Incorrect password", err.Error())
		assert.True(t, u.VerifyPassword("user"))
	})

	t.Run("new password too short", func(t *testing.T) {
		err := u.ChangePassword("user", "abc")
		require.Error(t, err)
		assert.False(t, errors.Is(err, shared.ErrInvalidPassword))
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, u.ChangePassword("user", "new-password"))
		assert.True(t, u.VerifyPassword("new-password"))
		assert.False(t, u.VerifyPassword("user"))
	})
}

func TestUser_HasAuthority(t *testing.T) {
	u := &User{Authorities: []string{AuthorityUser}}
	assert.True(t, u.HasAuthority(AuthorityUser))
	assert.False(t, u.HasAuthority(AuthorityAdmin))
}
