package jwt

import (
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	jwtAuth := jwtauth.New("HS256", []byte("secret"), nil)
	tok, err := NewToken(jwtAuth, time.Hour, Claims{Subject: "ana@example.com", Role: RoleCouple, Weddings: []int{3, 9}})
	require.NoError(t, err)

	c, err := VerifyToken(jwtAuth, tok)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", c.Subject)
	assert.Equal(t, RoleCouple, c.Role)
	assert.Equal(t, []int{3, 9}, c.Weddings)
	assert.True(t, c.CanAccess(9))
	assert.False(t, c.CanAccess(4))
}

func TestStaffReachesEveryWedding(t *testing.T) {
	jwtAuth := jwtauth.New("HS256", []byte("secret"), nil)
	tok, err := NewToken(jwtAuth, time.Hour, Claims{Subject: "desk", Role: RoleStaff})
	require.NoError(t, err)

	c, err := VerifyToken(jwtAuth, tok)
	require.NoError(t, err)
	assert.Empty(t, c.Weddings)
	assert.True(t, c.CanAccess(1234))
}

func TestTokenRejected(t *testing.T) {
	jwtAuth := jwtauth.New("HS256", []byte("secret"), nil)

	_, err := NewToken(jwtAuth, time.Hour, Claims{Role: RoleCouple})
	assert.Error(t, err)
	_, err = NewToken(jwtAuth, time.Hour, Claims{Subject: "x", Role: "admin"})
	assert.Error(t, err)

	expired, err := NewToken(jwtAuth, -time.Hour, Claims{Subject: "x", Role: RolePlanner})
	require.NoError(t, err)
	_, err = VerifyToken(jwtAuth, expired)
	assert.Error(t, err)

	other := jwtauth.New("HS256", []byte("other"), nil)
	tok, err := NewToken(other, time.Hour, Claims{Subject: "x", Role: RolePlanner})
	require.NoError(t, err)
	_, err = VerifyToken(jwtAuth, tok)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	_, _, err := New(&Config{})
	assert.Error(t, err)

	_, _, err = New(&Config{JWTSecret: "s", JWTTTL: "soon"})
	assert.Error(t, err)

	ja, ttl, err := New(&Config{JWTSecret: "s", JWTTTL: "2h"})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ttl)

	tok, err := NewToken(ja, ttl, Claims{Subject: "ops", Role: RolePlanner, Weddings: []int{1}})
	require.NoError(t, err)
	c, err := VerifyToken(ja, tok)
	require.NoError(t, err)
	assert.Equal(t, RolePlanner, c.Role)
}
