package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate("ops@strangerbeers.nl", RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@strangerbeers.nl", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateRejects(t *testing.T) {
	svc := NewJWTService("secret", 1)

	other, err := NewJWTService("other", 1).Generate("x", RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Validate(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWTService("secret", -1).Generate("x", RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Validate(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Validate(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
