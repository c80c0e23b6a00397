package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/kds-identity-api/pkg/jwt"
)

const (
	testSecret     = "test-secret-key-for-unit-tests"
	testIdentityID = "00000000-0000-0000-0000-000000000001"
)

func TestGenerateAndParse(t *testing.T) {
	tok, exp, err := pkgjwt.Generate(testSecret, testIdentityID, "admin@example.com", "authenticated", "kds-test", 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := pkgjwt.Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, testIdentityID, claims.Subject)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "authenticated", claims.Role)
	assert.Equal(t, "kds-test", claims.Issuer)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, _, err := pkgjwt.Generate(testSecret, testIdentityID, "a@b.co", "authenticated", "kds-test", -1)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(testSecret, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, _, err := pkgjwt.Generate(testSecret, testIdentityID, "a@b.co", "authenticated", "kds-test", 60)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, _, err := pkgjwt.Generate("", testIdentityID, "a@b.co", "authenticated", "kds-test", 60)
	assert.Error(t, err)
}
