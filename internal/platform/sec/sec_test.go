// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package sec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestHashPassword_RoundTrip(t *testing.T) {
	hashed, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hashed)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hashed))
	assert.False(t, CheckPasswordHash("wrong password", hashed))
}

func TestGenerateSecureToken_Format(t *testing.T) {
	token, err := GenerateSecureToken(20)
	require.NoError(t, err)

	// 20 bytes of entropy encode to 32 unpadded base32 characters.
	assert.Len(t, token, 32)
	assert.Equal(t, token, string([]byte(token)), "token must be plain ASCII")

	for _, char := range token {
		isLowerAlpha := char >= 'a' && char <= 'z'
		isDigit := char >= '2' && char <= '7'
		assert.True(t, isLowerAlpha || isDigit, "unexpected character %q", char)
	}

	// Two tokens must never collide in practice.
	other, err := GenerateSecureToken(20)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashToken_Deterministic(t *testing.T) {
	first := HashToken("some-opaque-token")
	second := HashToken("some-opaque-token")

	assert.Equal(t, first, second)
	assert.Len(t, first, 64, "sha256 hex digest is 64 characters")
	assert.NotEqual(t, first, HashToken("another-token"))
}

func TestTokenService_GenerateAndVerify(t *testing.T) {
	service, err := NewTokenService(testSecret, "filingdigest.app")
	require.NoError(t, err)

	signed, err := service.GenerateAccessToken("user-123", "ana@example.com", string(RoleMember), true, time.Hour)
	require.NoError(t, err)

	claims, err := service.VerifyToken(signed)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, string(RoleMember), claims.Role)
	assert.True(t, claims.Verified)
	assert.Equal(t, "filingdigest.app", claims.Issuer)
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	service, err := NewTokenService(testSecret, "filingdigest.app")
	require.NoError(t, err)

	signed, err := service.GenerateAccessToken("user-123", "ana@example.com", string(RoleMember), false, -time.Minute)
	require.NoError(t, err)

	_, err = service.VerifyToken(signed)
	assert.Error(t, err)
}

func TestTokenService_RejectsWrongSecret(t *testing.T) {
	signer, err := NewTokenService(testSecret, "filingdigest.app")
	require.NoError(t, err)
	verifier, err := NewTokenService("ffffffffffffffffffffffffffffffff", "filingdigest.app")
	require.NoError(t, err)

	signed, err := signer.GenerateAccessToken("user-123", "ana@example.com", string(RoleAdmin), true, time.Hour)
	require.NoError(t, err)

	_, err = verifier.VerifyToken(signed)
	assert.Error(t, err)
}

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("too-short", "filingdigest.app")
	assert.Error(t, err)
}

func TestUserRole_AtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleMember))
	assert.True(t, RoleMember.AtLeast(RoleMember))
	assert.False(t, RoleMember.AtLeast(RoleAdmin))
	assert.False(t, UserRole("unknown").AtLeast(RoleMember))
}
