package services

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	svc := NewTwoFactorService("Harbor Grill")

	setup, err := svc.GenerateSecret("staff@harborgrill.test")
	require.NoError(t, err)

	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.OTPAuthURL, "otpauth://totp/")
	assert.Contains(t, setup.OTPAuthURL, "staff%40harborgrill.test")
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))
}

func TestVerifyCode(t *testing.T) {
	svc := NewTwoFactorService("Harbor Grill")

	setup, err := svc.GenerateSecret("staff@harborgrill.test")
	require.NoError(t, err)

	now := time.Now()
	svc.now = func() time.Time { return now }

	code, err := totp.GenerateCode(setup.Secret, now)
	require.NoError(t, err)

	assert.True(t, svc.Verify(setup.Secret, code))
	assert.False(t, svc.Verify(setup.Secret, "000000"))
	assert.False(t, svc.Verify(setup.Secret, "not-a-code"))
}

func TestVerifyAllowsOnePeriodOfSkew(t *testing.T) {
	svc := NewTwoFactorService("Harbor Grill")

	setup, err := svc.GenerateSecret("staff@harborgrill.test")
	require.NoError(t, err)

	now := time.Now()
	svc.now = func() time.Time { return now }

	// Code from the previous 30s window still validates
	code, err := totp.GenerateCode(setup.Secret, now.Add(-30*time.Second))
	require.NoError(t, err)
	assert.True(t, svc.Verify(setup.Secret, code))

	// Two windows back does not
	code, err = totp.GenerateCode(setup.Secret, now.Add(-90*time.Second))
	require.NoError(t, err)
	assert.False(t, svc.Verify(setup.Secret, code))
}
