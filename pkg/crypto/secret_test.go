package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := HashSecret("sk_test_secret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "argon2id$v=19$"))
	require.NotContains(t, hash, "sk_test_secret")

	ok, err := VerifySecret("sk_test_secret", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifySecret("sk_wrong_secret", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashSecret_SaltedPerCall(t *testing.T) {
	a, err := HashSecret("same")
	require.NoError(t, err)
	b, err := HashSecret("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifySecret_Malformed(t *testing.T) {
	_, err := VerifySecret("s", "not-a-hash")
	require.Error(t, err)

	_, err = VerifySecret("", "")
	require.Error(t, err)

	_, err = VerifySecret("s", "bcrypt$v=19$m=1,t=1,p=1$a$b")
	require.Error(t, err)
}

func TestGenerateRandomToken(t *testing.T) {
	tok, err := GenerateRandomToken(24)
	require.NoError(t, err)
	require.Len(t, tok, 48)

	other, err := GenerateRandomToken(24)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)
}
