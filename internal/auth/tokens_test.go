package auth

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/id"
)

func testKey() []byte {
	return bytes.Repeat([]byte{7}, keyLength)
}

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	s, err := NewTokenService(testKey(), time.Hour)
	require.NoError(t, err)
	return s
}

func TestNewTokenService_Validation(t *testing.T) {
	_, err := NewTokenService([]byte("short"), time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService(testKey(), 0)
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	s := newTestTokenService(t)
	actor := domain.EntityRef{Type: "user", ID: "u-1"}

	token, expires, err := s.Issue(actor)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, actor, claims.Actor())
	assert.Equal(t, "user:u-1", claims.Subject)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.True(t, id.HasPrefix(claims.TokenID, id.PrefixToken))
}

func TestIssue_RejectsEmptyActor(t *testing.T) {
	s := newTestTokenService(t)

	_, _, err := s.Issue(domain.EntityRef{})
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	s := newTestTokenService(t)
	issued := time.Now()
	s.now = func() time.Time { return issued }

	token, _, err := s.Issue(domain.EntityRef{Type: "user", ID: "u-1"})
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = s.Verify(token)
	assert.Error(t, err)
}

func TestVerify_WrongKey(t *testing.T) {
	s := newTestTokenService(t)
	token, _, err := s.Issue(domain.EntityRef{Type: "user", ID: "u-1"})
	require.NoError(t, err)

	other, err := NewTokenService(bytes.Repeat([]byte{9}, keyLength), time.Hour)
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	s := newTestTokenService(t)

	_, err := s.Verify("not-a-token")
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "nested", "token.key")

	key, err := LoadOrGenerateKey(keyPath)
	require.NoError(t, err)
	assert.Len(t, key, keyLength)

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadOrGenerateKey(keyPath)
	require.NoError(t, err)
	assert.Equal(t, key, again)
}

func TestLoadOrGenerateKey_Invalid(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "token.key")

	require.NoError(t, os.WriteFile(keyPath, []byte("abc"), 0o600))
	_, err := LoadOrGenerateKey(keyPath)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(keyPath, []byte(strings.Repeat("zz", keyLength)), 0o600))
	_, err = LoadOrGenerateKey(keyPath)
	assert.Error(t, err)
}

func TestVerify_SubjectMustMatchActor(t *testing.T) {
	s := newTestTokenService(t)
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(time.Hour))
	token.SetSubject("user:u-1")
	token.SetString("actor_type", "user")
	token.SetString("actor_id", "u-2")

	_, err := s.Verify(token.V4Encrypt(s.symmetricKey, nil))
	assert.Error(t, err)
}
