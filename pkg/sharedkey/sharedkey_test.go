package sharedkey

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCustomer = "5c4fb1d2-0000-4000-8000-9a2b3c4d5e6f"
	testKey      = "c3VwZXItc2VjcmV0LXdvcmtzcGFjZS1rZXk=" // "super-secret-workspace-key"
	testDate     = "Wed, 04 Mar 2026 05:08:09 GMT"
)

func TestStringToSign_Layout(t *testing.T) {
	got := StringToSign(testDate, 123, "POST", "application/json", "/api/logs")
	want := "POST\n123\napplication/json\nx-ms-date:Wed, 04 Mar 2026 05:08:09 GMT\n/api/logs"
	assert.Equal(t, want, got)
}

func TestSign_KnownVector(t *testing.T) {
	s, err := New(testCustomer, testKey)
	require.NoError(t, err)

	got := s.Sign(testDate, 123, "POST", "application/json", "/api/logs")
	assert.Equal(t, "SharedKey "+testCustomer+":G3A7G6Ysi2txHzSSAid0KBdUbBVjIl6CrypCjHRnDgw=", got)
}

func TestSign_Deterministic(t *testing.T) {
	s, err := New(testCustomer, testKey)
	require.NoError(t, err)

	a := s.Sign(testDate, 10, "POST", "application/json", "/api/logs")
	b := s.Sign(testDate, 10, "POST", "application/json", "/api/logs")
	assert.Equal(t, a, b)
}

func TestSign_EveryInputChangesOutput(t *testing.T) {
	s, err := New(testCustomer, testKey)
	require.NoError(t, err)
	other, err := New(testCustomer, "b3RoZXIta2V5") // "other-key"
	require.NoError(t, err)

	base := s.Sign(testDate, 10, "POST", "application/json", "/api/logs")

	variants := map[string]string{
		"date":           s.Sign("Thu, 05 Mar 2026 05:08:09 GMT", 10, "POST", "application/json", "/api/logs"),
		"content_length": s.Sign(testDate, 11, "POST", "application/json", "/api/logs"),
		"method":         s.Sign(testDate, 10, "PUT", "application/json", "/api/logs"),
		"content_type":   s.Sign(testDate, 10, "POST", "text/plain", "/api/logs"),
		"resource":       s.Sign(testDate, 10, "POST", "application/json", "/api/other"),
		"secret":         other.Sign(testDate, 10, "POST", "application/json", "/api/logs"),
	}
	for name, v := range variants {
		assert.NotEqual(t, base, v, "changing %s must change the signature", name)
	}
}

func TestNew_InvalidKey(t *testing.T) {
	for _, key := range []string{"", "not base64!!"} {
		_, err := New(testCustomer, key)
		require.Error(t, err, "key %q", key)
		assert.True(t, errors.Is(err, ErrInvalidKey), "key %q: %v", key, err)
	}
}

func TestVerify(t *testing.T) {
	s, err := New(testCustomer, testKey)
	require.NoError(t, err)

	h := s.Sign(testDate, 55, "POST", "application/json", "/api/logs")
	assert.True(t, s.Verify(h, testDate, 55, "POST", "application/json", "/api/logs"))
	assert.False(t, s.Verify(h, testDate, 56, "POST", "application/json", "/api/logs"))
	assert.False(t, s.Verify("Bearer abc", testDate, 55, "POST", "application/json", "/api/logs"))

	wrongID, err := New("someone-else", testKey)
	require.NoError(t, err)
	assert.False(t, wrongID.Verify(h, testDate, 55, "POST", "application/json", "/api/logs"))
}

func TestParse(t *testing.T) {
	id, sig, ok := Parse("SharedKey abc:def=")
	require.True(t, ok)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "def=", sig)

	for _, h := range []string{"", "SharedKey", "SharedKey abc", "SharedKey :sig", "sharedkey abc:def"} {
		_, _, ok := Parse(h)
		assert.False(t, ok, "Parse(%q)", h)
	}
}
