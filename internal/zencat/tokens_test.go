package zencat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetReplacesPairAtomically(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Tokens()
	require.False(t, ok)

	s.Set(TokenPair{AccessToken: "AT1", RefreshToken: "RT1", TokenType: "Bearer"})

	pair, ok := s.Tokens()
	require.True(t, ok)
	require.Equal(t, "AT1", pair.AccessToken)
	require.Equal(t, "RT1", pair.RefreshToken)

	// Set заменяет пару целиком: старый refresh не переживает новую пару.
	s.Set(TokenPair{AccessToken: "AT2", RefreshToken: "RT2"})

	pair, ok = s.Tokens()
	require.True(t, ok)
	require.Equal(t, "AT2", pair.AccessToken)
	require.Equal(t, "RT2", pair.RefreshToken)
}

func TestMemoryStore_ClearIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	s.Set(TokenPair{AccessToken: "AT1", RefreshToken: "RT1"})

	s.Clear()
	_, ok := s.Tokens()
	require.False(t, ok)

	// Повторная очистка пустого стора — no-op.
	s.Clear()
	_, ok = s.Tokens()
	require.False(t, ok)
}

func TestIsAuthenticated(t *testing.T) {
	s := NewMemoryStore()
	require.False(t, IsAuthenticated(s))

	s.Set(TokenPair{AccessToken: "AT1", RefreshToken: "RT1"})
	require.True(t, IsAuthenticated(s))

	// Пара без access-токена аутентификацией не считается.
	s.Set(TokenPair{RefreshToken: "RT1"})
	require.False(t, IsAuthenticated(s))

	s.Clear()
	require.False(t, IsAuthenticated(s))
}

func TestFingerprint_StableAndDistinct(t *testing.T) {
	require.Equal(t, Fingerprint("RT1"), Fingerprint("RT1"))
	require.NotEqual(t, Fingerprint("RT1"), Fingerprint("RT2"))
	require.NotContains(t, Fingerprint("secret-refresh-token"), "secret")
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set(TokenPair{AccessToken: "AT", RefreshToken: "RT"})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Tokens()
		}()
	}
	wg.Wait()

	pair, ok := s.Tokens()
	require.True(t, ok)
	require.Equal(t, "AT", pair.AccessToken)
}
