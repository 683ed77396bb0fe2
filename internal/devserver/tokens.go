package devserver

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
)

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// issueTokens выдаёт новую пару: подписанный access и свежий refresh.
func (s *Server) issueTokens(ctx context.Context, u *userRecord) (zencat.TokenPair, error) {
	const op = "devserver.issueTokens"

	now := time.Now().UTC()

	claims := accessClaims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   u.ID,
		},
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return zencat.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.generateRefreshToken(ctx, u.ID)
	if err != nil {
		return zencat.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return zencat.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTTL / time.Second),
	}, nil
}

// validateAccessToken проверяет подпись и срок и возвращает ID пользователя.
func (s *Server) validateAccessToken(tokenStr string) (string, error) {
	const op = "devserver.validateAccessToken"

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims.Subject, nil
}

// generateRefreshToken создаёт случайный refresh-токен; в базе живёт
// только sha256-хэш, plaintext уходит клиенту один раз.
func (s *Server) generateRefreshToken(ctx context.Context, userID string) (string, error) {
	const op = "devserver.generateRefreshToken"

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	plain := base64.RawURLEncoding.EncodeToString(b)

	now := time.Now().UTC()
	rec := &refreshRecord{
		Hash:      hashToken(plain),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
	}

	if err := s.store.SaveRefreshToken(ctx, rec); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return plain, nil
}

// validateRefreshToken находит живой токен по plaintext-значению.
func (s *Server) validateRefreshToken(ctx context.Context, plain string) (*refreshRecord, error) {
	const op = "devserver.validateRefreshToken"

	rec, err := s.store.RefreshTokenByHash(ctx, hashToken(plain))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if rec.Revoked {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	if time.Now().UTC().After(rec.ExpiresAt) {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	return rec, nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
