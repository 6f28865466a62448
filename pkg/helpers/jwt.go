package helpers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "library-catalog"

// Token kinds travel in the aud claim, so a refresh token is never accepted
// as an access token even when both secrets are equal.
const (
	audAccess  = "access"
	audRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// JWTManager signs and verifies the HS256 access/refresh pair.
type JWTManager struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	accessKey  []byte
	refreshKey []byte
	now        func() time.Time
}

func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		accessKey:  []byte(accessSecret),
		refreshKey: []byte(refreshSecret),
		now:        time.Now,
	}
}

// Claims identify the account, its role at sign time and the session the
// token belongs to.
type Claims struct {
	AccountID string `json:"uid"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (m *JWTManager) GenerateAccessToken(accountID, role, sessionID string) (string, time.Time, error) {
	return m.sign(audAccess, m.accessKey, m.AccessTTL, accountID, role, sessionID)
}

func (m *JWTManager) GenerateRefreshToken(accountID, role, sessionID string) (string, time.Time, error) {
	return m.sign(audRefresh, m.refreshKey, m.RefreshTTL, accountID, role, sessionID)
}

func (m *JWTManager) ParseAccessToken(token string) (*Claims, error) {
	return m.parse(token, audAccess, m.accessKey)
}

func (m *JWTManager) ParseRefreshToken(token string) (*Claims, error) {
	return m.parse(token, audRefresh, m.refreshKey)
}

func (m *JWTManager) sign(aud string, key []byte, ttl time.Duration, accountID, role, sessionID string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := Claims{
		AccountID: accountID,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   accountID,
			Audience:  jwt.ClaimStrings{aud},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", aud, err)
	}
	return signed, exp, nil
}

func (m *JWTManager) parse(token, aud string, key []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(aud),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.AccountID == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing account or session", ErrInvalidToken)
	}
	return claims, nil
}
