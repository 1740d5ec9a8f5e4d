package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
	ErrWrongType    = errors.New("unexpected token type")
)

// Token types carried in Claims.Type.
const (
	TypeAccess   = "access"
	TypeRefresh  = "refresh"
	TypeRealtime = "realtime"
)

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string   `json:"user_id"`
	Email    string   `json:"email,omitempty"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Type     string   `json:"type"`

	// Realtime credentials only.
	ClientID string   `json:"client_id,omitempty"`
	Scope    []string `json:"scope,omitempty"`
}

// Verifier validates tokens with an RSA public key. Clients that only need to
// check credentials handed to them use a Verifier instead of a Manager.
type Verifier struct {
	publicKey *rsa.PublicKey
	issuer    string
}

// NewVerifier creates a verifier. An empty issuer disables the issuer check.
func NewVerifier(publicKey *rsa.PublicKey, issuer string) *Verifier {
	return &Verifier{publicKey: publicKey, issuer: issuer}
}

// Validate parses and verifies a token and returns its claims.
func (v *Verifier) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.publicKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRealtime validates a realtime credential.
func (v *Verifier) ValidateRealtime(tokenString string) (*Claims, error) {
	claims, err := v.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeRealtime || claims.ClientID == "" {
		return nil, ErrWrongType
	}
	return claims, nil
}

// Manager handles JWT operations.
type Manager struct {
	*Verifier

	privateKey      *rsa.PrivateKey
	accessDuration  time.Duration
	refreshDuration time.Duration
	issuer          string

	// userID -> revocation time. Tokens issued at or before that time are rejected.
	revokedTokens map[string]time.Time
	mu            sync.RWMutex
	now           func() time.Time
}

// NewManager creates a new JWT manager with a freshly generated key pair.
func NewManager(accessDuration, refreshDuration time.Duration, issuer string) (*Manager, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return NewManagerWithKey(privateKey, accessDuration, refreshDuration, issuer), nil
}

// NewManagerWithKey creates a manager around an existing private key.
func NewManagerWithKey(privateKey *rsa.PrivateKey, accessDuration, refreshDuration time.Duration, issuer string) *Manager {
	return &Manager{
		Verifier:        NewVerifier(&privateKey.PublicKey, issuer),
		privateKey:      privateKey,
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
		issuer:          issuer,
		revokedTokens:   make(map[string]time.Time),
		now:             time.Now,
	}
}

// PublicKey returns the verification key.
func (m *Manager) PublicKey() *rsa.PublicKey {
	return m.publicKey
}

// GenerateTokenPair creates access and refresh tokens.
func (m *Manager) GenerateTokenPair(userID, email, username string, roles []string) (accessToken, refreshToken string, accessExp, refreshExp int64, err error) {
	now := m.now()

	accessExp = now.Add(m.accessDuration).Unix()
	accessToken, err = m.signToken(&Claims{
		RegisteredClaims: m.registered(userID, now, m.accessDuration),
		UserID:           userID,
		Email:            email,
		Username:         username,
		Roles:            roles,
		Type:             TypeAccess,
	})
	if err != nil {
		return "", "", 0, 0, err
	}

	refreshExp = now.Add(m.refreshDuration).Unix()
	refreshToken, err = m.signToken(&Claims{
		RegisteredClaims: m.registered(userID, now, m.refreshDuration),
		UserID:           userID,
		Email:            email,
		Username:         username,
		Roles:            roles,
		Type:             TypeRefresh,
	})
	if err != nil {
		return "", "", 0, 0, err
	}

	return accessToken, refreshToken, accessExp, refreshExp, nil
}

// GenerateRealtimeToken issues a short-lived credential that identifies the
// caller to the realtime transport as clientID, limited to the given scope.
func (m *Manager) GenerateRealtimeToken(userID, clientID string, scope []string, ttl time.Duration) (string, int64, error) {
	if clientID == "" {
		return "", 0, fmt.Errorf("client id is required")
	}
	now := m.now()
	token, err := m.signToken(&Claims{
		RegisteredClaims: m.registered(userID, now, ttl),
		UserID:           userID,
		Type:             TypeRealtime,
		ClientID:         clientID,
		Scope:            scope,
	})
	if err != nil {
		return "", 0, err
	}
	return token, now.Add(ttl).Unix(), nil
}

// ValidateToken validates a token, including revocation, and returns claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	revokedAt, revoked := m.revokedTokens[claims.UserID]
	m.mu.RUnlock()
	if revoked && claims.IssuedAt != nil && !claims.IssuedAt.Time.After(revokedAt) {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// RefreshTokens creates new token pair from a valid refresh token.
func (m *Manager) RefreshTokens(refreshTokenString string) (accessToken, refreshToken string, accessExp, refreshExp int64, err error) {
	claims, err := m.ValidateToken(refreshTokenString)
	if err != nil {
		return "", "", 0, 0, err
	}

	if claims.Type != TypeRefresh {
		return "", "", 0, 0, ErrInvalidToken
	}

	return m.GenerateTokenPair(claims.UserID, claims.Email, claims.Username, claims.Roles)
}

// RevokeUserTokens revokes every token issued to a user up to now.
func (m *Manager) RevokeUserTokens(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokedTokens[userID] = m.now()
}

// IsRevoked checks if user's tokens are revoked.
func (m *Manager) IsRevoked(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.revokedTokens[userID]
	return exists
}

// CleanupExpiredRevocations removes revocation entries older than any token
// that could still be valid.
func (m *Manager) CleanupExpiredRevocations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.refreshDuration)
	for userID, revokedAt := range m.revokedTokens {
		if revokedAt.Before(cutoff) {
			delete(m.revokedTokens, userID)
		}
	}
}

func (m *Manager) registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (m *Manager) signToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(m.privateKey)
}

// LoadPrivateKey reads a PEM encoded RSA private key (PKCS#1 or PKCS#8).
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// LoadPublicKey reads a PEM encoded RSA public key.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return key, nil
}

// EncodePublicKey returns the PKIX PEM encoding of a public key.
func EncodePublicKey(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
