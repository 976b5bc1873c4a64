package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"coinzy/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "coinzy"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWeakSecret   = errors.New("token secret must be at least 16 bytes")
)

// FamilyClaims carries the auth context inside a signed token
type FamilyClaims struct {
	jwt.RegisteredClaims
	FamilyID string      `json:"familyId"`
	Role     models.Role `json:"role"`
}

// TokenManager issues and verifies HS256 bearer tokens
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager creates a token manager for the shared secret
func NewTokenManager(secret string) (*TokenManager, error) {
	if len(secret) < 16 {
		return nil, ErrWeakSecret
	}
	return &TokenManager{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for a family member valid for ttl
func (m *TokenManager) Issue(auth models.AuthContext, ttl time.Duration) (string, error) {
	if auth.FamilyID == "" || !auth.Role.Valid() {
		return "", fmt.Errorf("%w: family id and a valid role are required", ErrInvalidToken)
	}

	now := m.now()
	claims := FamilyClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   auth.FamilyID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		FamilyID: auth.FamilyID,
		Role:     auth.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks the signature, expiry and issuer and returns the auth context
func (m *TokenManager) Verify(token string) (models.AuthContext, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &FamilyClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return models.AuthContext{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.FamilyID == "" || claims.FamilyID != claims.Subject {
		return models.AuthContext{}, fmt.Errorf("%w: family claim mismatch", ErrInvalidToken)
	}
	return models.AuthContext{FamilyID: claims.FamilyID, Role: claims.Role}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header value
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
