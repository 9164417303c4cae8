package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types embedded in the typ claim so refresh tokens cannot be
// presented on protected endpoints.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// VerifyReason classifies why token verification failed.
type VerifyReason string

const (
	ReasonExpired       VerifyReason = "expired"
	ReasonMalformed     VerifyReason = "malformed"
	ReasonBadSignature  VerifyReason = "bad signature"
	ReasonWrongType     VerifyReason = "wrong token type"
	ReasonMissingClaims VerifyReason = "missing claims"
)

// VerifyError is the typed failure returned by token verification. It is
// consumed by the authorization gate, never propagated as a panic.
type VerifyError struct {
	Reason VerifyReason
	cause  error
}

func (e *VerifyError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("auth: token verification failed (%s): %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("auth: token verification failed (%s)", e.Reason)
}

func (e *VerifyError) Unwrap() error { return e.cause }

// Claims is the signed payload carried by both token types. The subject is
// the user's decimal id; the role is a snapshot taken at issuance.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"typ"`
}

// UserID parses the subject claim into the user's numeric identity.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, &VerifyError{Reason: ReasonMissingClaims, cause: err}
	}
	return id, nil
}

// TokenManager mints and verifies signed, time-bounded tokens. Verification
// is pure and safe for concurrent use.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager constructs a TokenManager signing with an HMAC secret.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue mints an access/refresh token pair for the given identity and role.
// Claims are immutable once minted; a role change only shows up in tokens
// issued by a later login.
func (m *TokenManager) Issue(userID int64, role string) (TokenPair, error) {
	access, err := m.mint(userID, role, TokenTypeAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.mint(userID, role, TokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess mints a fresh access token only, used by the refresh flow.
func (m *TokenManager) IssueAccess(userID int64, role string) (string, error) {
	return m.mint(userID, role, TokenTypeAccess, m.accessTTL)
}

func (m *TokenManager) mint(userID int64, role, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role:      role,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccess validates an access token and returns its claims.
func (m *TokenManager) VerifyAccess(tokenString string) (*Claims, error) {
	return m.verify(tokenString, TokenTypeAccess)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (m *TokenManager) VerifyRefresh(tokenString string) (*Claims, error) {
	return m.verify(tokenString, TokenTypeRefresh)
}

func (m *TokenManager) verify(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, &VerifyError{Reason: ReasonExpired, cause: err}
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, &VerifyError{Reason: ReasonBadSignature, cause: err}
		default:
			return nil, &VerifyError{Reason: ReasonMalformed, cause: err}
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &VerifyError{Reason: ReasonMalformed}
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, &VerifyError{Reason: ReasonMissingClaims}
	}
	if claims.TokenType != wantType {
		return nil, &VerifyError{Reason: ReasonWrongType}
	}
	return claims, nil
}
