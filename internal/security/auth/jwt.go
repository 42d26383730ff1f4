package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

type Claims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"is_admin"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Pair is what a successful login returns.
type Pair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

// Subject is the identity a token is issued for.
type Subject struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if issuer == "" {
		issuer = "voteapi"
	}
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair signs a fresh access and refresh token for sub.
func (tm *TokenManager) IssuePair(sub Subject) (Pair, error) {
	access, err := tm.issue(sub, TokenTypeAccess, tm.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := tm.issue(sub, TokenTypeRefresh, tm.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Refresh: refresh, Access: access}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (tm *TokenManager) Refresh(refreshToken string) (string, error) {
	claims, err := tm.Validate(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return tm.issue(Subject{UserID: claims.UserID, Username: claims.Username, IsAdmin: claims.IsAdmin}, TokenTypeAccess, tm.accessTTL)
}

func (tm *TokenManager) issue(sub Subject, tokenType string, ttl time.Duration) (string, error) {
	now := tm.now()
	claims := Claims{
		UserID:    sub.UserID,
		Username:  sub.Username,
		IsAdmin:   sub.IsAdmin,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(sub.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Validate parses tokenString and checks it is an unexpired token of wantType.
func (tm *TokenManager) Validate(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithIssuer(tm.issuer),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.TokenType, wantType)
	}
	return claims, nil
}

// ExtractToken returns the credential of a "Bearer <token>" header.
func ExtractToken(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}
