package authgate

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IssueAccessToken mints a short-lived HS256 JWT for API clients that hold a
// valid session. API tokens are stateless and cannot be revoked server-side;
// their lifetime is bounded by Options.AccessTokenExpiry, and clients obtain
// fresh ones through their (revocable) session.
func (a *AuthGate) IssueAccessToken(userID string) (string, int64, error) {
	if a.Options.JWTSecretKey == "" {
		return "", 0, fmt.Errorf("API tokens not configured: no JWT secret key")
	}

	now := time.Now()
	expiry := a.Options.AccessTokenExpiry
	claims := jwt.MapClaims{
		"sub":  userID,
		"type": "access",
		"iat":  now.Unix(),
		"exp":  now.Add(expiry).Unix(),
	}
	if a.Options.JWTIssuer != "" {
		claims["iss"] = a.Options.JWTIssuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.Options.JWTSecretKey))
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, int64(expiry.Seconds()), nil
}

// VerifyAccessToken validates an API access token and returns the user ID.
// It fails when API tokens are not configured; an empty secret must never
// verify anything.
func (a *AuthGate) VerifyAccessToken(tokenString string) (string, error) {
	if a.Options.JWTSecretKey == "" {
		return "", fmt.Errorf("API tokens not configured: no JWT secret key")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.Options.JWTSecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	if tokenType, ok := claims["type"].(string); !ok || tokenType != "access" {
		return "", fmt.Errorf("invalid token type")
	}
	if a.Options.JWTIssuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != a.Options.JWTIssuer {
			return "", fmt.Errorf("invalid issuer")
		}
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("missing subject")
	}
	return sub, nil
}
