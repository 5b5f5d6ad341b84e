package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// TokenCookie carries the session token for browser clients.
	TokenCookie = "yatube_token"

	TokenIssuer   = "yatube-api"
	TokenAudience = "yatube-client"
	TokenTTL      = 7 * 24 * time.Hour
)

// Claims are the parts of a session token the application relies on.
type Claims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 session token for the user.
func IssueToken(secret string, userID uint, username string, now time.Time) (string, *Claims, error) {
	if secret == "" {
		return "", nil, errors.New("JWT secret not configured")
	}

	claims := &Claims{
		UserID:    userID,
		Username:  username,
		JTI:       fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
		ExpiresAt: now.Add(TokenTTL),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      claims.ExpiresAt.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      claims.JTI,
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken validates signature, expiry, issuer and audience and extracts the claims.
func ParseToken(secret, raw string) (*Claims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token: %w", err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, ok := mc["sub"].(string)
	if !ok {
		return nil, errors.New("invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, errors.New("invalid user ID in token")
	}

	claims := &Claims{UserID: uint(userID)}
	claims.Username, _ = mc["username"].(string)
	claims.JTI, _ = mc["jti"].(string)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// TokenFromRequest returns the bearer token, falling back to the session cookie.
func TokenFromRequest(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Cookies(TokenCookie)
}

// BlacklistKey is the Redis key marking a revoked token ID.
func BlacklistKey(jti string) string {
	return "blacklist:" + jti
}

// IsRevoked reports whether jti was revoked. Without Redis nothing is revoked.
func IsRevoked(ctx context.Context, rdb *redis.Client, jti string) bool {
	if rdb == nil || jti == "" {
		return false
	}
	n, err := rdb.Exists(ctx, BlacklistKey(jti)).Result()
	return err == nil && n > 0
}

// Revoke blacklists jti until the token would have expired anyway.
func Revoke(ctx context.Context, rdb *redis.Client, claims *Claims) error {
	if rdb == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, BlacklistKey(claims.JTI), "1", ttl).Err()
}

// Authenticate resolves the session token when present. It never rejects a
// request: anonymous and invalid tokens continue without Locals("userID").
func Authenticate(secret string, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := TokenFromRequest(c)
		if raw == "" {
			return c.Next()
		}

		claims, err := ParseToken(secret, raw)
		if err != nil || IsRevoked(c.UserContext(), rdb, claims.JTI) {
			return c.Next()
		}

		c.Locals("userID", claims.UserID)
		c.Locals("claims", claims)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))
		return c.Next()
	}
}

// LoginRequired redirects anonymous requests to loginURL with the original
// path in the next parameter.
func LoginRequired(loginURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals("userID").(uint); ok {
			return c.Next()
		}
		return c.Redirect(LoginRedirectURL(loginURL, c.OriginalURL()), fiber.StatusFound)
	}
}

// LoginRedirectURL builds loginURL?next=<path>, leaving slashes readable.
func LoginRedirectURL(loginURL, next string) string {
	return loginURL + "?next=" + escapeNext(next)
}

func escapeNext(next string) string {
	var b strings.Builder
	for i := 0; i < len(next); i++ {
		ch := next[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9',
			ch == '/', ch == '-', ch == '_', ch == '.', ch == '~':
			b.WriteByte(ch)
		default:
			fmt.Fprintf(&b, "%%%02X", ch)
		}
	}
	return b.String()
}
