package auth

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	configOnce          sync.Once
	jwtSecret           []byte
	refreshSecret       []byte
	accessTokenMinutes  = 15
	refreshTokenDays    = 7
	rememberRefreshDays = 30
	cookieSecure        = true
)

// loadConfig reads secrets and TTL overrides from the environment on first
// use rather than at package init, so importing this package stays cheap.
func loadConfig() {
	configOnce.Do(func() {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			log.Fatal("FATAL: JWT_SECRET environment variable is required and must not be empty")
		}
		if len(secret) < 32 {
			log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
		}
		jwtSecret = []byte(secret)

		// Cookie security can be disabled for local HTTP dev
		if os.Getenv("COOKIE_SECURE") == "false" {
			cookieSecure = false
		}

		// Refresh tokens use a separate secret
		refreshSecretEnv := os.Getenv("JWT_REFRESH_SECRET")
		if refreshSecretEnv == "" {
			refreshSecretEnv = secret + "-refresh"
		}
		refreshSecret = []byte(refreshSecretEnv)

		if v := os.Getenv("ACCESS_TOKEN_MINUTES"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				accessTokenMinutes = n
			}
		}
		if v := os.Getenv("REFRESH_TOKEN_DAYS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				refreshTokenDays = n
			}
		}
		if v := os.Getenv("REMEMBER_REFRESH_DAYS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rememberRefreshDays = n
			}
		}
	})
}

// CookieSecure reports whether auth cookies should carry the Secure flag.
func CookieSecure() bool {
	loadConfig()
	return cookieSecure
}

type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type,omitempty"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// GenerateToken creates a short-lived access token.
func GenerateToken(userID, username string) (string, error) {
	loadConfig()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(accessTokenMinutes) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// GenerateRefreshToken creates a refresh token that expires after the given
// number of days.
func GenerateRefreshToken(userID, username string, days int) (string, error) {
	loadConfig()
	if days <= 0 {
		days = refreshTokenDays
	}
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(days) * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(refreshSecret)
}

func ValidateToken(tokenString string) (*Claims, error) {
	loadConfig()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.TokenType != "access" {
			return nil, errors.New("invalid token type")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ValidateRefreshToken validates a refresh token
func ValidateRefreshToken(tokenString string) (*Claims, error) {
	loadConfig()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return refreshSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.TokenType != "refresh" {
			return nil, errors.New("invalid token type")
		}
		return claims, nil
	}

	return nil, errors.New("invalid refresh token")
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// RefreshDays returns the refresh token TTL in days depending on the
// remember flag.
func RefreshDays(remember bool) int {
	loadConfig()
	if remember {
		return rememberRefreshDays
	}
	return refreshTokenDays
}
