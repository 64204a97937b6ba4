package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/unimarket/unimarket-chat/models"
)

// AccessTokenValidity bounds how long an issued credential authorizes requests
// and websocket handshakes.
const AccessTokenValidity = time.Hour * 24

// GenerateToken mints an HS256 access token carrying the facts the middleware
// and the chat hub need without a user lookup.
func GenerateToken(user *models.User, secret string) (string, error) {
	claims := jwt.MapClaims{
		"id":              user.ID,
		"username":        user.Username,
		"email":           user.Email,
		"profile_picture": user.ProfilePicture,
		"exp":             time.Now().Add(AccessTokenValidity).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAndGetClaims parses and verifies an access token and returns its
// claims.
func ValidateAndGetClaims(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// UserIDFromClaims extracts the numeric user id; jwt decodes all numbers as
// float64.
func UserIDFromClaims(claims jwt.MapClaims) (uint, error) {
	v, ok := claims["id"].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid userID format")
	}
	return uint(v), nil
}
