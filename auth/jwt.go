package auth

import (
	"collaborative-review-editor/internal/config"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the session->identity projection this service consumes. The
// authentication protocol itself lives elsewhere; we only verify and unpack.
type Identity struct {
	UserID    uint64
	UserName  string
	UserEmail string
}

func GenerateJWT(identity Identity) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    identity.UserID,
		"user_name":  identity.UserName,
		"user_email": identity.UserEmail,
		"exp":        time.Now().Add(time.Hour * 24 * 3).Unix(), // expires in 3 days
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func VerifyJWT(tokenString string) (*jwt.Token, error) {
	// parse token
	jwtToken, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	// isValid
	if !jwtToken.Valid {
		return nil, errors.New("token invalid")
	}

	return jwtToken, nil
}

func GetIdentityFromToken(token *jwt.Token) (Identity, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return Identity{}, errors.New("user_id claim missing")
	}

	name, _ := claims["user_name"].(string)
	email, _ := claims["user_email"].(string)

	return Identity{
		UserID:    uint64(userID),
		UserName:  name,
		UserEmail: email,
	}, nil
}
