package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by a session token.
type Claims struct {
	Username string
	Role     string
	JTI      string
}

// Tokens signs and verifies session JWTs.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

func (t *Tokens) TTL() time.Duration { return t.ttl }

func (t *Tokens) Generate(username, role string) (string, string, error) {
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"username": username,
		"role":     role,
		"jti":      jti,
		"exp":      time.Now().Add(t.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

func (t *Tokens) Verify(tokenString string) (Claims, error) {
	jwtToken, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	if !jwtToken.Valid {
		return Claims{}, errors.New("token invalid")
	}

	mapClaims, ok := jwtToken.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims")
	}
	c := Claims{}
	if v, ok := mapClaims["username"].(string); ok {
		c.Username = v
	}
	if v, ok := mapClaims["role"].(string); ok {
		c.Role = v
	}
	if v, ok := mapClaims["jti"].(string); ok {
		c.JTI = v
	}
	if c.Username == "" || c.JTI == "" {
		return Claims{}, errors.New("incomplete claims")
	}
	return c, nil
}
