package jwts

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoPlayer    = errors.New("token 不含 userID")
	ErrEmptySecret = errors.New("jwt secret 为空")
)

// CustomClaims 上游登录服务签发的玩家身份
type CustomClaims struct {
	UserID string `json:"userID"`
	jwt.RegisteredClaims
}

// NewClaims 给测试和本地联调签发 token 用
func NewClaims(userID string, ttl time.Duration) *CustomClaims {
	now := time.Now()
	return &CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func GetToken(claims *CustomClaims, secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken 校验签名与过期时间，返回 userID
func ParseToken(token, secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	claims := new(CustomClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("token not valid")
	}
	if claims.UserID == "" {
		return "", ErrNoPlayer
	}
	return claims.UserID, nil
}
