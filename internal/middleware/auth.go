package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"event-ticket-ledger/internal/model"
	apperrors "event-ticket-ledger/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "principal"

// Authenticate 驗證 Bearer token（HS256），並把 sub 當作呼叫者身分放進 context
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			abortUnauthenticated(c, "missing bearer token")
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		who, err := ParseToken(secret, raw)
		if err != nil {
			abortUnauthenticated(c, "invalid token")
			return
		}

		c.Set(principalKey, who)
		c.Next()
	}
}

// ParseToken 解析 token 並回傳其 sub
func ParseToken(secret, raw string) (model.Principal, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !tok.Valid || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return model.Principal(claims.Subject), nil
}

// IssueToken 簽發 HS256 token，供開發與測試使用
func IssueToken(secret string, who model.Principal, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   string(who),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// PrincipalFrom 取得已驗證的呼叫者；未經 Authenticate 時為空
func PrincipalFrom(c *gin.Context) model.Principal {
	if v, ok := c.Get(principalKey); ok {
		if who, ok := v.(model.Principal); ok {
			return who
		}
	}
	return ""
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": msg,
		"code":  apperrors.Code(apperrors.ErrUnauthenticated),
	})
}
