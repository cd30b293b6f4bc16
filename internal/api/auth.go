package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	adminSubject = "admin"
	tokenTTL     = 24 * time.Hour
)

// adminAuth guards the admin routes with a shared password exchanged for a
// short-lived HS256 token. With no password configured it lets everything
// through.
type adminAuth struct {
	password string
	secret   []byte
	now      func() time.Time
}

func newAdminAuth(password, secret string, now func() time.Time) *adminAuth {
	if secret == "" {
		secret = password
	}
	if now == nil {
		now = time.Now
	}
	return &adminAuth{password: password, secret: []byte(secret), now: now}
}

func (a *adminAuth) enabled() bool { return a.password != "" }

type loginRequest struct {
	Password string `json:"password"`
}

func (a *adminAuth) login(c *gin.Context) {
	if !a.enabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Admin login is disabled"})
		return
	}
	var req loginRequest
	if !bindBody(c, &req) {
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.password)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	token, err := a.issue()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not sign token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (a *adminAuth) issue() (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *adminAuth) verify(tokenString string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return err
	}
	if claims.Subject != adminSubject {
		return errors.New("unexpected subject")
	}
	return nil
}

func (a *adminAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
			return
		}
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}
		if err := a.verify(tokenString); err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Next()
	}
}
