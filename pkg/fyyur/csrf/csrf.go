// Package csrf protects form posts with signed tokens bound to the session.
package csrf

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// FormField is the hidden input carrying the token
	FormField = "csrf_token"
	// HeaderName carries the token for script requests (DELETE)
	HeaderName = "X-CSRFToken"
	// ContextKey holds the token for the current request
	ContextKey = "csrf_token"

	sessionKey = "csrf_sid"
	issuer     = "fyyur"
)

var (
	ErrInvalidToken = errors.New("invalid CSRF token")
	ErrExpiredToken = errors.New("CSRF token has expired")
	ErrMissingToken = errors.New("missing CSRF token")
)

// Claims binds a token to one session
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Protector issues and checks CSRF tokens
type Protector struct {
	secret []byte
	ttl    time.Duration
}

// New creates a protector signing with secret
func New(secret []byte) *Protector {
	return &Protector{secret: secret, ttl: time.Hour}
}

// GenerateToken creates a token for the session id
func (p *Protector) GenerateToken(sessionID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// ValidateToken checks the signature, expiry and session binding of a token
func (p *Protector) ValidateToken(tokenString, sessionID string) error {
	if tokenString == "" {
		return ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" || claims.SessionID != sessionID {
		return ErrInvalidToken
	}
	return nil
}

// Middleware issues a token for every request and verifies it on unsafe methods.
// Requires the session middleware. onFail renders the rejection.
func (p *Protector) Middleware(onFail gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		sid, _ := s.Get(sessionKey).(string)
		if sid == "" {
			sid = uuid.NewString()
			s.Set(sessionKey, sid)
			if err := s.Save(); err != nil {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}

		if !safeMethod(c.Request.Method) {
			submitted := c.GetHeader(HeaderName)
			if submitted == "" {
				submitted = c.PostForm(FormField)
			}
			if err := p.ValidateToken(submitted, sid); err != nil {
				c.Set("csrf_error", err.Error())
				onFail(c)
				c.Abort()
				return
			}
		}

		token, err := p.GenerateToken(sid)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Set(ContextKey, token)
		c.Next()
	}
}

// Token returns the token issued for this request, if any
func Token(c *gin.Context) string {
	return c.GetString(ContextKey)
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
