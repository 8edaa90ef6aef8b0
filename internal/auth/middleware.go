package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/drx-chat/domain"
	"github.com/satriahrh/drx-chat/domain/entities"
	"github.com/satriahrh/drx-chat/domain/repositories"
)

const (
	contextKeyUser   = "user"
	contextKeyClaims = "claims"
)

// Sessions resolves the session token of a request into a user
type Sessions struct {
	issuer     *TokenIssuer
	users      repositories.UserRepository
	revoked    repositories.RevocationStore
	cookieName string
	secure     bool
	logger     *zap.Logger
}

// NewSessions creates the session collaborator used by the HTTP layer
func NewSessions(
	issuer *TokenIssuer,
	users repositories.UserRepository,
	revoked repositories.RevocationStore,
	cookieName string,
	secure bool,
	logger *zap.Logger,
) *Sessions {
	return &Sessions{
		issuer:     issuer,
		users:      users,
		revoked:    revoked,
		cookieName: cookieName,
		secure:     secure,
		logger:     logger,
	}
}

// Middleware resolves the session, if any, and stores the user on the echo context
// and on the request context. Requests without a valid session pass through
// unauthenticated.
func (s *Sessions) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := s.tokenFrom(c)
			if token == "" {
				return next(c)
			}

			user, claims, err := s.resolve(c, token)
			if err != nil {
				s.logger.Debug("Ignoring invalid session", zap.Error(err))
				return next(c)
			}

			c.Set(contextKeyUser, user)
			c.Set(contextKeyClaims, claims)
			c.SetRequest(c.Request().WithContext(domain.WithUser(c.Request().Context(), user)))
			return next(c)
		}
	}
}

// UserFrom returns the authenticated user of the request
func UserFrom(c echo.Context) (*entities.User, bool) {
	user, ok := c.Get(contextKeyUser).(*entities.User)
	return user, ok && user != nil
}

// ClaimsFrom returns the validated token claims of the request
func ClaimsFrom(c echo.Context) (*JWTClaims, bool) {
	claims, ok := c.Get(contextKeyClaims).(*JWTClaims)
	return claims, ok && claims != nil
}

// Login issues a token for user and sets the session cookie
func (s *Sessions) Login(c echo.Context, user *entities.User) error {
	token, claims, err := s.issuer.GenerateUserToken(user.ID)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout revokes the current token and clears the session cookie
func (s *Sessions) Logout(c echo.Context) error {
	if claims, ok := ClaimsFrom(c); ok {
		if err := s.revoked.Revoke(c.Request().Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			return err
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Sessions) resolve(c echo.Context, token string) (*entities.User, *JWTClaims, error) {
	claims, err := s.issuer.ValidateToken(token)
	if err != nil {
		return nil, nil, err
	}

	ctx := c.Request().Context()
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, domain.ErrTokenRevoked
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// tokenFrom reads the session cookie, falling back to a Bearer header
func (s *Sessions) tokenFrom(c echo.Context) string {
	if cookie, err := c.Cookie(s.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
