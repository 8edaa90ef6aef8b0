package api

import (
	_ "embed"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/drx-chat/adapters"
	"github.com/satriahrh/drx-chat/domain"
	"github.com/satriahrh/drx-chat/domain/repositories"
	"github.com/satriahrh/drx-chat/internal/auth"
	"github.com/satriahrh/drx-chat/internal/websocket"
	"github.com/satriahrh/drx-chat/usecase"
)

//go:embed web/index.html
var indexHTML []byte

// Dependencies are the collaborators the HTTP surface is built from
type Dependencies struct {
	Hub      *websocket.Hub
	Relay    usecase.Relay
	Catalog  repositories.ModelCatalog
	Users    repositories.UserRepository
	Sessions *auth.Sessions
	Logger   *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	logger := deps.Logger

	e.Use(deps.Sessions.Middleware())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:         "ok",
			Service:        "drx-chat",
			ActiveSessions: deps.Hub.ActiveSessions(),
		})
	})

	// Chat page
	e.GET("/", func(c echo.Context) error {
		return c.HTMLBlob(http.StatusOK, indexHTML)
	})

	authGroup := e.Group("/api/auth")
	authGroup.POST("/login", func(c echo.Context) error {
		return userLogin(c, deps.Users, deps.Sessions, logger)
	})
	authGroup.GET("/me", getMe)
	authGroup.POST("/logout", func(c echo.Context) error {
		return userLogout(c, deps.Sessions, logger)
	})

	ai := e.Group("/api/ai")
	ai.GET("/models", func(c echo.Context) error {
		return getModels(c, deps.Catalog, logger)
	}, requireUser)
	ai.POST("/messages", func(c echo.Context) error {
		return sendMessage(c, deps.Relay, logger)
	})

	// WebSocket endpoint for the chat page
	e.GET("/ws", func(c echo.Context) error {
		user, _ := auth.UserFrom(c)
		logger.Info("WebSocket connection authenticated", zap.String("user_id", user.ID))
		return websocket.HandleWebSocket(deps.Hub, c, user, logger)
	}, requireUser)
}

// requireUser rejects requests without an established session
func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := auth.UserFrom(c); !ok {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthenticated",
				Message: "Authentication required",
			})
		}
		return next(c)
	}
}

func userLogin(c echo.Context, users repositories.UserRepository, sessions *auth.Sessions, logger *zap.Logger) error {
	var req LoginRequest

	// Bind and validate request
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "A valid email and a password are required",
		})
	}

	ctx := c.Request().Context()
	user, err := users.GetByEmail(ctx, req.Email)
	if err == nil {
		err = adapters.CheckPassword(user, req.Password)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) && !errors.Is(err, domain.ErrInvalidCredentials) {
			logger.Error("Failed to look up user", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to authenticate",
			})
		}
		logger.Warn("User authentication failed", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid email or password",
		})
	}

	if err := sessions.Login(c, user); err != nil {
		logger.Error("Failed to generate user token",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	logger.Info("User authenticated successfully",
		zap.String("user_id", user.ID),
		zap.String("user", user.DisplayName()))

	return c.JSON(http.StatusOK, domain.AuthState{User: user, IsAuthenticated: true})
}

func getMe(c echo.Context) error {
	user, ok := auth.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusOK, domain.AuthState{})
	}
	return c.JSON(http.StatusOK, domain.AuthState{User: user, IsAuthenticated: true})
}

func userLogout(c echo.Context, sessions *auth.Sessions, logger *zap.Logger) error {
	if err := sessions.Logout(c); err != nil {
		logger.Error("Failed to revoke session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "logout_failed",
			Message: "Failed to end session",
		})
	}
	return c.JSON(http.StatusOK, domain.AuthState{})
}

func getModels(c echo.Context, catalog repositories.ModelCatalog, logger *zap.Logger) error {
	models, err := catalog.Models(c.Request().Context())
	if err != nil {
		logger.Error("Failed to list models", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list models",
		})
	}
	return c.JSON(http.StatusOK, models)
}

func sendMessage(c echo.Context, relay usecase.Relay, logger *zap.Logger) error {
	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	resp, err := relay.Relay(c.Request().Context(), req)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, resp)
	case errors.Is(err, domain.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthenticated",
			Message: "Authentication required",
		})
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrRelayFailed):
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "relay_failed",
			Message: domain.RelayFailureMessage,
		})
	default:
		logger.Error("Unexpected relay error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: domain.RelayFailureMessage,
		})
	}
}
