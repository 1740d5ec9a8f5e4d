package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/campus-live/api-service/internal/domain"
	"github.com/weiawesome/campus-live/api-service/internal/repository"
	"github.com/weiawesome/campus-live/api-service/internal/service"
	"github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/middleware"
	"github.com/weiawesome/campus-live/pkg/response"
)

// Handler handles HTTP requests for api-service.
type Handler struct {
	userService    service.UserService
	messageService service.MessageService
	tokenService   service.TokenService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	userService service.UserService,
	messageService service.MessageService,
	tokenService service.TokenService,
	authMiddleware *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		userService:    userService,
		messageService: messageService,
		tokenService:   tokenService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/refresh", h.RefreshToken)
			auth.POST("/logout", h.authMiddleware.RequireAuth(), h.Logout)
		}

		// Protected routes
		users := api.Group("/users")
		users.Use(h.authMiddleware.RequireAuth())
		{
			users.GET("/me", h.GetMe)
			users.PUT("/me", h.UpdateMe)
			users.GET("/display-name", h.GetDisplayName)
		}

		rooms := api.Group("/rooms")
		rooms.Use(h.authMiddleware.RequireAuth())
		{
			rooms.GET("/:room/messages", h.ListMessages)
			rooms.POST("/:room/messages", h.CreateMessage)
		}

		api.POST("/realtime/token", h.authMiddleware.RequireAuth(), h.IssueRealtimeToken)
	}

	r.GET("/health", h.HealthCheck)
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Register handles user registration.
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid register request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.userService.Register(ctx, &req)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			response.Conflict(c, "email already exists")
			return
		}
		if errors.Is(err, repository.ErrUsernameExists) {
			response.Conflict(c, "username already exists")
			return
		}
		l.Error().Err(err).Msg("register failed")
		response.InternalError(c, "failed to register user")
		return
	}

	response.Created(c, result)
}

// Login handles user login.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid login request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.userService.Login(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid email or password")
			return
		}
		l.Error().Err(err).Msg("login failed")
		response.InternalError(c, "failed to login")
		return
	}

	response.Success(c, result)
}

// RefreshToken handles token refresh.
func (h *Handler) RefreshToken(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid refresh token request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.userService.RefreshToken(ctx, &req)
	if err != nil {
		l.Warn().Err(err).Msg("refresh token failed")
		response.Unauthorized(c, "invalid or expired refresh token")
		return
	}

	response.Success(c, result)
}

// Logout handles user logout.
func (h *Handler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	if err := h.userService.Logout(ctx, userID); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("logout failed")
		response.InternalError(c, "failed to logout")
		return
	}

	response.Success(c, gin.H{"message": "logged out successfully"})
}

// GetMe returns current user info.
func (h *Handler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	user, err := h.userService.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("get user failed")
		response.InternalError(c, "failed to get user")
		return
	}

	response.Success(c, user)
}

// UpdateMe updates current user.
func (h *Handler) UpdateMe(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid update request")
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.UpdateUser(ctx, userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("update user failed")
		response.InternalError(c, "failed to update user")
		return
	}

	response.Success(c, user)
}

// GetDisplayName answers an identity lookup for ?account=<email>.
func (h *Handler) GetDisplayName(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	account := strings.TrimSpace(c.Query("account"))
	if account == "" {
		response.BadRequest(c, "account is required")
		return
	}

	name, err := h.userService.FindDisplayName(ctx, account)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, "display name not found")
			return
		}
		l.Error().Err(err).Str(log.FieldAccount, account).Msg("display name lookup failed")
		response.InternalError(c, "failed to look up display name")
		return
	}

	response.Success(c, domain.DisplayNameResponse{Account: account, DisplayName: name})
}
