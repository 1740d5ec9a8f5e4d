package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/campus-live/api-service/internal/domain"
	"github.com/weiawesome/campus-live/api-service/internal/service"
	"github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/middleware"
	"github.com/weiawesome/campus-live/pkg/response"
)

// ListMessages returns the most recent messages of a room, oldest first.
func (h *Handler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	roomID := c.Param("room")

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	result, err := h.messageService.ListRecent(ctx, roomID, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRoom) {
			response.BadRequest(c, "room is required")
			return
		}
		l.Error().Err(err).Str(log.FieldRoom, roomID).Msg("list messages failed")
		response.InternalError(c, "failed to get messages")
		return
	}

	response.Success(c, result)
}

// CreateMessage persists a message authored by the caller.
func (h *Handler) CreateMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	roomID := c.Param("room")
	authorID := middleware.GetEmail(c)
	if authorID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid create message request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.messageService.Create(ctx, roomID, authorID, &req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) || errors.Is(err, service.ErrInvalidRoom) {
			response.BadRequest(c, err.Error())
			return
		}
		l.Error().Err(err).Str(log.FieldRoom, roomID).Msg("create message failed")
		response.InternalError(c, "failed to create message")
		return
	}

	response.Created(c, result)
}

// IssueRealtimeToken hands the caller a credential for the realtime
// transport, identifying them by email.
func (h *Handler) IssueRealtimeToken(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)
	email := middleware.GetEmail(c)
	if userID == "" || email == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.tokenService.IssueRealtimeToken(ctx, userID, email)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("issue realtime token failed")
		response.InternalError(c, "failed to issue realtime token")
		return
	}

	response.Success(c, result)
}
