package handlers

import (
	"fmt"
	"net/http"

	"supportdesk/internal/auth"
	"supportdesk/internal/models"
	"supportdesk/internal/router"

	"github.com/labstack/echo/v4"
)

// AdminLoginHandler handles operator authentication
// @Summary Admin login
// @Description Authenticate an operator and receive an auth token
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.AdminAuthRequest true "Login credentials"
// @Success 200 {object} models.AdminAuthResponse
// @Failure 401 {object} models.AdminAuthResponse
// @Router /api/admin/login [post]
func AdminLoginHandler(authManager *auth.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.AdminAuthRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.AdminAuthResponse{
				Success: false,
				Error:   fmt.Sprintf("Invalid request body: %v", err),
			})
		}

		token, err := authManager.Authenticate(req.Username, req.Password)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, models.AdminAuthResponse{
				Success: false,
				Error:   "Invalid username or password",
			})
		}

		return c.JSON(http.StatusOK, models.AdminAuthResponse{
			Success: true,
			Token:   token,
		})
	}
}

// ListConversationsHandler lists an organization's conversations
// @Summary List conversations
// @Description Paginated conversations of an organization, most recently updated first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param organization_id query string true "Organization ID"
// @Param status query string false "unresolved, escalated or resolved"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} models.ConversationListResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/admin/conversations [get]
func ListConversationsHandler(r *router.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, err := queryInt(c, "limit", 20)
		if err != nil {
			return badRequest(c, "Invalid limit")
		}
		offset, err := queryInt(c, "offset", 0)
		if err != nil {
			return badRequest(c, "Invalid offset")
		}

		conversations, err := r.ListConversations(c.Request().Context(), c.QueryParam("organization_id"),
			models.ConversationStatus(c.QueryParam("status")), limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		if conversations == nil {
			conversations = []models.Conversation{}
		}
		return c.JSON(http.StatusOK, models.ConversationListResponse{Conversations: conversations, Limit: limit, Offset: offset})
	}
}

// AdminMessagesHandler pages through the full log of a conversation
// @Summary List all messages
// @Description Every message of a conversation including internal support log entries
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param threadId path string true "Thread ID"
// @Param cursor query string false "Cursor from the previous page"
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} models.MessageListResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/admin/conversations/{threadId}/messages [get]
func AdminMessagesHandler(r *router.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		cursor, err := queryCursor(c)
		if err != nil {
			return badRequest(c, "Invalid cursor")
		}
		limit, err := queryInt(c, "limit", 0)
		if err != nil {
			return badRequest(c, "Invalid limit")
		}

		page, err := r.ConversationMessages(c.Request().Context(), c.Param("threadId"), cursor, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, messagePage(page))
	}
}

// UpdateStatusHandler changes the status of a conversation
// @Summary Update conversation status
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param threadId path string true "Thread ID"
// @Param request body models.StatusUpdateRequest true "New status"
// @Success 200 {object} models.ConversationResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/admin/conversations/{threadId}/status [post]
func UpdateStatusHandler(r *router.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.StatusUpdateRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		}

		conv, err := r.SetStatus(c.Request().Context(), c.Param("threadId"), req.Status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, models.ConversationResponse{ThreadID: conv.ThreadID, Status: conv.Status})
	}
}

// OperatorReplyHandler appends an operator message to a conversation
// @Summary Post operator message
// @Description Accepts the plain or nested message shape; content may be a string or an array of text parts
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param threadId path string true "Thread ID"
// @Param request body models.RawMessage true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/admin/conversations/{threadId}/messages [post]
func OperatorReplyHandler(r *router.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var raw models.RawMessage
		if err := c.Bind(&raw); err != nil {
			return badRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		}

		msg, err := r.PostOperatorReply(c.Request().Context(), c.Param("threadId"), raw)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, msg)
	}
}
