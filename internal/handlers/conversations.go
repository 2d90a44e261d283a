package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"supportdesk/internal/feed"
	"supportdesk/internal/models"
	"supportdesk/internal/router"

	"github.com/labstack/echo/v4"
)

const streamHeartbeat = 25 * time.Second

// StartConversationHandler opens a conversation for a widget visitor
// @Summary Start conversation
// @Description Create an unresolved conversation for a valid contact session
// @Tags conversations
// @Accept json
// @Produce json
// @Param request body models.StartConversationRequest true "Contact session"
// @Success 201 {object} models.ConversationResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/conversations [post]
func StartConversationHandler(r *router.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.StartConversationRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		}

		conv, err := r.StartConversation(c.Request().Context(), req.ContactSessionID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, models.ConversationResponse{ThreadID: conv.ThreadID, Status: conv.Status})
	}
}

// SubmitMessageHandler runs one routing turn for a visitor message
// @Summary Submit message
// @Description Store a visitor message and route it. Replies are delivered through the message feed.
// @Tags conversations
// @Accept json
// @Produce json
// @Param threadId path string true "Thread ID"
// @Param request body models.SubmitMessageRequest true "Message"
// @Success 202 {object} models.SubmitMessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/conversations/{threadId}/messages [post]
func SubmitMessageHandler(r *router.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.SubmitMessageRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		}

		outcome, err := r.SubmitMessage(c.Request().Context(), router.SubmitInput{
			ThreadID:         c.Param("threadId"),
			ContactSessionID: req.ContactSessionID,
			Text:             req.Text,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusAccepted, models.SubmitMessageResponse{Accepted: true, Status: outcome.Status})
	}
}

// ConversationHandler returns the status of a visitor's conversation
// @Summary Get conversation
// @Tags conversations
// @Produce json
// @Param threadId path string true "Thread ID"
// @Param contact_session_id query string true "Contact session"
// @Success 200 {object} models.ConversationResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/conversations/{threadId} [get]
func ConversationHandler(r *router.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		conv, err := r.ConversationStatus(c.Request().Context(), c.Param("threadId"), c.QueryParam("contact_session_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, models.ConversationResponse{ThreadID: conv.ThreadID, Status: conv.Status})
	}
}

// MessagesHandler pages through the visible messages of a conversation
// @Summary List visible messages
// @Description Messages visible to the visitor, oldest first. Support log entries are never returned.
// @Tags conversations
// @Produce json
// @Param threadId path string true "Thread ID"
// @Param contact_session_id query string true "Contact session"
// @Param cursor query string false "Cursor from the previous page"
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} models.MessageListResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/conversations/{threadId}/messages [get]
func MessagesHandler(r *router.Router) echo.HandlerFunc {
	return func(c echo.Context) error {
		cursor, err := queryCursor(c)
		if err != nil {
			return badRequest(c, "Invalid cursor")
		}
		limit, err := queryInt(c, "limit", 0)
		if err != nil {
			return badRequest(c, "Invalid limit")
		}

		page, err := r.VisibleMessages(c.Request().Context(), c.Param("threadId"), c.QueryParam("contact_session_id"), cursor, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, messagePage(page))
	}
}

// StreamHandler relays new visible messages as server-sent events
// @Summary Stream messages
// @Description Server-sent events with one "message" event per new visible message
// @Tags conversations
// @Produce text/event-stream
// @Param threadId path string true "Thread ID"
// @Param contact_session_id query string true "Contact session"
// @Success 200 {string} string "event stream"
// @Failure 401 {object} models.ErrorResponse
// @Router /api/conversations/{threadId}/stream [get]
func StreamHandler(r *router.Router, subscriber feed.Subscriber) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		conv, err := r.ConversationStatus(ctx, c.Param("threadId"), c.QueryParam("contact_session_id"))
		if err != nil {
			return respondError(c, err)
		}

		messages, err := subscriber.Subscribe(ctx, conv.ThreadID)
		if err != nil {
			return respondError(c, err)
		}

		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set(echo.HeaderCacheControl, "no-cache")
		res.Header().Set(echo.HeaderConnection, "keep-alive")
		res.WriteHeader(http.StatusOK)
		res.Flush()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-heartbeat.C:
				if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
					return nil
				}
				res.Flush()
			case msg, ok := <-messages:
				if !ok {
					return nil
				}
				payload, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(res, "id: %d\nevent: message\ndata: %s\n\n", msg.Seq, payload); err != nil {
					return nil
				}
				res.Flush()
			}
		}
	}
}
