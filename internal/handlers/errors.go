package handlers

import (
	"net/http"
	"strconv"

	"supportdesk/internal/models"
	"supportdesk/internal/router"

	"github.com/labstack/echo/v4"
)

// ErrorContextKey holds the failure of a request for the access log
const ErrorContextKey = "request_error"

// StatusFor maps a router error to its HTTP status
func StatusFor(err error) int {
	switch router.KindOf(err) {
	case router.KindUnauthorized:
		return http.StatusUnauthorized
	case router.KindNotFound:
		return http.StatusNotFound
	case router.KindInvalidState, router.KindConflict:
		return http.StatusConflict
	case router.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// respondError writes err as an ErrorResponse. Upstream failures hide the
// underlying cause from the caller.
func respondError(c echo.Context, err error) error {
	c.Set(ErrorContextKey, err)
	kind := router.KindOf(err)
	message := err.Error()
	if kind == router.KindUpstreamFailure {
		message = "upstream service failure"
	}
	return c.JSON(StatusFor(err), models.ErrorResponse{Error: message, Kind: string(kind)})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: message, Kind: string(router.KindInvalidInput)})
}

// queryInt parses an optional integer query parameter
func queryInt(c echo.Context, name string, defaultValue int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}

// queryCursor parses the optional cursor query parameter
func queryCursor(c echo.Context) (int64, error) {
	raw := c.QueryParam("cursor")
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func messagePage(page *router.MessagePage) models.MessageListResponse {
	response := models.MessageListResponse{Messages: page.Messages, Done: page.Done}
	if response.Messages == nil {
		response.Messages = []models.Message{}
	}
	if !page.Done {
		response.NextCursor = strconv.FormatInt(page.NextCursor, 10)
	}
	return response
}
