package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/infrastructure/locking"
	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	ConflictingID int64  `json:"conflicting_id,omitempty"`
}

type errorResponse struct {
	Error ErrorBody `json:"error"`
}

var badRequestErrors = []error{
	domain.ErrInvalidInterval,
	domain.ErrUnknownRole,
	domain.ErrUnknownStatus,
	domain.ErrPurposeRequired,
	domain.ErrDescriptionRequired,
	domain.ErrRoomNameRequired,
	domain.ErrInvalidCapacity,
	domain.ErrWindowInPast,
	commands.ErrInvalidDecision,
	commands.ErrInvalidAction,
}

var notFoundErrors = []error{
	domain.ErrRoomNotFound,
	domain.ErrBookingNotFound,
	domain.ErrMaintenanceNotFound,
	domain.ErrUserNotFound,
}

// classify maps an application error onto an HTTP status and error body.
func classify(err error) (int, ErrorBody) {
	body := ErrorBody{Message: err.Error()}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		body.Code = string(conflict.Reason)
		body.ConflictingID = conflict.ConflictingID
		return http.StatusConflict, body
	}

	switch {
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, locking.ErrLockTimeout):
		body.Code = "unavailable"
		return http.StatusServiceUnavailable, body
	case errors.Is(err, domain.ErrNotPermitted):
		body.Code = "forbidden"
		return http.StatusForbidden, body
	case errors.Is(err, domain.ErrInvalidTransition):
		body.Code = "invalid_transition"
		return http.StatusConflict, body
	case isAny(err, notFoundErrors):
		body.Code = "not_found"
		return http.StatusNotFound, body
	case isAny(err, badRequestErrors):
		body.Code = "invalid_request"
		return http.StatusBadRequest, body
	}

	body.Code = "internal"
	body.Message = "internal error"
	return http.StatusInternalServerError, body
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError writes err as JSON. Unexpected errors are logged with the
// request's correlation id and their detail is withheld from the client.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: body})
}

func respondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: ErrorBody{Code: "invalid_request", Message: message}})
}
