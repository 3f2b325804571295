package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/governd/internal/channel"
	"github.com/fyrsmithlabs/governd/internal/meeting"
	"github.com/fyrsmithlabs/governd/internal/memorygate"
	"github.com/fyrsmithlabs/governd/internal/principal"
)

// ErrorResponse is the body returned for any failed request. Reasons is set
// only for content rejections.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Reasons []string `json:"reasons,omitempty"`
}

// writeError translates a typed core error into an HTTP response. The core's
// sentinel taxonomy is the contract here: the transport layer adds status
// codes but never rewrites semantics.
func writeError(c echo.Context, err error) error {
	var rejected *memorygate.ContentRejectedError
	if errors.As(err, &rejected) {
		reasons := make([]string, len(rejected.Reasons))
		for i, r := range rejected.Reasons {
			reasons[i] = string(r)
		}
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   rejected.Error(),
			Reasons: reasons,
		})
	}

	return c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
}

// statusFor maps sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, meeting.ErrMeetingNotFound),
		errors.Is(err, meeting.ErrOutputNotFound),
		errors.Is(err, principal.ErrUnknown):
		return http.StatusNotFound

	case errors.Is(err, meeting.ErrInvalidInitiator),
		errors.Is(err, meeting.ErrInvalidValidator),
		errors.Is(err, memorygate.ErrInvalidValidator):
		return http.StatusForbidden

	case errors.Is(err, channel.ErrInvalidTransition),
		errors.Is(err, meeting.ErrInvalidTransition),
		errors.Is(err, memorygate.ErrInvalidTransition),
		errors.Is(err, meeting.ErrClosureCriteriaUnmet),
		errors.Is(err, meeting.ErrOutputsNotValidated),
		errors.Is(err, meeting.ErrDurationExceeded),
		errors.Is(err, memorygate.ErrDuplicateEntry):
		return http.StatusConflict

	case errors.Is(err, channel.ErrReformulationFailed):
		return http.StatusBadGateway

	case errors.Is(err, channel.ErrEmptyInput),
		errors.Is(err, meeting.ErrInvalidKind),
		errors.Is(err, meeting.ErrMissingScope),
		errors.Is(err, meeting.ErrMissingGoal),
		errors.Is(err, meeting.ErrMissingClosureCriteria),
		errors.Is(err, meeting.ErrMissingDuration),
		errors.Is(err, meeting.ErrEmptyTimelineEntry),
		errors.Is(err, meeting.ErrEmptyOutputContent),
		errors.Is(err, memorygate.ErrInvalidEntry),
		errors.Is(err, memorygate.ErrInvalidKind),
		errors.Is(err, memorygate.ErrEmptyContent),
		errors.Is(err, memorygate.ErrEmptyScope):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
