package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/governd/internal/meeting"
	"github.com/fyrsmithlabs/governd/internal/memorygate"
)

// MeetingCreateRequest is the request body for POST /meetings.
type MeetingCreateRequest struct {
	InitiatorID     string `json:"initiator_id"`
	Kind            string `json:"kind"`
	Scope           string `json:"scope"`
	Goal            string `json:"goal"`
	ClosureCriteria string `json:"closure_criteria"`
	MaxDuration     string `json:"max_duration"`
}

// TimelineRequest is the request body for POST /meetings/:id/timeline.
type TimelineRequest struct {
	AuthorID string `json:"author_id"`
	Content  string `json:"content"`
}

// OutputRequest is the request body for POST /meetings/:id/outputs.
type OutputRequest struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// ValidateOutputsRequest is the request body for
// POST /meetings/:id/outputs/validate.
type ValidateOutputsRequest struct {
	OutputIDs   []string `json:"output_ids"`
	ValidatorID string   `json:"validator_id"`
}

// CompleteResponse is the response body for POST /meetings/:id/complete.
type CompleteResponse struct {
	ProposedEntries []*memorygate.MemoryEntry `json:"proposed_entries"`
}

func (s *Server) handleMeetingCreate(c echo.Context) error {
	var req MeetingCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var maxDuration time.Duration
	if req.MaxDuration != "" {
		d, err := time.ParseDuration(req.MaxDuration)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "max_duration must be a duration like 45m")
		}
		maxDuration = d
	}

	m, err := s.meetings.Create(c.Request().Context(), req.InitiatorID, meeting.Kind(req.Kind), meeting.Definition{
		Scope:           req.Scope,
		Goal:            req.Goal,
		ClosureCriteria: req.ClosureCriteria,
		MaxDuration:     maxDuration,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (s *Server) handleMeetingList(c echo.Context) error {
	return c.JSON(http.StatusOK, s.meetings.List())
}

func (s *Server) handleMeetingGet(c echo.Context) error {
	m, err := s.meetings.Get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handleMeetingStart(c echo.Context) error {
	m, err := s.meetings.Start(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handleMeetingTimeline(c echo.Context) error {
	var req TimelineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	entry, err := s.meetings.AppendTimelineEntry(c.Request().Context(), c.Param("id"), req.AuthorID, req.Content)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleMeetingProposeOutput(c echo.Context) error {
	var req OutputRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	output, err := s.meetings.ProposeOutput(c.Request().Context(), c.Param("id"), meeting.OutputKind(req.Kind), req.Content)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, output)
}

func (s *Server) handleMeetingRequestClosure(c echo.Context) error {
	m, err := s.meetings.RequestClosure(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handleMeetingValidateOutputs(c echo.Context) error {
	var req ValidateOutputsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	m, err := s.meetings.ValidateOutputs(c.Request().Context(), c.Param("id"), req.OutputIDs, req.ValidatorID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handleMeetingComplete(c echo.Context) error {
	entries, err := s.meetings.Complete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, CompleteResponse{ProposedEntries: entries})
}

func (s *Server) handleMeetingCancel(c echo.Context) error {
	m, err := s.meetings.Cancel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
