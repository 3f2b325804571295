package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/governd/internal/channel"
)

// ChannelInputRequest is the request body for POST /channel/:user_id/input.
type ChannelInputRequest struct {
	Text         string `json:"text"`
	ContextScope string `json:"context_scope"`
}

// ChannelStateResponse describes a session's current state and live artifact.
type ChannelStateResponse struct {
	UserID   string            `json:"user_id"`
	State    channel.State     `json:"state"`
	Intent   *channel.Intent   `json:"intent,omitempty"`
	Proposal *channel.Proposal `json:"proposal,omitempty"`
}

// AcceptResponse is the response body for POST /channel/:user_id/accept.
type AcceptResponse struct {
	Proposal  *channel.Proposal `json:"proposal"`
	MeetingID string            `json:"meeting_id,omitempty"`
}

func (s *Server) session(c echo.Context) (*channel.Session, error) {
	userID := c.Param("user_id")
	if userID == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	return s.sessions.Session(userID)
}

func (s *Server) handleChannelState(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	resp := ChannelStateResponse{
		UserID: sess.UserID(),
		State:  sess.State(),
	}
	if intent, ok := sess.CurrentIntent(); ok {
		resp.Intent = intent
	}
	if proposal, ok := sess.CurrentProposal(); ok {
		resp.Proposal = proposal
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleChannelInput(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	var req ChannelInputRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	intent, err := sess.SubmitInput(c.Request().Context(), req.Text, req.ContextScope)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, intent)
}

func (s *Server) handleChannelConfirm(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	proposal, err := sess.Confirm(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	if proposal == nil {
		// ActionNone intents are discarded; nothing was proposed.
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, proposal)
}

func (s *Server) handleChannelCancel(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	if err := sess.Cancel(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleChannelAccept(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	proposal, meetingID, err := sess.Accept(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, AcceptResponse{
		Proposal:  proposal,
		MeetingID: meetingID,
	})
}

func (s *Server) handleChannelReject(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	proposal, err := sess.Reject(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	if proposal == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, proposal)
}
