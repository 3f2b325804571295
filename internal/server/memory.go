package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/governd/internal/memorygate"
)

// MemoryProposeRequest is the request body for POST /memory/propose. It
// creates a user note that enters the gate like any meeting-produced entry.
type MemoryProposeRequest struct {
	Content  string `json:"content"`
	Scope    string `json:"scope"`
	Location string `json:"location"`
}

// MemoryValidateRequest is the request body for POST /memory/:id/validate.
type MemoryValidateRequest struct {
	ValidatorID string `json:"validator_id"`
	FinalText   string `json:"final_text"`
}

func (s *Server) handleMemoryPending(c echo.Context) error {
	return c.JSON(http.StatusOK, s.gate.Pending())
}

func (s *Server) handleMemoryPropose(c echo.Context) error {
	var req MemoryProposeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	entry, err := memorygate.NewMemoryEntry(memorygate.KindUserNote, req.Content, "", memorygate.Destination{
		Scope:    req.Scope,
		Location: req.Location,
	})
	if err != nil {
		return writeError(c, err)
	}

	proposed, err := s.gate.Propose(c.Request().Context(), entry)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, proposed)
}

func (s *Server) handleMemoryValidate(c echo.Context) error {
	var req MemoryValidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	entry, err := s.gate.Validate(c.Request().Context(), c.Param("id"), req.ValidatorID, req.FinalText)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) handleMemoryReject(c echo.Context) error {
	if err := s.gate.Reject(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
