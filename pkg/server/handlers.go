package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duynguyendang/cardcalc/pkg/common/errors"
	"github.com/duynguyendang/cardcalc/pkg/datalog"
)

type generateRequest struct {
	Project string `json:"project"`
	Card    string `json:"card"` // optional subtree scope
}

type runRequest struct {
	Project string `json:"project"`
	Card    string `json:"card"`
}

// handleGenerate rebuilds the fact corpus for a project, optionally scoped
// to one card's subtree.
func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return
	}
	if req.Project == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing project path", nil))
		return
	}

	pc, err := s.manager.Get(req.Project)
	if err != nil {
		handleError(c, err)
		return
	}
	if err := pc.Engine.Generate(c.Request.Context(), req.Card); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleRun executes the derivation query for one card against an
// already-generated corpus.
func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return
	}
	if req.Project == "" || req.Card == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing project path or card key", nil))
		return
	}

	pc, err := s.manager.Get(req.Project)
	if err != nil {
		handleError(c, err)
		return
	}
	if _, err := s.manager.LookupCard(pc, req.Card); err != nil {
		handleError(c, err)
		return
	}

	facts, err := pc.Engine.Run(c.Request.Context(), req.Card)
	if err != nil {
		handleError(c, err)
		return
	}
	if facts == nil {
		facts = []datalog.DerivedFact{}
	}
	c.JSON(http.StatusOK, gin.H{"results": facts})
}

func handleError(c *gin.Context, err error) {
	appErr := errors.MapError(err)
	c.JSON(appErr.Code, gin.H{"error": appErr.Message})
}
