// Package server exposes the calculation engine over a small REST API.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duynguyendang/cardcalc/internal/manager"
)

// Server holds the state for the REST API server.
type Server struct {
	manager *manager.ProjectManager
	router  *gin.Engine
}

// NewServer creates a new Server instance.
func NewServer(mgr *manager.ProjectManager) *Server {
	r := gin.Default()
	s := &Server{
		manager: mgr,
		router:  r,
	}
	s.setupRoutes()
	return s
}

// Run starts the server on the specified address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/v1/generate", s.handleGenerate)
	s.router.POST("/v1/run", s.handleRun)
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}
