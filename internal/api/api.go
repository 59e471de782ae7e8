// Package api is the thin HTTP/WebSocket transport over councilsvc:
// route table, request binding, and error-to-status mapping. All
// behaviour lives in the service layer, none here.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/raju-bvssn/ai-agent-council/internal/councilsvc"
	"github.com/raju-bvssn/ai-agent-council/internal/errs"
	"github.com/raju-bvssn/ai-agent-council/internal/events"
	"github.com/raju-bvssn/ai-agent-council/internal/kernel"
	"github.com/raju-bvssn/ai-agent-council/internal/version"
)

// Server is the council's HTTP API server.
type Server struct {
	echo        *echo.Echo
	httpServer  *http.Server
	svc         *councilsvc.Service
	connManager *events.Manager
}

// NewServer builds a Server with all routes registered.
func NewServer(svc *councilsvc.Service, connManager *events.Manager) *Server {
	e := echo.New()
	s := &Server{echo: e, svc: svc, connManager: connManager}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/sessions", s.createSessionHandler)
	v1.GET("/sessions", s.listSessionsHandler)
	v1.GET("/sessions/:id", s.getSessionHandler)
	v1.DELETE("/sessions/:id", s.deleteSessionHandler)
	v1.POST("/sessions/:id/start", s.startWorkflowHandler)
	v1.POST("/sessions/:id/step", s.stepWorkflowHandler)
	v1.GET("/sessions/:id/status", s.getStatusHandler)
	v1.GET("/sessions/:id/deliverables", s.getDeliverablesHandler)
	v1.POST("/sessions/:id/chat", s.chatHandler)

	v1.GET("/ws", s.wsHandler)
}

// securityHeaders sets standard hardening response headers.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			return next(c)
		}
	}
}

// Start starts the HTTP server on addr (non-blocking caller responsibility).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// used by tests to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version.Full()})
}

func (s *Server) wsHandler(c *echo.Context) error {
	if s.connManager == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "websocket not available")
	}
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return err
	}
	s.connManager.HandleConnection(c.Request().Context(), conn)
	return nil
}

type createSessionRequest struct {
	UserRequest  string         `json:"userRequest"`
	UserContext  map[string]any `json:"userContext,omitempty"`
	MaxRevisions int            `json:"maxRevisions,omitempty"`
}

func (s *Server) createSessionHandler(c *echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	state, err := s.svc.CreateSession(c.Request().Context(), councilsvc.CreateSessionRequest{
		UserRequest:  req.UserRequest,
		UserContext:  req.UserContext,
		MaxRevisions: req.MaxRevisions,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, state)
}

func (s *Server) listSessionsHandler(c *echo.Context) error {
	limit, offset := paginationParams(c)
	summaries, total, err := s.svc.ListSessions(c.Request().Context(), limit, offset)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": summaries, "total": total})
}

func (s *Server) getSessionHandler(c *echo.Context) error {
	state, err := s.svc.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) deleteSessionHandler(c *echo.Context) error {
	if err := s.svc.DeleteSession(c.Request().Context(), c.Param("id")); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) startWorkflowHandler(c *echo.Context) error {
	state, err := s.svc.StartWorkflow(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	s.broadcastStatus(state.SessionID, state)
	return c.JSON(http.StatusOK, state)
}

type stepWorkflowRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment,omitempty"`
}

func (s *Server) stepWorkflowHandler(c *echo.Context) error {
	var req stepWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	state, err := s.svc.StepWorkflow(c.Request().Context(), c.Param("id"), kernel.HumanAction(req.Action), req.Comment)
	if err != nil {
		return mapServiceError(err)
	}
	s.broadcastStatus(state.SessionID, state)
	return c.JSON(http.StatusOK, state)
}

func (s *Server) getStatusHandler(c *echo.Context) error {
	state, err := s.svc.GetStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) getDeliverablesHandler(c *echo.Context) error {
	bundle, err := s.svc.GetDeliverables(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, bundle)
}

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) chatHandler(c *echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	msg, err := s.svc.Chat(c.Request().Context(), c.Param("id"), req.Question)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, msg)
}

// broadcastStatus pushes a status snapshot to WebSocket subscribers on
// this session's channel. Never fails the HTTP response; a dropped
// broadcast only delays a client's view, it never corrupts state.
func (s *Server) broadcastStatus(sessionID string, payload any) {
	if s.connManager == nil {
		return
	}
	s.connManager.Broadcast(sessionID, payload)
}

func paginationParams(c *echo.Context) (limit, offset int) {
	limit, offset = 50, 0
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// mapServiceError maps a councilsvc error kind to an HTTP status.
func mapServiceError(err error) *echo.HTTPError {
	var e *errs.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case errs.KindValidation:
			return echo.NewHTTPError(http.StatusBadRequest, e.Message)
		case errs.KindNotFound:
			return echo.NewHTTPError(http.StatusNotFound, e.Message)
		case errs.KindWrongStatus:
			return echo.NewHTTPError(http.StatusConflict, e.Message)
		case errs.KindSafety:
			return echo.NewHTTPError(http.StatusForbidden, e.Message)
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, e.Message)
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
