// File: internal/server/server.go
//
// Package server exposes the recording and task control surface over HTTP for
// the host shell, including a websocket push of the live frame.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/action"
	"github.com/xkilldash9x/deskpilot-cli/internal/config"
	"github.com/xkilldash9x/deskpilot-cli/internal/recorder"
)

// Server wires the recorder service into an echo HTTP server.
type Server struct {
	svc      *recorder.Service
	cfg      config.ServerConfig
	logger   *zap.Logger
	echo     *echo.Echo
	upgrader websocket.Upgrader
}

// New configures the HTTP server. Routes are registered immediately; Start
// binds the listener.
func New(svc *recorder.Service, cfg config.ServerConfig, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger.Named("server"),
		echo:   e,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The server binds to loopback; the shell is the only client.
				return true
			},
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.echo.Group("/api")
	api.POST("/recording/start", s.handleStart)
	api.POST("/recording/verify", s.handleVerify)
	api.POST("/recording/stop", s.handleStop)
	api.POST("/recording/rename", s.handleRename)
	api.GET("/recording/status", s.handleStatus)
	api.GET("/frame", s.handleFrame)
	api.GET("/frames", s.handleFrames)
	api.POST("/act", s.handleAct)
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStart(c echo.Context) error {
	folder, err := s.svc.StartRecording()
	if err != nil {
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"action_folder": folder})
}

func (s *Server) handleVerify(c echo.Context) error {
	if err := s.svc.VerifyRecording(); err != nil {
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "verified"})
}

type stopRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleStop(c echo.Context) error {
	var req stopRequest
	// The body is optional; an empty password skips encryption.
	_ = c.Bind(&req)

	if err := s.svc.StopRecording(req.Password); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopped"})
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRename(c echo.Context) error {
	var req renameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if err := s.svc.RenameCurrentAction(req.Name); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "renamed"})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.Status())
}

func (s *Server) handleFrame(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"frame": s.svc.LatestFrame()})
}

type actRequest struct {
	Instruction string `json:"instruction"`
}

type actResponse struct {
	Result string `json:"result"`
}

func (s *Server) handleAct(c echo.Context) error {
	var req actRequest
	if err := c.Bind(&req); err != nil || req.Instruction == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "instruction is required"})
	}

	result, err := s.svc.StartAction(c.Request().Context(), req.Instruction)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, action.ErrInterrupted):
			status = http.StatusConflict
		case errors.Is(err, action.ErrSafetyBreak):
			status = http.StatusUnprocessableEntity
		}
		return c.JSON(status, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, actResponse{Result: result})
}

type framePush struct {
	Frame string `json:"frame"`
}

// handleFrames streams the latest frame over a websocket at the configured
// interval until the client disconnects.
func (s *Server) handleFrames(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	interval := s.cfg.FramePushInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Drain client messages so pings and close frames are handled.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
			if err := ws.WriteJSON(framePush{Frame: s.svc.LatestFrame()}); err != nil {
				s.logger.Debug("Frame push ended", zap.Error(err))
				return nil
			}
		}
	}
}
