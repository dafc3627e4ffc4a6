// Package evehttp provides the shared Echo server setup and the
// aggregate-status endpoint used by the probe/test harness, grounded on
// the teacher's http/server.go. It is ambient plumbing, not a public LRS
// surface: no xAPI statements are served from here, only operational
// health.
package evehttp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/evalgo/ralph-go/backend"
	"github.com/evalgo/ralph-go/evelog"
)

// ServerConfig mirrors the teacher's ServerConfig field-for-field.
type ServerConfig struct {
	Port            int
	Debug           bool
	BodyLimit       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimit       float64
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8080,
		Debug:           false,
		BodyLimit:       "10M",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		RateLimit:       0,
	}
}

// NewEchoServer builds an Echo instance with the same middleware stack the
// teacher wires into every EVE service.
func NewEchoServer(config ServerConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = config.Debug

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	e.Use(middleware.Recover())
	if config.BodyLimit != "" {
		e.Use(middleware.BodyLimit(config.BodyLimit))
	}
	if len(config.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: config.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
		}))
	}
	e.Use(middleware.RequestID())
	if config.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(config.RateLimit))))
	}
	return e
}

// BackendStatus is one entry in the aggregate heartbeat response.
type BackendStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// HeartbeatResponse is the JSON body HeartbeatHandler returns. The
// LRS-over-HTTP client backend's Status reads only the HTTP status code of
// a status_endpoint (spec §4.8, scenario S6), so this server can stand in
// as a fake upstream LRS in the probe harness.
type HeartbeatResponse struct {
	Status   string          `json:"status"`
	Backends []BackendStatus `json:"backends,omitempty"`
}

// HeartbeatHandler probes every registered backend and reports the worst
// status: ERROR (HTTP 500) if any is unhealthy-but-reachable, else AWAY
// (HTTP 503) if any is away, else OK (HTTP 200) — the same three-way
// taxonomy backend.Status uses internally.
func HeartbeatHandler(named map[string]backend.Prober) echo.HandlerFunc {
	return func(c echo.Context) error {
		statuses := make([]BackendStatus, len(named))
		results := make([]backend.Status, len(named))
		names := make([]string, 0, len(named))
		for name := range named {
			names = append(names, name)
		}

		// Every backend's probe is an independent round trip; run them
		// concurrently rather than serially so one slow backend doesn't
		// delay reporting on the rest.
		g, _ := errgroup.WithContext(c.Request().Context())
		for i, name := range names {
			i, name := i, name
			prober := named[name]
			g.Go(func() error {
				results[i] = prober.Status()
				return nil
			})
		}
		_ = g.Wait()

		worst := backend.OK
		for i, name := range names {
			statuses[i] = BackendStatus{Name: name, Status: results[i].String()}
			if results[i] > worst {
				worst = results[i]
			}
		}

		code := http.StatusOK
		switch worst {
		case backend.Away:
			code = http.StatusServiceUnavailable
		case backend.Error:
			code = http.StatusInternalServerError
		}
		return c.JSON(code, HeartbeatResponse{Status: worst.String(), Backends: statuses})
	}
}

func StartServer(e *echo.Echo, config ServerConfig) error {
	s := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	evelog.Logger.Infof("starting server on port %d", config.Port)
	return e.StartServer(s)
}

func GracefulShutdown(e *echo.Echo, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	evelog.Logger.Info("shutting down server gracefully")
	return e.Shutdown(ctx)
}
