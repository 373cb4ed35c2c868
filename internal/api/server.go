package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/config"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/dispatch"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/goals"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/insight"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/mail"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/notify"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Server handles the HTTP API: the consumer write path, CRUD for reminders/
// caregivers/goals, and the batch-job trigger endpoints.
type Server struct {
	app      *fiber.App
	config   *config.Config
	store    *store.Store
	recorder *insight.Recorder
	notifier *notify.Notifier
	dispatch *dispatch.Job
	goals    *goals.Job
	logger   *zap.Logger
}

// New creates the API server and wires the write path and batch jobs
func New(cfg *config.Config, st *store.Store, logger *zap.Logger) *Server {
	relay := mail.NewRelay(mail.Config{
		Endpoint: cfg.Mail.Endpoint,
		APIKey:   cfg.Mail.APIKey,
		From:     cfg.Mail.From,
		Timeout:  cfg.Mail.Timeout,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:      app,
		config:   cfg,
		store:    st,
		recorder: insight.NewRecorder(st, logger),
		notifier: notify.New(st, relay, logger),
		dispatch: dispatch.NewJob(st, relay, logger),
		goals:    goals.NewJob(st, cfg.Location(), logger),
		logger:   logger,
	}

	s.setupRoutes()
	return s
}

// DispatchJob exposes the dispatcher for the cron runner
func (s *Server) DispatchJob() *dispatch.Job {
	return s.dispatch
}

// GoalsJob exposes the goal checker for the cron runner
func (s *Server) GoalsJob() *goals.Job {
	return s.goals
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

// App returns the fiber app (used by tests)
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenString := strings.TrimPrefix(auth, "Bearer ")

		// The external scheduler authenticates with the raw service token
		if s.config.Security.ServiceToken != "" && tokenString == s.config.Security.ServiceToken {
			return c.Next()
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.config.Security.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
		}

		return c.Next()
	}
}
