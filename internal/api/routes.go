package api

import (
	"strings"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")

	api.Post("/auth/login", s.handleLogin)

	protected := api.Use(s.authMiddleware())

	protected.Post("/vitals", s.handleCreateVitals)
	protected.Get("/vitals", s.handleListVitals)

	protected.Post("/symptoms", s.handleCreateSymptoms)
	protected.Get("/symptoms", s.handleListSymptoms)

	protected.Get("/insights", s.handleListInsights)

	protected.Get("/reminders", s.handleListReminders)
	protected.Post("/reminders", s.handleCreateReminder)
	protected.Delete("/reminders/:id", s.handleDeleteReminder)

	protected.Get("/caregivers", s.handleListCaregivers)
	protected.Post("/caregivers", s.handleCreateCaregiver)
	protected.Delete("/caregivers/:id", s.handleDeleteCaregiver)

	protected.Get("/goals", s.handleListGoals)
	protected.Post("/goals", s.handleCreateGoal)
	protected.Delete("/goals/:id", s.handleDeleteGoal)

	protected.Get("/notifications", s.handleListNotifications)

	// Batch triggers for external schedulers. GET and POST both accepted.
	protected.Post("/jobs/dispatch-reminders", s.handleDispatchReminders)
	protected.Get("/jobs/dispatch-reminders", s.handleDispatchReminders)
	protected.Post("/jobs/check-goals", s.handleCheckGoals)
	protected.Get("/jobs/check-goals", s.handleCheckGoals)
}
