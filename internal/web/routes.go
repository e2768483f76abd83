package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	saver := capture.New(s.config.Model.UnknownDir)
	recognizeHandler := handlers.NewRecognizeHandler(s.config, s.engine, s.store, saver)
	attendanceHandler := handlers.NewAttendanceHandler(s.config, s.store, s.sender)
	trainHandler := handlers.NewTrainHandler(s.config, s.engine, s.jobManager)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Recognition
		r.Post("/recognize", recognizeHandler.Recognize)

		// Attendance
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/attendance/export", attendanceHandler.Export)
		r.Get("/students", attendanceHandler.Students)
		r.Get("/absentees", attendanceHandler.Absentees)
		r.Post("/absentees/notify", attendanceHandler.Notify)

		// Training (long-running operation)
		r.Post("/train", trainHandler.Start)
		r.Get("/train/{jobId}", trainHandler.Status)
	})
}
