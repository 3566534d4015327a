// Package routes wires every component together and lays out the HTTP
// surface.
package routes

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/redis/go-redis/v9"

	"github.com/evn/attendance_backendl/config"
	"github.com/evn/attendance_backendl/internal/attendance"
	"github.com/evn/attendance_backendl/internal/auth"
	"github.com/evn/attendance_backendl/internal/clockutil"
	"github.com/evn/attendance_backendl/internal/handlers"
	"github.com/evn/attendance_backendl/internal/leave"
	"github.com/evn/attendance_backendl/internal/middleware"
	"github.com/evn/attendance_backendl/internal/notify"
	"github.com/evn/attendance_backendl/internal/pkg/response"
	"github.com/evn/attendance_backendl/internal/qr"
	"github.com/evn/attendance_backendl/internal/repositories"
	"github.com/evn/attendance_backendl/internal/schedule"
	"github.com/evn/attendance_backendl/internal/scheduler"
	"github.com/evn/attendance_backendl/internal/sessions"
	"github.com/evn/attendance_backendl/internal/untime"
)

// Setup builds the full component graph and returns the router together with
// the enforcement scheduler, which the caller starts once the server is up.
func Setup(cfg *config.Config, database *sql.DB, redisClient *redis.Client) (*chi.Mux, *scheduler.Scheduler) {
	loc, err := time.LoadLocation(cfg.OrgTimezone)
	if err != nil {
		log.Fatalf("load timezone %q: %v", cfg.OrgTimezone, err)
	}
	clock := clockutil.New(loc)

	staffRepo := repositories.NewStaffRepository(database)
	attendanceRepo := repositories.NewAttendanceRepository(database)
	leaveRepo := repositories.NewLeaveRepository(database)
	qrRepo := repositories.NewQRRepository(database)
	scheduleRepo := repositories.NewScheduleRepository(database)

	sessionStore := sessions.NewStore(redisClient, 0)
	resolver := schedule.NewResolver(scheduleRepo)
	leaveRegistry := leave.NewRegistry(leaveRepo, clock)
	engine := untime.NewEngine(staffRepo, resolver, leaveRegistry, clock)
	qrManager := qr.NewManager(qrRepo, clock)
	qrSigner := qr.NewLinkSigner(cfg.QRSecret, clock)
	ledger := attendance.NewLedger(attendanceRepo, engine, qrManager, resolver, clock)
	hub := notify.NewHub()
	jobs := scheduler.New(engine, ledger, sessionStore, resolver, staffRepo, resolver, hub, clock)

	jwtAuth := jwtauth.New("HS256", []byte(cfg.JwtSecret), nil)
	jwtService := auth.NewJWTService(cfg.JwtSecret)

	authHandler := handlers.NewAuthHandler(staffRepo, jwtService, sessionStore, engine)
	staffHandler := handlers.NewStaffHandler(staffRepo, sessionStore)
	attendanceHandler := handlers.NewAttendanceHandler(ledger)
	untimeHandler := handlers.NewUnTimeHandler(engine, staffRepo)
	leaveHandler := handlers.NewLeaveHandler(leaveRegistry)
	scheduleHandler := handlers.NewScheduleHandler(resolver, jobs)
	qrHandler := handlers.NewQRHandler(qrManager, qrSigner)
	reportHandler := handlers.NewReportHandler(ledger, staffRepo, loc)
	wsHandler := handlers.NewWSHandler(hub)

	router := chi.NewRouter()
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(jwtauth.Verifier(jwtAuth))
	router.Use(middleware.AddStaffToContext())

	// Public routes
	router.Post("/api/auth/login", authHandler.Login)
	router.Get("/api/qr/resolve", qrHandler.Resolve)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(jwtauth.Authenticator(jwtAuth))

		r.Post("/api/logout", authHandler.Logout)
		r.Post("/api/attendance/mark", attendanceHandler.Mark)
		r.Get("/api/attendance/today", attendanceHandler.Today)
		r.Get("/api/untime/status", untimeHandler.Status)
		r.Post("/api/untime/end", untimeHandler.EndSelf)
		r.Post("/api/leave", leaveHandler.Request)
		r.Get("/ws/alerts", wsHandler.Serve)

		// Admin routes
		r.Group(func(ar chi.Router) {
			ar.Use(middleware.AdminOnly())

			ar.Get("/api/admin/staff", staffHandler.List)
			ar.Post("/api/admin/staff", staffHandler.Create)
			ar.Get("/api/admin/staff/{staffID}", staffHandler.Get)
			ar.Patch("/api/admin/staff/{staffID}/block", staffHandler.SetBlocked)

			ar.Get("/api/admin/attendance/date/{date}", attendanceHandler.ByDate)
			ar.Get("/api/admin/attendance/staff/{staffID}", attendanceHandler.ByStaff)
			ar.Put("/api/admin/attendance/{staffID}/{date}", attendanceHandler.UpdateTimes)
			ar.Get("/api/admin/attendance/report", reportHandler.Export)
			ar.Post("/api/admin/attendance/force-close", attendanceHandler.ForceClose)

			ar.Get("/api/admin/untime", untimeHandler.List)
			ar.Post("/api/admin/untime/{staffID}/approve", untimeHandler.Approve)
			ar.Post("/api/admin/untime/{staffID}/reject", untimeHandler.Reject)
			ar.Post("/api/admin/untime/{staffID}/extend", untimeHandler.Extend)
			ar.Post("/api/admin/untime/bulk-status", untimeHandler.BulkStatus)

			ar.Get("/api/admin/leave", leaveHandler.List)
			ar.Post("/api/admin/leave/{requestID}/approve", leaveHandler.Approve)
			ar.Post("/api/admin/leave/{requestID}/reject", leaveHandler.Reject)
			ar.Delete("/api/admin/leave/{requestID}", leaveHandler.Delete)

			ar.Get("/api/admin/schedule/global", scheduleHandler.GetGlobal)
			ar.Put("/api/admin/schedule/global", scheduleHandler.UpdateGlobal)
			ar.Get("/api/admin/schedule/{staffID}", scheduleHandler.GetWeekly)
			ar.Put("/api/admin/schedule/{staffID}", scheduleHandler.SetWeekly)

			ar.Post("/api/admin/qr/rotate", qrHandler.Rotate)
			ar.Get("/api/admin/qr/current", qrHandler.Current)
		})
	})

	return router, jobs
}
