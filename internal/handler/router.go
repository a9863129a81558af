package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-scheduler/internal/middleware"
	"github.com/noah-isme/academic-scheduler/internal/models"
)

// Handlers groups the API handlers mounted by Register.
type Handlers struct {
	Auth          *AuthHandler
	Rooms         *RoomHandler
	Sessions      *SessionHandler
	Generator     *GeneratorHandler
	Absences      *AbsenceHandler
	Makeups       *MakeupHandler
	Reservations  *ReservationHandler
	Notifications *NotificationHandler
	Export        *ExportHandler
}

// Register mounts every API route under api. authn authenticates the
// caller; audit may be nil.
func Register(api gin.IRouter, h Handlers, authn gin.HandlerFunc, audit middleware.AuditWriter) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	anyone := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", authn, h.Auth.Logout)
	auth.GET("/me", authn, h.Auth.Me)

	secured := api.Group("", authn)

	rooms := secured.Group("/rooms")
	rooms.GET("", anyone, h.Rooms.List)
	rooms.GET("/available", staff, h.Rooms.Available)
	rooms.POST("/best", staff, h.Rooms.Best)
	rooms.POST("/assign", admin, h.Rooms.Assign)

	sessions := secured.Group("/sessions")
	sessions.GET("", anyone, h.Sessions.List)
	sessions.GET("/:id", anyone, h.Sessions.Get)
	sessions.POST("/validate", staff, h.Sessions.Validate)
	sessions.POST("", admin, middleware.Audit(audit, models.AuditActionSessionCreate, "session"), h.Sessions.Create)
	sessions.DELETE("/:id", admin, middleware.Audit(audit, models.AuditActionSessionDelete, "session"), h.Sessions.Delete)
	secured.GET("/availability", staff, h.Sessions.Availability)

	generator := secured.Group("/generator", admin)
	generator.POST("/preview", h.Generator.Preview)
	generator.POST("/commit", middleware.Audit(audit, models.AuditActionScheduleCommit, "timetable"), h.Generator.Commit)

	absences := secured.Group("/absences")
	absences.POST("", staff, middleware.Audit(audit, models.AuditActionAbsenceDeclare, "absence"), h.Absences.Declare)
	absences.GET("", staff, h.Absences.List)
	absences.DELETE("/:id", admin, h.Absences.Delete)

	makeups := secured.Group("/makeups", staff)
	makeups.POST("", middleware.Audit(audit, models.AuditActionMakeupBook, "makeup"), h.Makeups.Book)
	makeups.GET("", h.Makeups.List)
	makeups.POST("/:id/cancel", h.Makeups.Cancel)

	reservations := secured.Group("/reservations")
	reservations.POST("", staff, middleware.Audit(audit, models.AuditActionReservationRequest, "reservation"), h.Reservations.Request)
	reservations.GET("", staff, h.Reservations.List)
	reservations.POST("/:id/approve", admin, middleware.Audit(audit, models.AuditActionReservationReview, "reservation"), h.Reservations.Approve)
	reservations.POST("/:id/reject", admin, middleware.Audit(audit, models.AuditActionReservationReview, "reservation"), h.Reservations.Reject)

	notifications := secured.Group("/notifications", anyone)
	notifications.GET("", h.Notifications.List)
	notifications.POST("/:id/read", h.Notifications.MarkRead)

	secured.GET("/timetable/export", anyone, h.Export.Timetable)
}
