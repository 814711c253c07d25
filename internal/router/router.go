// Package router wires handlers, authentication and permission guards onto
// the Echo instance.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/employee-management/internal/auth"
	"github.com/iliyamo/employee-management/internal/config"
	"github.com/iliyamo/employee-management/internal/handler"
	"github.com/iliyamo/employee-management/internal/middleware"
	"github.com/iliyamo/employee-management/internal/service"
)

// Deps carries everything the routes need. Rdb may be nil; the rate limiter
// then passes every request through.
type Deps struct {
	DB      *sql.DB
	Rdb     *redis.Client
	RLCfg   config.RateLimitConfig
	Issuer  *auth.Issuer
	Svc     *service.AuthService
	Auth    *handler.AuthHandler
	Admin   *handler.AdminHandler
	Emps    *handler.EmployeeHandler
	Attend  *handler.AttendanceHandler
	Roles   *handler.RoleHandler
}

// Register mounts every route. The authentication endpoints sit behind the
// Redis token bucket; everything under /v1 outside /v1/auth requires a
// valid bearer token, with per-route permission guards on top.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))

	// Credential endpoints: rate limited, no bearer required.
	authGroup := e.Group("/v1/auth")
	authGroup.Use(middleware.RateLimit(d.RLCfg, d.Rdb))
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)
	authGroup.POST("/refresh", d.Auth.Refresh)
	authGroup.POST("/logout", d.Auth.Logout)
	authGroup.POST("/password/forgot", d.Auth.RequestPasswordReset)
	authGroup.POST("/password/reset", d.Auth.ResetPassword)

	// Everything below requires a valid access token. Requests carrying a
	// session token get their last-activity stamp refreshed.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(d.Issuer))
	v1.Use(middleware.TrackActivity(d.Svc.TouchSession))

	v1.GET("/me", d.Auth.Me)
	v1.GET("/me/sessions", d.Auth.Sessions)
	v1.POST("/me/sessions/extend", d.Auth.ExtendSession)
	v1.POST("/me/logout-all", d.Auth.LogoutAll)
	v1.POST("/me/password", d.Auth.ChangePassword)

	emps := v1.Group("/employees")
	emps.GET("", d.Emps.List, middleware.RequirePermission(auth.PermViewEmployees))
	emps.GET("/:id", d.Emps.Get, middleware.RequirePermission(auth.PermViewEmployees))
	emps.POST("", d.Emps.Create, middleware.RequirePermission(auth.PermEditEmployees))
	emps.PUT("/:id", d.Emps.Update, middleware.RequirePermission(auth.PermEditEmployees))
	emps.DELETE("/:id", d.Emps.Delete, middleware.RequirePermission(auth.PermDeleteEmployees))

	emps.POST("/:id/attendance/check-in", d.Attend.CheckIn, middleware.RequirePermission(auth.PermEditAttendance))
	emps.POST("/:id/attendance/check-out", d.Attend.CheckOut, middleware.RequirePermission(auth.PermEditAttendance))
	emps.GET("/:id/attendance", d.Attend.ListForEmployee, middleware.RequirePermission(auth.PermViewAttendance))

	v1.GET("/attendance", d.Attend.ListForDate, middleware.RequirePermission(auth.PermGenerateReports, auth.PermViewAttendance))

	roles := v1.Group("/roles", middleware.RequirePermission(auth.PermManageRoles))
	roles.GET("", d.Roles.List)
	roles.GET("/:id", d.Roles.Get)
	roles.POST("", d.Roles.Create)
	roles.PUT("/:id", d.Roles.Update)
	roles.DELETE("/:id", d.Roles.Delete)

	admin := v1.Group("/admin", middleware.RequirePermission(auth.PermManageUsers))
	admin.PUT("/accounts/:id/role", d.Admin.AssignRole)
	admin.POST("/accounts/:id/deactivate", d.Admin.DeactivateAccount)
	admin.DELETE("/accounts/:id", d.Admin.DeleteAccount)
	admin.GET("/accounts/:id/tokens", d.Admin.AccountTokens)
	admin.GET("/accounts/:id/sessions", d.Admin.AccountSessions)
	admin.POST("/tokens/revoke-by-ip", d.Admin.RevokeByIP)
	admin.POST("/tokens/introspect", d.Admin.Introspect)
	admin.GET("/tokens/stats", d.Admin.TokenStats)
	admin.GET("/sessions/idle", d.Admin.IdleSessions)
}
