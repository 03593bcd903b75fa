package app

import (
	"database/sql"

	"github.com/One-johnson/sheepshep-sub001/internal/attendance"
	"github.com/One-johnson/sheepshep-sub001/internal/bootstrap"
	"github.com/One-johnson/sheepshep-sub001/internal/config"
	"github.com/One-johnson/sheepshep-sub001/internal/dispatch"
	"github.com/One-johnson/sheepshep-sub001/internal/messaging/kafka"
	"github.com/One-johnson/sheepshep-sub001/internal/middleware"
	"github.com/One-johnson/sheepshep-sub001/internal/rbac"
	"github.com/One-johnson/sheepshep-sub001/internal/rbac/infra"
	"github.com/One-johnson/sheepshep-sub001/internal/roster"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	cfg config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	// --- Repositories ---
	attendanceRepo := attendance.NewRepository(gormDB)
	rosterRepo := roster.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return err
	}
	rbacService, err := rbac.NewDefaultService(enforcer)
	if err != nil {
		return err
	}

	// --- Services ---
	rosterProvider := roster.NewProvider(rosterRepo, rdb, cfg.RosterCacheTTL)
	dispatcher := newDispatcher(cfg, outboxRepo, bootstrap.NewStdoutAuditLogger())
	gate := attendance.NewGate(rbacService, rosterProvider)
	attendanceService := attendance.NewService(db, attendanceRepo, gate, rosterProvider, dispatcher)

	// --- Handlers ---
	attendanceHandler := attendance.NewHandler(attendanceService)

	// --- Routes Registration ---
	guards := []gin.HandlerFunc{
		middleware.RateLimitByActor(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	}
	if rdb != nil {
		guards = append(guards, middleware.Idempotency(rdb))
	}

	api := router.Group("/api/v1")
	if cfg.IPRateLimitRPS > 0 {
		api.Use(middleware.RateLimitByIP(rate.Limit(cfg.IPRateLimitRPS), cfg.IPRateLimitBurst))
	}
	{
		attendance.RegisterRoutes(api, attendanceHandler, middleware.AuthMiddleware(cfg.JWTSecret), guards...)
	}

	return nil
}

// newDispatcher routes notifications through the outbox. Audit entries go
// through the outbox too when a broker is configured, where the audit
// consumer logs them; otherwise they are logged here.
func newDispatcher(cfg config.Config, outbox kafka.OutboxRepository, auditLog bootstrap.AuditLogger) dispatch.Dispatcher {
	outboxDispatcher := dispatch.NewOutboxDispatcher(outbox)
	if cfg.KafkaBroker != "" {
		return dispatch.Split(outboxDispatcher, outboxDispatcher)
	}
	return dispatch.Split(outboxDispatcher, dispatch.NewAuditLogDispatcher(auditLog))
}
