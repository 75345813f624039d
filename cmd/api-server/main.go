package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/driveadmin/autoescola-api/api/swagger"
	"github.com/driveadmin/autoescola-api/internal/authz"
	"github.com/driveadmin/autoescola-api/internal/handler"
	"github.com/driveadmin/autoescola-api/internal/middleware"
	"github.com/driveadmin/autoescola-api/internal/models"
	"github.com/driveadmin/autoescola-api/internal/repository"
	"github.com/driveadmin/autoescola-api/internal/service"
	"github.com/driveadmin/autoescola-api/pkg/cache"
	"github.com/driveadmin/autoescola-api/pkg/config"
	"github.com/driveadmin/autoescola-api/pkg/database"
	"github.com/driveadmin/autoescola-api/pkg/logger"
	corsmiddleware "github.com/driveadmin/autoescola-api/pkg/middleware/cors"
	reqidmiddleware "github.com/driveadmin/autoescola-api/pkg/middleware/requestid"
)

// @title Autoescola API
// @version 1.0.0
// @description Multi-tenant driving school platform: access control, enrollments and payment ledger
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Dashboard.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
			defer cacheRepo.Close()
		}
	}

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	schoolSvc := service.NewSchoolService(schoolRepo, nil, logr)
	membershipSvc := service.NewMembershipService(membershipRepo, schoolRepo, userRepo, userRepo, logr)
	ledgerSvc := service.NewLedgerService(enrollmentRepo, userRepo, schoolRepo, userRepo, nil, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, ledgerSvc, userRepo, cacheSvc, metricsSvc, nil, logr, cfg.Payments.RejectOverpayment)
	dashboardSvc := service.NewDashboardService(enrollmentRepo, schoolRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	guard := authz.NewGuard(authz.NewPermissionTable(), membershipRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	schoolHandler := handler.NewSchoolHandler(schoolSvc)
	membershipHandler := handler.NewMembershipHandler(membershipSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(ledgerSvc, guard)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, ledgerSvc, guard)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.POST("/auth/login", authHandler.Login)
	r.POST("/auth/refresh", authHandler.Refresh)

	authed := r.Group("/", middleware.JWT(authSvc))
	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)

	users := authed.Group("/users")
	users.GET("", middleware.Authorize(guard, metricsSvc, authz.ActionRead, authz.ResourceUsers), userHandler.List)
	users.POST("", middleware.Authorize(guard, metricsSvc, authz.ActionCreate, authz.ResourceUsers), middleware.Audit(userRepo, models.AuditActionCreateUser, "users"), userHandler.Create)
	users.GET("/:id", middleware.Authorize(guard, metricsSvc, authz.ActionRead, authz.ResourceUsers), userHandler.Get)
	users.DELETE("/:id", middleware.Authorize(guard, metricsSvc, authz.ActionDelete, authz.ResourceUsers), middleware.Audit(userRepo, models.AuditActionDeactivateUser, "users"), userHandler.Deactivate)
	users.GET("/:id/schools", middleware.Authorize(guard, metricsSvc, authz.ActionRead, authz.ResourceMemberships), membershipHandler.ListSchoolsForUser)
	users.GET("/:id/schools/unassigned", middleware.Authorize(guard, metricsSvc, authz.ActionRead, authz.ResourceMemberships), membershipHandler.ListUnassignedSchools)

	schools := authed.Group("/schools")
	schools.GET("", middleware.Authorize(guard, metricsSvc, authz.ActionRead, authz.ResourceSchools), schoolHandler.List)
	schools.POST("", middleware.Authorize(guard, metricsSvc, authz.ActionCreate, authz.ResourceSchools), middleware.Audit(userRepo, models.AuditActionCreateSchool, "schools"), schoolHandler.Create)
	schools.GET("/:school_id", middleware.Authorize(guard, metricsSvc, authz.ActionRead, authz.ResourceSchools), schoolHandler.Get)
	schools.GET("/:school_id/members", middleware.Authorize(guard, metricsSvc, authz.ActionRead, authz.ResourceMemberships), membershipHandler.ListMembers)
	schools.POST("/:school_id/members", middleware.Authorize(guard, metricsSvc, authz.ActionCreate, authz.ResourceMemberships), membershipHandler.Assign)
	schools.DELETE("/:school_id/members/:user_id", middleware.Authorize(guard, metricsSvc, authz.ActionDelete, authz.ResourceMemberships), membershipHandler.Revoke)
	schools.GET("/:school_id/members/unassigned", middleware.Authorize(guard, metricsSvc, authz.ActionRead, authz.ResourceMemberships), membershipHandler.ListUnassignedUsers)
	schools.GET("/:school_id/dashboard", middleware.Authorize(guard, metricsSvc, authz.ActionRead, authz.ResourceDashboard), dashboardHandler.SchoolSummary)

	enrollments := authed.Group("/enrollments")
	enrollments.POST("", middleware.Authorize(guard, metricsSvc, authz.ActionCreate, authz.ResourceEnrollments), enrollmentHandler.Create)
	enrollments.GET("/:id", enrollmentHandler.Get)
	enrollments.GET("/:id/installments", enrollmentHandler.ListInstallments)
	enrollments.GET("/:id/summary", enrollmentHandler.Summary)
	enrollments.POST("/:id/cancel", middleware.Audit(userRepo, models.AuditActionCancelEnrollment, "enrollments"), enrollmentHandler.Cancel)
	enrollments.POST("/:id/payments", paymentHandler.Apply)
	enrollments.GET("/:id/payments", paymentHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
