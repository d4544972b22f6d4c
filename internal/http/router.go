package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/weboryskills/webory-backend/internal/http/handlers"
	httpMW "github.com/weboryskills/webory-backend/internal/http/middleware"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler      *httpH.HealthHandler
	VerifyHandler      *httpH.VerifyHandler
	CertificateHandler *httpH.CertificateHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("webory-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Public verification
		if cfg.VerifyHandler != nil {
			api.GET("/verify-certificate/:id", cfg.VerifyHandler.VerifyByID)
			api.POST("/verify-certificate/ocr", cfg.VerifyHandler.VerifyOCR)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.CertificateHandler != nil {
			protected.GET("/courses/:id/certificate-eligibility", cfg.CertificateHandler.CourseEligibility)
			protected.GET("/internships/applications/:id/certificate", cfg.CertificateHandler.InternshipCertificate)
		}
	}

	admin := api.Group("/admin")
	{
		if cfg.AuthMiddleware != nil {
			admin.Use(cfg.AuthMiddleware.RequireAdmin())
		}

		if cfg.CertificateHandler != nil {
			admin.POST("/certificates/issue", cfg.CertificateHandler.Issue)
			admin.POST("/certificates/generate-custom", cfg.CertificateHandler.GenerateCustom)
		}
	}

	return r
}
