package app

import (
	"github.com/gin-gonic/gin"

	"github.com/weboryskills/webory-backend/internal/http"
	httpH "github.com/weboryskills/webory-backend/internal/http/handlers"
	httpMW "github.com/weboryskills/webory-backend/internal/http/middleware"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Verify      *httpH.VerifyHandler
	Certificate *httpH.CertificateHandler
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(),
		Verify:      httpH.NewVerifyHandler(log, services.Verification),
		Certificate: httpH.NewCertificateHandler(log, services.Issuer, services.Certificate),
	}
}

func wireRouter(log *logger.Logger, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:                log,
		AuthMiddleware:     middleware.Auth,
		HealthHandler:      handlers.Health,
		VerifyHandler:      handlers.Verify,
		CertificateHandler: handlers.Certificate,
	})
}
