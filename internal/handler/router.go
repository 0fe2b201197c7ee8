package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"predictmax/internal/service"
)

type RouterOptions struct {
	Advisor *service.Advisor
	DB      *gorm.DB
	Auth    JWT
	Logger  *zap.Logger
	Swagger bool
}

// NewRouter wires health probes (public) and the /api/v1 routes (bearer auth
// when a secret is configured).
func NewRouter(opts RouterOptions) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	health := &HealthHandler{DB: opts.DB, Ready: opts.Advisor.Ready}
	health.Register(engine)
	if opts.Swagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group("", BearerAuth(opts.Auth))
	(&AdvisorHandler{Advisor: opts.Advisor, Logger: opts.Logger}).Register(api)
	return engine
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
