package portal_routers

import (
	"github.com/gin-gonic/gin"

	authApi "github.com/rapidaai/interview/api/portal-api/auth"
	devicecheckApi "github.com/rapidaai/interview/api/portal-api/devicecheck"
	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/connectors"
)

func AuthRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger) {
	logger.Info("Internal AuthRoutes added to engine.")
	apiv1 := engine.Group("v1/auth")
	aApi := authApi.New(cfg, logger)
	{
		apiv1.POST("/login", aApi.Login)
		apiv1.POST("/signup", aApi.Signup)
		apiv1.POST("/logout", aApi.Logout)
		apiv1.GET("/session", aApi.Session)
	}
}

func DeviceCheckRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, redis connectors.RedisConnector) {
	logger.Info("Internal DeviceCheckRoutes and Connectors added to engine.")
	apiv1 := engine.Group("v1/device-check")
	dcApi := devicecheckApi.New(cfg, logger, redis)
	{
		apiv1.PUT("/:candidateId/camera", dcApi.MarkCamera)
		apiv1.PUT("/:candidateId/microphone", dcApi.MarkMicrophone)
		apiv1.GET("/:candidateId", dcApi.Status)
	}
}
