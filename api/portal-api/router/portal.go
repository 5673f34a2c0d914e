package portal_routers

import (
	"github.com/gin-gonic/gin"

	candidateApi "github.com/rapidaai/interview/api/portal-api/candidate"
	interviewApi "github.com/rapidaai/interview/api/portal-api/interview"
	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/connectors"
)

func InterviewRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, postgres connectors.PostgresConnector) {
	logger.Info("Internal InterviewRoutes and Connectors added to engine.")
	apiv1 := engine.Group("v1/entrevistas")
	ivApi, err := interviewApi.New(cfg, logger, postgres)
	if err != nil {
		logger.Fatalf("unable to initialize interview api: %v", err)
	}
	{
		apiv1.POST("/", ivApi.CreateInterview)
		apiv1.GET("/", ivApi.ListInterviews)
		apiv1.GET("/:entrevistaId", ivApi.GetInterview)
		apiv1.POST("/:entrevistaId/iniciar", ivApi.StartInterview)
		apiv1.GET("/:entrevistaId/atual", ivApi.CurrentInterview)
		apiv1.POST("/:entrevistaId/responder", ivApi.SubmitAnswer)
	}
}

func CandidateRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger) {
	logger.Info("Internal CandidateRoutes added to engine.")
	apiv1 := engine.Group("v1/candidatos")
	cdApi := candidateApi.New(cfg, logger)
	{
		apiv1.POST("/", cdApi.CreateCandidate)
		apiv1.GET("/:candidatoId", cdApi.GetCandidate)
	}
}
