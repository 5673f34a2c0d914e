// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package candidate_api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
)

// CandidateApi proxies candidate registration to the orchestration API.
type CandidateApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	upstream *resty.Client
}

func New(cfg *config.AppConfig, logger commons.Logger) *CandidateApi {
	upstream := resty.New().
		SetBaseURL(cfg.OrchestrationHost).
		SetTimeout(cfg.UpstreamTimeout).
		SetHeader("Accept", "application/json")
	return &CandidateApi{cfg: cfg, logger: logger, upstream: upstream}
}

type createCandidateRequest struct {
	Nome        string `json:"nome" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Telefone    string `json:"telefone"`
	LinkedinURL string `json:"linkedin_url"`
}

func (api *CandidateApi) CreateCandidate(c *gin.Context) {
	var req createCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Erro ao processar requisição",
			"detalhes": err.Error(),
		})
		return
	}

	resp, err := api.upstream.R().
		SetContext(c.Request.Context()).
		SetBody(req).
		Post("/candidatos/")
	if err != nil {
		api.logger.Errorf("candidate create failed upstream: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    "Serviço temporariamente indisponível",
			"detalhes": "Não foi possível conectar ao servidor externo",
		})
		return
	}

	status := resp.StatusCode()
	if resp.IsSuccess() && status == http.StatusOK {
		status = http.StatusCreated
	}
	c.Data(status, "application/json", resp.Body())
}

func (api *CandidateApi) GetCandidate(c *gin.Context) {
	resp, err := api.upstream.R().
		SetContext(c.Request.Context()).
		Get(fmt.Sprintf("/candidatos/%s", c.Param("candidatoId")))
	if err != nil {
		api.logger.Errorf("candidate fetch failed upstream: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Serviço temporariamente indisponível",
		})
		return
	}
	c.Data(resp.StatusCode(), "application/json", resp.Body())
}
