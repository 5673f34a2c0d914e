// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package interview_api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"

	internal_clipstore "github.com/rapidaai/interview/api/portal-api/internal/clipstore"
	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/connectors"
	"github.com/rapidaai/interview/pkg/utils"
)

// InterviewApi proxies interview lifecycle calls to the orchestration API
// and persists uploaded answer clips on the way through.
type InterviewApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	store    internal_clipstore.Store
	upstream *resty.Client
}

func New(cfg *config.AppConfig, logger commons.Logger, postgres connectors.PostgresConnector) (*InterviewApi, error) {
	store := internal_clipstore.NewStore(postgres, logger)
	if err := store.Migrate(context.Background()); err != nil {
		return nil, err
	}
	upstream := resty.New().
		SetBaseURL(cfg.OrchestrationHost).
		SetTimeout(cfg.UpstreamTimeout).
		SetHeader("Accept", "application/json")
	return &InterviewApi{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		upstream: upstream,
	}, nil
}

type createInterviewRequest struct {
	Nome           string                   `json:"nome" binding:"required"`
	Prompt         string                   `json:"prompt" binding:"required"`
	Rags           []map[string]interface{} `json:"rags" binding:"required,min=1"`
	Idioma         string                   `json:"idioma"`
	MaxPerguntas   int                      `json:"max_perguntas"`
	TempoResposta  int                      `json:"tempo_resposta"`
	PermitePular   bool                     `json:"permite_pular"`
	PermiteRefazer bool                     `json:"permite_refazer"`
}

// CreateInterview validates the request and forwards it upstream.
func (api *InterviewApi) CreateInterview(c *gin.Context) {
	var req createInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Dados inválidos",
			"message": "Nome, prompt e RAGs são obrigatórios",
		})
		return
	}

	resp, err := api.upstream.R().
		SetContext(c.Request.Context()).
		SetBody(req).
		Post("/entrevistas/")
	api.relay(c, resp, err, http.StatusCreated)
}

// ListInterviews forwards pagination and status filters upstream.
func (api *InterviewApi) ListInterviews(c *gin.Context) {
	resp, err := api.upstream.R().
		SetContext(c.Request.Context()).
		SetQueryParam("pagina", c.DefaultQuery("pagina", "1")).
		SetQueryParam("tamanho_pagina", c.DefaultQuery("tamanho_pagina", "10")).
		SetQueryParam("status", c.Query("status")).
		Get("/entrevistas/")
	api.relay(c, resp, err, http.StatusOK)
}

func (api *InterviewApi) GetInterview(c *gin.Context) {
	resp, err := api.upstream.R().
		SetContext(c.Request.Context()).
		Get(fmt.Sprintf("/entrevistas/%s", c.Param("entrevistaId")))
	api.relay(c, resp, err, http.StatusOK)
}

type startInterviewRequest struct {
	CandidatoID string `json:"candidato_id" binding:"required"`
}

// StartInterview begins a session for one candidate.
func (api *InterviewApi) StartInterview(c *gin.Context) {
	var req startInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID do candidato é obrigatório"})
		return
	}

	resp, err := api.upstream.R().
		SetContext(c.Request.Context()).
		SetBody(req).
		Post(fmt.Sprintf("/entrevistas/%s/iniciar", c.Param("entrevistaId")))
	api.relay(c, resp, err, http.StatusCreated)
}

// CurrentInterview recovers the in-progress session, used by clients after
// an "already in progress" start.
func (api *InterviewApi) CurrentInterview(c *gin.Context) {
	resp, err := api.upstream.R().
		SetContext(c.Request.Context()).
		Get(fmt.Sprintf("/entrevistas/%s/atual", c.Param("entrevistaId")))
	api.relay(c, resp, err, http.StatusOK)
}

// SubmitAnswer receives one multipart clip, persists it to the local upload
// directory, records it, and forwards the answer upstream. The upstream
// reply (next question or finalizada) is returned to the candidate.
func (api *InterviewApi) SubmitAnswer(c *gin.Context) {
	interviewID := c.Param("entrevistaId")
	candidateID := c.PostForm("candidato_id")
	questionOrder := c.PostForm("pergunta_atual")
	if utils.IsEmpty(candidateID) || utils.IsEmpty(questionOrder) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados incompletos"})
		return
	}

	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nenhum arquivo recebido"})
		return
	}

	mimeType := file.Header.Get("Content-Type")
	if !utils.IsVideoMime(mimeType) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Formato inválido",
			"message": "O arquivo deve ser um vídeo",
		})
		return
	}
	if file.Size > api.cfg.UploadStore.MaxClipBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "Arquivo muito grande",
			"message": fmt.Sprintf("O limite é %dMB",
				api.cfg.UploadStore.MaxClipBytes/1024/1024),
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		api.logger.Errorf("failed to open uploaded clip: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro interno", "message": "Erro ao processar o vídeo"})
		return
	}
	defer src.Close()
	payload, err := io.ReadAll(src)
	if err != nil {
		api.logger.Errorf("failed to read uploaded clip: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro interno", "message": "Erro ao processar o vídeo"})
		return
	}

	// Persist first: even if the upstream is down the answer is not lost.
	uploadDir := filepath.Join(api.cfg.UploadStore.Directory, "videos")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		api.logger.Errorf("failed to create upload directory: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro interno", "message": "Erro ao processar o vídeo"})
		return
	}
	filename := fmt.Sprintf("%s_%d%s", interviewID, time.Now().UnixMilli(), utils.ClipExtension(file.Filename))
	filePath := filepath.Join(uploadDir, filename)
	if err := os.WriteFile(filePath, payload, 0o644); err != nil {
		api.logger.Errorf("failed to write clip file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro interno", "message": "Erro ao salvar o vídeo"})
		return
	}

	order, err := strconv.Atoi(questionOrder)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados incompletos", "message": "pergunta_atual inválida"})
		return
	}
	clip := &internal_clipstore.InterviewClip{
		InterviewID:   interviewID,
		CandidateID:   candidateID,
		QuestionOrder: order,
		Filename:      filename,
		SizeBytes:     file.Size,
		MimeType:      mimeType,
	}
	clipID, err := api.store.Save(c.Request.Context(), clip)
	if err != nil {
		api.logger.Errorf("failed to record clip: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro interno", "message": "Erro ao registrar o vídeo"})
		return
	}

	resp, err := api.upstream.R().
		SetContext(c.Request.Context()).
		SetFileReader("video", filename, bytes.NewReader(payload)).
		SetMultipartFormData(map[string]string{
			"candidato_id":   candidateID,
			"pergunta_atual": questionOrder,
		}).
		Post(fmt.Sprintf("/entrevistas/%s/responder", interviewID))
	if err != nil || resp.StatusCode() >= http.StatusInternalServerError {
		if markErr := api.store.MarkFailed(c.Request.Context(), clipID); markErr != nil {
			api.logger.Warnf("failed to mark clip failed: %v", markErr)
		}
		api.relay(c, resp, err, http.StatusOK)
		return
	}

	if resp.IsSuccess() {
		if markErr := api.store.MarkForwarded(c.Request.Context(), clipID); markErr != nil {
			api.logger.Warnf("failed to mark clip forwarded: %v", markErr)
		}
	}
	api.relay(c, resp, err, http.StatusOK)
}

// relay writes the upstream reply through, mapping transport failures to
// 503 the same way for every proxied route.
func (api *InterviewApi) relay(c *gin.Context, resp *resty.Response, err error, successCode int) {
	if err != nil {
		api.logger.Errorf("upstream call failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Serviço indisponível",
			"message": "Falha ao conectar ao servidor",
		})
		return
	}
	status := resp.StatusCode()
	if resp.IsSuccess() && status == http.StatusOK && successCode != http.StatusOK {
		status = successCode
	}
	c.Data(status, "application/json", resp.Body())
}
