// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package devicecheck_api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/connectors"
)

const (
	fieldCamera     = "camera"
	fieldMicrophone = "microphone"
)

// DeviceCheckApi records that a candidate's camera and microphone were
// verified before the interview started. Flags live in redis with a TTL so
// a stale check from a previous day never lets a candidate skip the test.
type DeviceCheckApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
	redis  connectors.RedisConnector
}

func New(cfg *config.AppConfig, logger commons.Logger, rds connectors.RedisConnector) *DeviceCheckApi {
	return &DeviceCheckApi{cfg: cfg, logger: logger, redis: rds}
}

func checkKey(candidateId string) string {
	return fmt.Sprintf("device-check:%s", candidateId)
}

// MarkCamera flags the candidate's camera test as passed.
func (api *DeviceCheckApi) MarkCamera(c *gin.Context) {
	api.mark(c, fieldCamera)
}

// MarkMicrophone flags the candidate's microphone test as passed.
func (api *DeviceCheckApi) MarkMicrophone(c *gin.Context) {
	api.mark(c, fieldMicrophone)
}

func (api *DeviceCheckApi) mark(c *gin.Context, field string) {
	candidateId := c.Param("candidateId")
	if candidateId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Candidato não informado"})
		return
	}

	ctx := c.Request.Context()
	key := checkKey(candidateId)
	client := api.redis.Client()

	pipe := client.TxPipeline()
	pipe.HSet(ctx, key, field, time.Now().UTC().Format(time.RFC3339))
	pipe.Expire(ctx, key, api.cfg.DeviceCheckTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		api.logger.Errorf("unable to persist %s check for candidate %s: %v", field, candidateId, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Serviço indisponível"})
		return
	}
	c.JSON(http.StatusOK, gin.H{field: true})
}

// Status reports which device checks the candidate has completed.
func (api *DeviceCheckApi) Status(c *gin.Context) {
	candidateId := c.Param("candidateId")
	if candidateId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Candidato não informado"})
		return
	}

	ctx := c.Request.Context()
	checks, err := api.redis.Client().HGetAll(ctx, checkKey(candidateId)).Result()
	if err != nil && err != redis.Nil {
		api.logger.Errorf("unable to read device checks for candidate %s: %v", candidateId, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Serviço indisponível"})
		return
	}

	_, camera := checks[fieldCamera]
	_, microphone := checks[fieldMicrophone]
	c.JSON(http.StatusOK, gin.H{
		"candidato_id": candidateId,
		"camera":       camera,
		"microphone":   microphone,
		"ready":        camera && microphone,
	})
}
