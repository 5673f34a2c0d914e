// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package auth_api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
)

// AuthApi proxies login/signup/session/logout to the external identity
// provider. The provider is opaque: credentials pass through, tokens come
// back, and the portal never stores either.
type AuthApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	provider *resty.Client
}

func New(cfg *config.AppConfig, logger commons.Logger) *AuthApi {
	provider := resty.New().
		SetBaseURL(cfg.AuthHost).
		SetTimeout(cfg.UpstreamTimeout).
		SetHeader("Accept", "application/json")
	return &AuthApi{cfg: cfg, logger: logger, provider: provider}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required_without=Provider,omitempty,email"`
	Password string `json:"password" binding:"required_without=Provider"`
	// Provider selects an OAuth flow instead of email+password.
	Provider string `json:"provider"`
}

type signupRequest struct {
	Nome        string `json:"nome" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Telefone    string `json:"telefone"`
	LinkedinURL string `json:"linkedin_url"`
	Password    string `json:"password" binding:"required,min=6"`
}

func (api *AuthApi) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Credenciais inválidas", "detalhes": err.Error()})
		return
	}

	resp, err := api.provider.R().
		SetContext(c.Request.Context()).
		SetBody(req).
		Post("/auth/login")
	api.relay(c, resp, err)
}

func (api *AuthApi) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados de cadastro inválidos", "detalhes": err.Error()})
		return
	}

	resp, err := api.provider.R().
		SetContext(c.Request.Context()).
		SetBody(req).
		Post("/auth/signup")
	api.relay(c, resp, err)
}

func (api *AuthApi) Logout(c *gin.Context) {
	resp, err := api.provider.R().
		SetContext(c.Request.Context()).
		SetHeader("Authorization", c.GetHeader("Authorization")).
		Post("/auth/logout")
	api.relay(c, resp, err)
}

// Session validates the bearer token with the provider and enriches the
// reply with locally readable claims (subject, expiry). Claims are parsed
// without verification — the provider remains the authority, this only
// saves the frontend a decode.
func (api *AuthApi) Session(c *gin.Context) {
	authorization := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authorization, "Bearer ")
	if strings.TrimSpace(token) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token ausente"})
		return
	}

	resp, err := api.provider.R().
		SetContext(c.Request.Context()).
		SetHeader("Authorization", authorization).
		Get("/auth/session")
	if err != nil {
		api.logger.Errorf("session check failed upstream: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Serviço indisponível"})
		return
	}
	if !resp.IsSuccess() {
		c.Data(resp.StatusCode(), "application/json", resp.Body())
		return
	}

	out := gin.H{"session": "active"}
	claims := jwt.MapClaims{}
	if _, _, parseErr := jwt.NewParser().ParseUnverified(token, claims); parseErr == nil {
		if sub, err := claims.GetSubject(); err == nil {
			out["subject"] = sub
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			out["expires_at"] = exp.UTC().Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (api *AuthApi) relay(c *gin.Context, resp *resty.Response, err error) {
	if err != nil {
		api.logger.Errorf("auth provider unreachable: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Serviço indisponível",
		})
		return
	}
	c.Data(resp.StatusCode(), "application/json", resp.Body())
}
