// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package interview_client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/types"
)

// MaxClipBytes is the client-side upload ceiling. Clips above it are
// rejected before any network call is made.
const MaxClipBytes = 50 * 1024 * 1024

// InterviewServiceClient talks to the portal's interview endpoints on behalf
// of the capture agent.
type InterviewServiceClient interface {
	// StartInterview begins a session for the candidate. When the upstream
	// reports a session already in progress, the client recovers it
	// transparently through the current-session endpoint.
	StartInterview(ctx context.Context, interviewID, candidateID string) (*types.InterviewSession, error)

	// CurrentSession fetches the in-progress session for an interview.
	CurrentSession(ctx context.Context, interviewID string) (*types.InterviewSession, error)

	// SubmitAnswer uploads one recorded clip and returns either the next
	// question or the terminal finalizada signal.
	SubmitAnswer(ctx context.Context, sessionID, candidateID string, questionOrder int, clip types.Clip) (*types.InterviewResponse, error)
}

type interviewServiceClient struct {
	http   *resty.Client
	logger commons.Logger
}

type apiError struct {
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Detail, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// NewInterviewServiceClient builds a client against baseURL, e.g.
// "http://localhost:5345/v1".
func NewInterviewServiceClient(baseURL string, timeout time.Duration, logger commons.Logger) InterviewServiceClient {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &interviewServiceClient{http: http, logger: logger}
}

func (c *interviewServiceClient) StartInterview(ctx context.Context, interviewID, candidateID string) (*types.InterviewSession, error) {
	var session types.InterviewSession
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"candidato_id": candidateID}).
		SetResult(&session).
		SetError(&apiErr).
		Post(fmt.Sprintf("/entrevistas/%s/iniciar", interviewID))
	if err != nil {
		return nil, fmt.Errorf("%w: start interview %s: %v", types.ErrNetworkFailure, interviewID, err)
	}

	switch {
	case resp.IsSuccess():
		c.logger.Infof("interview started: id=%s question=%d/%d",
			session.ID, session.PerguntaAtual.Ordem, session.TotalPerguntas)
		return &session, nil

	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("%w: interview %s", types.ErrSessionNotFound, interviewID)

	case resp.StatusCode() == http.StatusBadRequest && strings.Contains(apiErr.text(), "em andamento"):
		// An answer was already submitted on a previous visit. Recover the
		// live session instead of failing the whole flow.
		c.logger.Infof("interview %s already in progress, recovering current session", interviewID)
		recovered, recoverErr := c.CurrentSession(ctx, interviewID)
		if recoverErr != nil {
			return nil, fmt.Errorf("%w: recovery failed: %v", types.ErrAlreadyInProgress, recoverErr)
		}
		return recovered, nil

	case resp.StatusCode() >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: start interview %s: status %d", types.ErrServiceUnavailable, interviewID, resp.StatusCode())

	default:
		return nil, fmt.Errorf("%w: start interview %s: status %d: %s",
			types.ErrValidation, interviewID, resp.StatusCode(), apiErr.text())
	}
}

func (c *interviewServiceClient) CurrentSession(ctx context.Context, interviewID string) (*types.InterviewSession, error) {
	var session types.InterviewSession
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&session).
		SetError(&apiErr).
		Get(fmt.Sprintf("/entrevistas/%s/atual", interviewID))
	if err != nil {
		return nil, fmt.Errorf("%w: current session %s: %v", types.ErrNetworkFailure, interviewID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: interview %s", types.ErrSessionNotFound, interviewID)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: current session %s: status %d", types.ErrServiceUnavailable, interviewID, resp.StatusCode())
	}
	return &session, nil
}

func (c *interviewServiceClient) SubmitAnswer(ctx context.Context, sessionID, candidateID string, questionOrder int, clip types.Clip) (*types.InterviewResponse, error) {
	// Reject oversized clips before touching the network.
	if clip.Size() > MaxClipBytes {
		return nil, fmt.Errorf("%w: %.2fMB over %dMB limit",
			types.ErrPayloadTooLarge, float64(clip.Size())/1024/1024, MaxClipBytes/1024/1024)
	}

	filename := clip.Filename
	if filename == "" {
		filename = fmt.Sprintf("entrevista_%s_%d.webm", sessionID, time.Now().UnixMilli())
	}
	mimeType := clip.MimeType
	if mimeType == "" {
		mimeType = "video/webm"
	}

	var result types.InterviewResponse
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("video", filename, bytes.NewReader(clip.Data)).
		SetMultipartFormData(map[string]string{
			"candidato_id":   candidateID,
			"pergunta_atual": strconv.Itoa(questionOrder),
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/entrevistas/%s/responder", sessionID))
	if err != nil {
		return nil, fmt.Errorf("%w: submit answer: %v", types.ErrNetworkFailure, err)
	}

	switch {
	case resp.IsSuccess():
		return &result, nil
	case resp.StatusCode() == http.StatusRequestEntityTooLarge:
		return nil, fmt.Errorf("%w: rejected by server", types.ErrPayloadTooLarge)
	case resp.StatusCode() >= http.StatusInternalServerError || resp.StatusCode() == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: submit answer: status %d", types.ErrServiceUnavailable, resp.StatusCode())
	default:
		return nil, fmt.Errorf("%w: submit answer: status %d: %s",
			types.ErrValidation, resp.StatusCode(), apiErr.text())
	}
}
