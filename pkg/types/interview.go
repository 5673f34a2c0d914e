// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package types

// Wire types for the interview-orchestration API. Field names follow the
// upstream (Portuguese) contract and are forwarded verbatim by the proxy.

// DefaultAnswerSeconds applies when a question carries no tempo_maximo.
const DefaultAnswerSeconds = 120

// Question is one prompt inside an interview. Immutable once received.
type Question struct {
	Texto        string  `json:"texto"`
	Ordem        int     `json:"ordem"`
	Contexto     *string `json:"contexto"`
	TempoMaximo  int     `json:"tempo_maximo"`
	PermitePular bool    `json:"permite_pular"`
}

// MaxDurationSeconds returns the answer window for the question, falling
// back to the default when the payload omitted or zeroed it.
func (q Question) MaxDurationSeconds() int {
	if q.TempoMaximo <= 0 {
		return DefaultAnswerSeconds
	}
	return q.TempoMaximo
}

// InterviewSession is the server-tracked progress of one candidate through
// an interview. Replaced wholesale with the server response after every
// submitted answer.
type InterviewSession struct {
	ID                 string   `json:"id"`
	CandidatoID        string   `json:"candidato_id"`
	PerguntaAtual      Question `json:"pergunta_atual"`
	TotalPerguntas     int      `json:"total_perguntas"`
	PerguntasRestantes int      `json:"perguntas_restantes"`
}

// InterviewResponse is the orchestration API's answer to a submitted clip:
// either the next question or the terminal finalizada signal with feedback.
type InterviewResponse struct {
	Finalizada         bool      `json:"finalizada"`
	PerguntaAtual      *Question `json:"pergunta_atual,omitempty"`
	TotalPerguntas     int       `json:"total_perguntas,omitempty"`
	PerguntasRestantes int       `json:"perguntas_restantes,omitempty"`
	Feedback           string    `json:"feedback,omitempty"`
}

// Clip is one recorded video answer, finalized and ready for upload.
type Clip struct {
	Data     []byte
	MimeType string
	Filename string
}

// Size returns the encoded clip length in bytes.
func (c Clip) Size() int64 {
	return int64(len(c.Data))
}
