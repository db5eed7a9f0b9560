package in

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	sessiondto "habitkit/internal/modules/session/dto"
	sessionin "habitkit/internal/modules/session/port/in"
	apperrors "habitkit/internal/platform/errors"
	"habitkit/internal/platform/httpx"
)

type HTTPHandler struct {
	usecase sessionin.Usecase
}

func NewHTTPHandler(usecase sessionin.Usecase) HTTPHandler {
	return HTTPHandler{usecase: usecase}
}

// Register mounts the session routes on rg (typically /v1).
func (h HTTPHandler) Register(rg *gin.RouterGroup) {
	session := rg.Group("/challenges/:id/session")
	session.POST("", h.start)
	session.GET("", h.getActive)
	session.DELETE("", h.cancel)
	session.POST("/complete", h.complete)
	rg.GET("/sessions/in-progress", h.listInProgress)
}

type sessionResponse struct {
	ID                string     `json:"id"`
	ChallengeID       string     `json:"challenge_id"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	IsActive          bool       `json:"is_active"`
	PostedAnonymously bool       `json:"posted_anonymously"`
}

type startResponse struct {
	Session sessionResponse `json:"session"`
	Created bool            `json:"created"`
}

type completeRequest struct {
	PostedAnonymously bool              `json:"posted_anonymously"`
	Answers           map[string]string `json:"answers"`
}

type completeResponse struct {
	ReflectionID       string    `json:"reflection_id"`
	SessionID          string    `json:"session_id,omitempty"`
	SessionDeactivated bool      `json:"session_deactivated"`
	CompletedAt        time.Time `json:"completed_at"`
}

type inProgressResponse struct {
	SessionID      string    `json:"session_id"`
	ChallengeID    string    `json:"challenge_id"`
	ChallengeTitle string    `json:"challenge_title"`
	Points         int       `json:"points"`
	StartedAt      time.Time `json:"started_at"`
	Placeholder    bool      `json:"placeholder,omitempty"`
}

func (h HTTPHandler) start(c *gin.Context) {
	out, err := h.usecase.Start(c.Request.Context(), sessiondto.StartInput{ChallengeID: c.Param("id")})
	if err != nil {
		httpx.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, startResponse{Session: toResponse(out.Session), Created: out.Created})
}

func (h HTTPHandler) getActive(c *gin.Context) {
	out, err := h.usecase.GetActive(c.Request.Context(), sessiondto.GetActiveInput{ChallengeID: c.Param("id")})
	if err != nil {
		httpx.Abort(c, err)
		return
	}
	if !out.Found {
		httpx.Abort(c, fmt.Errorf("no active session for %s: %w", c.Param("id"), apperrors.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, toResponse(out.Session))
}

func (h HTTPHandler) cancel(c *gin.Context) {
	if _, err := h.usecase.Cancel(c.Request.Context(), sessiondto.CancelInput{ChallengeID: c.Param("id")}); err != nil {
		httpx.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HTTPHandler) complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Abort(c, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err))
		return
	}
	out, err := h.usecase.Complete(c.Request.Context(), sessiondto.CompleteInput{
		ChallengeID:       c.Param("id"),
		PostedAnonymously: req.PostedAnonymously,
		Answers:           req.Answers,
	})
	if err != nil {
		httpx.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, completeResponse{
		ReflectionID:       out.ReflectionID,
		SessionID:          out.SessionID,
		SessionDeactivated: out.SessionDeactivated,
		CompletedAt:        out.CompletedAt,
	})
}

func (h HTTPHandler) listInProgress(c *gin.Context) {
	items, err := h.usecase.ListInProgress(c.Request.Context())
	if err != nil {
		httpx.Abort(c, err)
		return
	}
	resp := make([]inProgressResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, inProgressResponse(item))
	}
	c.JSON(http.StatusOK, resp)
}

func toResponse(s sessiondto.SessionOutput) sessionResponse {
	return sessionResponse{
		ID:                s.ID,
		ChallengeID:       s.ChallengeID,
		StartedAt:         s.StartedAt,
		CompletedAt:       s.CompletedAt,
		IsActive:          s.IsActive,
		PostedAnonymously: s.PostedAnonymously,
	}
}
