package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/paolomoz/pagepoof-sub000/config"
	"github.com/paolomoz/pagepoof-sub000/internal/pipeline"
	"github.com/paolomoz/pagepoof-sub000/internal/retriever"
	"github.com/paolomoz/pagepoof-sub000/internal/session"
)

// GenerateHandler exposes page generation: POST creates a session and
// starts the pipeline; GET streams its events over SSE and supports
// resumption via resumeFrom.
type GenerateHandler struct {
	Sessions *session.Manager
	Pipeline *pipeline.Orchestrator
	Client   config.ClientConfig
	Logger   *log.Logger
}

func (h *GenerateHandler) Register(g *echo.Group) {
	g.POST("/generate", h.createGeneration)
	g.GET("/generate/stream", h.streamGeneration)
}

type generateRequest struct {
	Query   string             `json:"query"`
	Profile *retriever.Profile `json:"profile,omitempty"`
}

type generateResponse struct {
	SessionID string             `json:"session_id"`
	StreamURL string             `json:"stream_url"`
	Retry     retryPolicyPayload `json:"retry_policy"`
}

type retryPolicyPayload struct {
	BaseDelayMS int     `json:"base_delay_ms"`
	Multiplier  float64 `json:"multiplier"`
	MaxRetries  int     `json:"max_retries"`
}

// createGeneration registers a session, kicks off the pipeline in the
// background, and returns the id the client streams against.
func (h *GenerateHandler) createGeneration(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sess := h.start(req.Query, req.Profile)
	return c.JSON(http.StatusAccepted, generateResponse{
		SessionID: sess.ID,
		StreamURL: "/api/generate/stream?session=" + sess.ID,
		Retry: retryPolicyPayload{
			BaseDelayMS: int(h.Client.RetryBaseDelay / time.Millisecond),
			Multiplier:  h.Client.RetryMultiplier,
			MaxRetries:  h.Client.MaxRetries,
		},
	})
}

// start runs the pipeline under a background context so a client
// disconnect does not kill generation; only session abandonment does.
func (h *GenerateHandler) start(query string, profile *retriever.Profile) *session.Session {
	sess, ctx := h.Sessions.Create(context.Background())
	go h.Pipeline.Run(ctx, sess, pipeline.Request{Query: query, Profile: profile})
	return sess
}

// streamGeneration serves the SSE stream. ?session resumes an existing
// run (optionally from ?resumeFrom, else the persisted checkpoint); ?q
// alone starts a fresh run and streams it in one round trip.
func (h *GenerateHandler) streamGeneration(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()

	sessionID := strings.TrimSpace(c.QueryParam("session"))
	query := strings.TrimSpace(c.QueryParam("q"))

	var sess *session.Session
	resumeFrom := -1
	switch {
	case sessionID != "":
		var ok bool
		sess, ok = h.Sessions.Get(sessionID)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "unknown or expired session")
		}
		resumeFrom = h.Sessions.LastCheckpoint(ctx, sessionID)
		if val := strings.TrimSpace(c.QueryParam("resumeFrom")); val != "" {
			idx, err := strconv.Atoi(val)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "resumeFrom must be an integer")
			}
			resumeFrom = idx
		}
	case query != "":
		sess = h.start(query, nil)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "session or q required")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	events, detach := sess.Subscribe(resumeFrom)
	lastDelivered := resumeFrom
	defer func() {
		detach()
		// Persist the resume point so a later reconnect, even to another
		// instance's checkpoint store, can pick up where this one left off.
		h.Sessions.Checkpoint(context.Background(), sess.ID, lastDelivered)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, open := <-events:
			if !open {
				return nil
			}
			data, err := json.Marshal(evt)
			if err != nil {
				h.Logger.Printf("marshal event %d: %v", evt.Index, err)
				continue
			}
			if _, err := resp.Write([]byte("event: " + string(evt.Name) + "\n")); err != nil {
				return nil
			}
			if _, err := resp.Write([]byte("id: " + strconv.Itoa(evt.Index) + "\n")); err != nil {
				return nil
			}
			if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
			lastDelivered = evt.Index
		}
	}
}
