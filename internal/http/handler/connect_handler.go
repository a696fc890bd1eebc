package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paperpath/docusign-connect/internal/domain"
	"github.com/paperpath/docusign-connect/internal/event"
	httpmiddleware "github.com/paperpath/docusign-connect/internal/http/middleware"
	"github.com/paperpath/docusign-connect/internal/metrics"
	envelopesvc "github.com/paperpath/docusign-connect/internal/service/envelope"
	"github.com/paperpath/docusign-connect/internal/service/session"
	"github.com/paperpath/docusign-connect/internal/service/webhook"
)

// ConnectHandler exposes the session, webhook, and envelope endpoints.
type ConnectHandler struct {
	Sessions  *session.Manager
	Envelopes *envelopesvc.Service
	Auth      *webhook.Authenticator
	Events    *webhook.Router
	Bus       *event.Bus
	Metrics   *metrics.Collector
	Prefix    string
	Logger    *zap.Logger
}

// NewConnectHandler creates the handler set.
func NewConnectHandler(
	sessions *session.Manager,
	envelopes *envelopesvc.Service,
	auth *webhook.Authenticator,
	events *webhook.Router,
	bus *event.Bus,
	collector *metrics.Collector,
	prefix string,
	logger *zap.Logger,
) *ConnectHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &ConnectHandler{
		Sessions:  sessions,
		Envelopes: envelopes,
		Auth:      auth,
		Events:    events,
		Bus:       bus,
		Metrics:   collector,
		Prefix:    prefix,
		Logger:    logger,
	}
}

// Login routes the user toward redirect_to: straight through with a live
// session, via a refresh exchange, or through the provider login page.
func (h *ConnectHandler) Login(c *gin.Context) {
	sid, ok := httpmiddleware.GetSessionID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Session not resolved."})
		return
	}

	redirectTo := strings.TrimSpace(c.Query("redirect_to"))
	if redirectTo == "" {
		redirectTo = "/"
	}

	redirect, err := h.Sessions.Establish(c.Request.Context(), sid, redirectTo, h.callbackURL(c))
	if err != nil {
		if errors.Is(err, domain.ErrAuthServerNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Authorization server is not configured."})
			return
		}
		h.Logger.Error("establish session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Could not establish a session."})
		return
	}

	c.Redirect(http.StatusFound, redirect.Location)
}

// Callback finishes the interactive login: state validation, code
// exchange, token persistence, then a redirect to the recovered target.
func (h *ConnectHandler) Callback(c *gin.Context) {
	sid, ok := httpmiddleware.GetSessionID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Session not resolved."})
		return
	}

	code := strings.TrimSpace(c.Query("code"))
	state := strings.TrimSpace(c.Query("state"))
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "code and state are required."})
		return
	}

	target, err := h.Sessions.CompleteLogin(c.Request.Context(), sid, state, code, h.callbackURL(c))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid_state", "error_description": "Security state did not validate. Restart login."})
			return
		}
		var exchangeErr *domain.ExchangeError
		if errors.As(err, &exchangeErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "exchange_failed", "error_description": exchangeErr.Error()})
			return
		}
		h.Logger.Error("complete login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Could not complete login."})
		return
	}

	c.Redirect(http.StatusFound, target)
}

// Event receives provider status notifications. The signature check runs
// against the raw body before any parsing; unknown envelopes and event
// names still acknowledge with 200 so the provider stops retrying.
func (h *ConnectHandler) Event(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Could not read request body."})
		return
	}

	signature := c.GetHeader(webhook.SignatureHeader)
	if !h.Auth.IsAuthentic(body, signature) {
		h.Metrics.RecordRejected()
		h.Bus.PublishNonAuthentic(c.Request.Context(), event.NonAuthentic{
			Signature: signature,
			Body:      body,
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "error_description": "Event signature is not authentic."})
		return
	}

	var payload domain.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "error_description": "Event body is not valid JSON."})
		return
	}

	if err := h.Events.Route(c.Request.Context(), payload); err != nil {
		h.Logger.Error("route event", zap.Error(err), zap.String("event", payload.Event))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Could not process event."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createEnvelopeRequest struct {
	Document string `json:"document" binding:"required"`
	Dir      string `json:"dir"`
	Subject  string `json:"subject"`
	Signers  []struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required"`
		Order int    `json:"order" binding:"required"`
	} `json:"signers"`
	CC *struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required"`
	} `json:"cc"`
}

type recipientResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Order  int    `json:"order"`
	IsCC   bool   `json:"is_cc"`
	Status string `json:"status,omitempty"`
}

type envelopeResponse struct {
	ID         int64               `json:"id"`
	EnvelopeID string              `json:"envelope_id,omitempty"`
	Document   string              `json:"document"`
	Subject    string              `json:"subject"`
	Status     string              `json:"status"`
	Recipients []recipientResponse `json:"recipients"`
}

// CreateEnvelope prepares an envelope from a stored document and sends it
// through the provider. Requires a session with a live access token.
func (h *ConnectHandler) CreateEnvelope(c *gin.Context) {
	sid, ok := httpmiddleware.GetSessionID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Session not resolved."})
		return
	}

	sess, err := h.Sessions.Current(c.Request.Context(), sid)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no_session", "error_description": "No valid session token. Log in first."})
			return
		}
		h.Logger.Error("load session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Could not load session."})
		return
	}

	var req createEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid envelope request."})
		return
	}

	in := envelopesvc.PrepareInput{
		Document: req.Document,
		Dir:      req.Dir,
		Subject:  req.Subject,
	}
	for _, signer := range req.Signers {
		in.Signers = append(in.Signers, envelopesvc.SignerInput{
			Name:  signer.Name,
			Email: signer.Email,
			Order: signer.Order,
		})
	}
	if req.CC != nil {
		in.CC = &envelopesvc.CarbonCopyInput{Name: req.CC.Name, Email: req.CC.Email}
	}

	envelope, recipients, err := h.Envelopes.Prepare(c.Request.Context(), in)
	if err != nil {
		var missing *domain.MissingDataError
		if errors.As(err, &missing) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "missing_data", "error_description": missing.Error()})
			return
		}
		h.Logger.Error("prepare envelope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Could not prepare envelope."})
		return
	}

	sent, err := h.Envelopes.Send(c.Request.Context(), envelope.ID, sess)
	if err != nil {
		h.Logger.Error("send envelope", zap.Error(err), zap.Int64("id", envelope.ID))
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider_error", "error_description": "Could not send envelope to the provider."})
		return
	}

	resp := envelopeResponse{
		ID:         sent.ID,
		EnvelopeID: sent.EnvelopeID,
		Document:   sent.OriginalFilename,
		Subject:    sent.Subject,
		Status:     string(sent.Status),
	}
	for _, recipient := range recipients {
		resp.Recipients = append(resp.Recipients, recipientResponse{
			ID:     recipient.ID,
			Name:   recipient.Name,
			Email:  recipient.Email,
			Order:  recipient.Order,
			IsCC:   recipient.IsCC,
			Status: string(recipient.Status),
		})
	}
	c.JSON(http.StatusCreated, resp)
}

// Logout clears the token bundle and pending state for the session.
func (h *ConnectHandler) Logout(c *gin.Context) {
	sid, ok := httpmiddleware.GetSessionID(c)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.Sessions.Logout(c.Request.Context(), sid); err != nil {
		h.Logger.Error("logout", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Could not clear session."})
		return
	}
	c.Status(http.StatusNoContent)
}

// Healthz reports liveness.
func (h *ConnectHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ConnectHandler) callbackURL(c *gin.Context) string {
	return fmt.Sprintf("%s://%s/%s/callback", schemeOnly(c.Request), hostOnly(c.Request), h.Prefix)
}

func schemeOnly(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}

func hostOnly(r *http.Request) string {
	if host := r.Header.Get("X-Forwarded-Host"); host != "" {
		return host
	}
	return r.Host
}
