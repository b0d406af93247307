// Package server exposes the provisioning service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"facilityops/internal/intake"
	"facilityops/internal/provision"
	"facilityops/internal/store"
)

// Service is the application surface the HTTP API drives.
type Service interface {
	Provision(ctx context.Context, req *intake.Request) (*provision.Result, error)
	ListCustomers(ctx context.Context) ([]store.Customer, error)
	CustomerDetail(ctx context.Context, customerID string) (*store.CustomerDetail, error)
	ResendCredentials(ctx context.Context, customerID string) error
	UpdateNotificationPhones(ctx context.Context, customerID string, phones []string) ([]string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	Ping(ctx context.Context) error
}

// Options tune the handler. Zero values select defaults.
type Options struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

type errorResponse struct {
	Error string `json:"error"`
}

type provisionResponse struct {
	OK              bool   `json:"ok"`
	CustomerID      string `json:"customerId"`
	IdentityID      string `json:"identityId"`
	CredentialsSent bool   `json:"credentialsSent"`
	Warning         string `json:"warning,omitempty"`
}

type phonesRequest struct {
	NotificationPhones []string `json:"notificationPhones"`
}

// Handler serves the customer API.
type Handler struct {
	svc    Service
	opts   Options
	logger *zap.Logger
}

// NewHandler returns a Handler for svc. It panics if svc is nil.
func NewHandler(svc Service, opts Options, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("server.NewHandler: nil service")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, opts: opts, logger: logger}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(h.logger))
	r.Use(recovery(h.logger))

	r.GET("/health", h.handleHealth)

	api := r.Group("/api")
	{
		api.POST("/customers", h.handleProvision)
		api.GET("/customers", h.handleListCustomers)
		api.GET("/customers/:id", h.handleGetCustomer)
		api.DELETE("/customers/:id", h.handleDeleteCustomer)
		api.POST("/customers/:id/credentials", h.handleResendCredentials)
		api.PUT("/customers/:id/notification-phones", h.handleUpdatePhones)
	}
	return r
}

func (h *Handler) withTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.opts.RequestTimeout)
}

func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(httpStatus(err), errorResponse{Error: err.Error()})
}

func (h *Handler) handleProvision(c *gin.Context) {
	body, err := intake.ReadBody(c.Request, h.opts.MaxUploadBytes)
	if err != nil {
		h.fail(c, err)
		return
	}
	req, err := intake.Normalize(body)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx, cancel := h.withTimeout(c)
	defer cancel()

	res, err := h.svc.Provision(ctx, req)
	var nerr *provision.NotificationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, provisionResponse{
			OK:              true,
			CustomerID:      res.CustomerID,
			IdentityID:      res.IdentityID,
			CredentialsSent: true,
		})
	case errors.As(err, &nerr) && res != nil:
		_ = c.Error(err)
		c.JSON(http.StatusOK, provisionResponse{
			OK:         true,
			CustomerID: res.CustomerID,
			IdentityID: res.IdentityID,
			Warning:    err.Error(),
		})
	default:
		h.fail(c, err)
	}
}

func (h *Handler) handleListCustomers(c *gin.Context) {
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	customers, err := h.svc.ListCustomers(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	if customers == nil {
		customers = []store.Customer{}
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (h *Handler) handleGetCustomer(c *gin.Context) {
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	detail, err := h.svc.CustomerDetail(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) handleDeleteCustomer(c *gin.Context) {
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	if err := h.svc.DeleteCustomer(ctx, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleResendCredentials(c *gin.Context) {
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	if err := h.svc.ResendCredentials(ctx, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "credentialsSent": true})
}

func (h *Handler) handleUpdatePhones(c *gin.Context) {
	var req phonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, &intake.ValidationError{Field: intake.FieldNotificationPhones, Reason: "expected {\"notificationPhones\": [...]}"})
		return
	}

	ctx, cancel := h.withTimeout(c)
	defer cancel()

	phones, err := h.svc.UpdateNotificationPhones(ctx, c.Param("id"), req.NotificationPhones)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notificationPhones": phones})
}

func (h *Handler) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
