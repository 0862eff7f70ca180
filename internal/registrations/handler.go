// Package registrations serves read-only registration and payment triage endpoints for operators.
package registrations

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/internal/models"
	"github.com/stranger-beers/ingestion/internal/store"
	"github.com/stranger-beers/ingestion/pkg/response"
)

// EventRegistrations is the body of GET /admin/events/:id/registrations.
type EventRegistrations struct {
	EventID       string                 `json:"event_id"`
	Total         int                    `json:"total"`
	Paid          int                    `json:"paid"`
	Registrations []*models.Registration `json:"registrations"`
}

// PaymentsQuery are the query parameters of GET /admin/payments.
type PaymentsQuery struct {
	Recognized *bool `form:"recognized"`
	Limit      int   `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// Handler handles operator read endpoints.
type Handler struct {
	reader store.Reader
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(reader store.Reader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{reader: reader, logger: logger}
}

// RegisterRoutes mounts the handler on an already authenticated group.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/events/:id/registrations", h.ListByEvent)
	r.GET("/registrations/:id", h.Get)
	r.GET("/payments", h.ListPayments)
}

// ListByEvent handles GET /admin/events/:id/registrations.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID := strings.TrimSpace(c.Param("id"))
	if eventID == "" {
		response.BadRequest(c, "event id required")
		return
	}
	list, err := h.reader.ListRegistrationsByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err), zap.String("event_id", eventID))
		response.Internal(c, "failed to list registrations")
		return
	}
	out := EventRegistrations{EventID: eventID, Total: len(list), Registrations: list}
	if out.Registrations == nil {
		out.Registrations = []*models.Registration{}
	}
	for _, reg := range list {
		if reg.Paid {
			out.Paid++
		}
	}
	response.OK(c, out)
}

// Get handles GET /admin/registrations/:id.
func (h *Handler) Get(c *gin.Context) {
	reg, err := h.reader.GetRegistration(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("get registration failed", zap.Error(err), zap.String("registration_id", c.Param("id")))
		response.Internal(c, "failed to get registration")
		return
	}
	if reg == nil {
		response.NotFound(c, "registration not found")
		return
	}
	response.OK(c, reg)
}

// ListPayments handles GET /admin/payments, newest first. recognized=false lists payments
// whose phone never signed up.
func (h *Handler) ListPayments(c *gin.Context) {
	var q PaymentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	list, err := h.reader.ListPaymentAudits(c.Request.Context(), store.PaymentAuditFilter{Recognized: q.Recognized, Limit: q.Limit})
	if err != nil {
		h.logger.Error("list payment audits failed", zap.Error(err))
		response.Internal(c, "failed to list payments")
		return
	}
	if list == nil {
		list = []*models.PaymentAudit{}
	}
	response.OK(c, list)
}
