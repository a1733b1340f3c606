package handler

import (
	"time"

	"salvage-auction-engine/internal/adapter/http/dto"
	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// SweepHandler exposes the sweep operations on internal routes. The external
// scheduler calls these on a fixed cadence; every sweep is idempotent, so a
// duplicate trigger is harmless.
type SweepHandler struct {
	closureSvc  ports.ClosureService
	deadlineSvc ports.DeadlineService
	presenceSvc ports.PresenceService
}

// NewSweepHandler creates a new SweepHandler.
func NewSweepHandler(closureSvc ports.ClosureService, deadlineSvc ports.DeadlineService, presenceSvc ports.PresenceService) *SweepHandler {
	return &SweepHandler{
		closureSvc:  closureSvc,
		deadlineSvc: deadlineSvc,
		presenceSvc: presenceSvc,
	}
}

// Closure handles POST /internal/sweeps/closure.
func (h *SweepHandler) Closure(c *gin.Context) {
	results, err := h.closureSvc.SweepExpiredAuctions(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SweepResponse{Closed: len(results)})
}

// CloseReminders handles POST /internal/sweeps/close-reminders.
func (h *SweepHandler) CloseReminders(c *gin.Context) {
	count, err := h.closureSvc.SweepCloseReminders(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SweepResponse{RemindersSent: count})
}

// Deadlines handles POST /internal/sweeps/deadlines.
func (h *SweepHandler) Deadlines(c *gin.Context) {
	results, err := h.deadlineSvc.SweepDeadlines(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SweepResponse{
		RemindersSent:    results.RemindersSent,
		MarkedOverdue:    results.MarkedOverdue,
		Forfeited:        results.Forfeited,
		VendorsSuspended: results.VendorsSuspended,
		HoldsReleased:    results.HoldsReleased,
	})
}

// FraudFlags handles POST /internal/sweeps/fraud-flags.
func (h *SweepHandler) FraudFlags(c *gin.Context) {
	suspended, err := h.deadlineSvc.SweepFraudFlags(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SweepResponse{VendorsSuspended: suspended})
}

// PresenceReap handles POST /internal/sweeps/presence.
func (h *SweepHandler) PresenceReap(c *gin.Context) {
	reaped, err := h.presenceSvc.ReapStale(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SweepResponse{Reaped: reaped})
}
