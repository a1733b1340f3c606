package handler

import (
	"context"
	"net/http"

	"salvage-auction-engine/internal/adapter/broadcast"
	"salvage-auction-engine/internal/adapter/http/middleware"
	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/pkg/apperror"
	"salvage-auction-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSHandler attaches vendors to live event streams. Holding an auction
// stream open is what makes a vendor count as a viewer; the dwell promotion
// to watcher happens in the presence service.
type WSHandler struct {
	hub         *broadcast.Hub
	presenceSvc ports.PresenceService
	log         zerolog.Logger

	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *broadcast.Hub, presenceSvc ports.PresenceService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:         hub,
		presenceSvc: presenceSvc,
		log:         log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// SubscribeAuction handles GET /api/v1/auctions/:id/stream. Every inbound
// frame counts as a view heartbeat; disconnecting removes the vendor from
// the watching set immediately.
func (h *WSHandler) SubscribeAuction(c *gin.Context) {
	vendorID, ok := c.Get(middleware.CtxVendorID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	vid := vendorID.(uuid.UUID)

	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auction id"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	if _, err := h.presenceSvc.Track(c.Request.Context(), auctionID, vid); err != nil {
		h.log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("presence track failed on connect")
	}

	h.hub.SubscribeWithHooks(ports.AuctionTopic(auctionID), conn,
		func([]byte) {
			// Heartbeat: refresh the dwell entry.
			if _, err := h.presenceSvc.Track(context.Background(), auctionID, vid); err != nil {
				h.log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("presence heartbeat failed")
			}
		},
		func() {
			// The request context is gone by the time the peer disconnects.
			if _, err := h.presenceSvc.Untrack(context.Background(), auctionID, vid); err != nil {
				h.log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("presence untrack failed on disconnect")
			}
		})
}

// SubscribeVendor handles GET /api/v1/vendors/me/stream. Carries outbid and
// closure notices for the authenticated vendor.
func (h *WSHandler) SubscribeVendor(c *gin.Context) {
	vendorID, ok := c.Get(middleware.CtxVendorID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.hub.Subscribe(ports.VendorTopic(vendorID.(uuid.UUID)), conn)
}
