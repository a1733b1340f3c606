package handler

import (
	"time"

	"salvage-auction-engine/internal/adapter/http/dto"
	"salvage-auction-engine/internal/adapter/http/middleware"
	"salvage-auction-engine/internal/core/domain"
	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/pkg/apperror"
	"salvage-auction-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuctionHandler handles the auction browse and bid endpoints.
type AuctionHandler struct {
	auctionRepo ports.AuctionRepository
	bidRepo     ports.BidRepository
	biddingSvc  ports.BiddingService
	presenceSvc ports.PresenceService
}

// NewAuctionHandler creates a new AuctionHandler.
func NewAuctionHandler(
	auctionRepo ports.AuctionRepository,
	bidRepo ports.BidRepository,
	biddingSvc ports.BiddingService,
	presenceSvc ports.PresenceService,
) *AuctionHandler {
	return &AuctionHandler{
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		biddingSvc:  biddingSvc,
		presenceSvc: presenceSvc,
	}
}

// List handles GET /api/v1/auctions.
func (h *AuctionHandler) List(c *gin.Context) {
	auctions, err := h.auctionRepo.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	now := time.Now().UTC()
	items := make([]dto.AuctionResponse, 0, len(auctions))
	for i := range auctions {
		count, err := h.presenceSvc.CurrentCount(c.Request.Context(), auctions[i].ID)
		if err != nil {
			count = 0
		}
		items = append(items, dto.NewAuctionResponse(&auctions[i], count, now))
	}

	response.OK(c, items)
}

// Get handles GET /api/v1/auctions/:id.
func (h *AuctionHandler) Get(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auction id"))
		return
	}

	auction, err := h.auctionRepo.GetByID(c.Request.Context(), auctionID)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if auction == nil {
		response.Error(c, apperror.ErrAuctionNotFound())
		return
	}

	count, err := h.presenceSvc.CurrentCount(c.Request.Context(), auctionID)
	if err != nil {
		count = 0
	}

	response.OK(c, dto.NewAuctionResponse(auction, count, time.Now().UTC()))
}

// ListBids handles GET /api/v1/auctions/:id/bids. Bidder identities are
// masked to ordinal labels in order of first appearance.
func (h *AuctionHandler) ListBids(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auction id"))
		return
	}

	bids, err := h.bidRepo.ListByAuction(c.Request.Context(), auctionID)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	labels := make(map[uuid.UUID]string)
	history := make([]dto.BidHistoryEntry, 0, len(bids))
	for _, bid := range bids {
		label, ok := labels[bid.VendorID]
		if !ok {
			label = domain.AnonymousVendorLabel(len(labels))
			labels[bid.VendorID] = label
		}
		history = append(history, dto.BidHistoryEntry{
			Amount:     bid.Amount,
			Bidder:     label,
			AcceptedAt: bid.AcceptedAt,
		})
	}

	response.OK(c, history)
}

// Watchers handles GET /api/v1/auctions/:id/watchers.
func (h *AuctionHandler) Watchers(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auction id"))
		return
	}

	labels, err := h.presenceSvc.WatcherLabels(c.Request.Context(), auctionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WatchersResponse{
		Count:    len(labels),
		Watchers: labels,
	})
}

// PlaceBid handles POST /api/v1/auctions/:id/bids.
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	vendorID, ok := c.Get(middleware.CtxVendorID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid auction id"))
		return
	}

	var req dto.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.biddingSvc.PlaceBid(c.Request.Context(), ports.PlaceBidRequest{
		AuctionID: auctionID,
		VendorID:  vendorID.(uuid.UUID),
		Amount:    req.Amount,
		OTPCode:   req.OTPCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.BidResponse{
		BidID:      result.Bid.ID.String(),
		AuctionID:  result.Bid.AuctionID.String(),
		Amount:     result.Bid.Amount,
		MinNextBid: result.Auction.MinAcceptableBid(),
		EndTime:    result.Auction.EndTime,
		Extended:   result.Extended,
		AcceptedAt: result.Bid.AcceptedAt,
	})
}
