package handler

import (
	"math"
	"strconv"

	"salvage-auction-engine/internal/adapter/http/dto"
	"salvage-auction-engine/internal/adapter/http/middleware"
	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/pkg/apperror"
	"salvage-auction-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles escrow wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetBalance handles GET /api/v1/wallet.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	vendorID, ok := c.Get(middleware.CtxVendorID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.walletSvc.GetBalance(c.Request.Context(), vendorID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletResponse{
		Balance:   wallet.Balance,
		Available: wallet.Available,
		Frozen:    wallet.Frozen,
	})
}

// Deposit handles POST /api/v1/wallet/deposits. The caller is the payment
// callback, which retries; the reference ID carries idempotency.
func (h *WalletHandler) Deposit(c *gin.Context) {
	vendorID, ok := c.Get(middleware.CtxVendorID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	txn, err := h.walletSvc.Credit(c.Request.Context(), vendorID.(uuid.UUID), req.Amount, req.ReferenceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransactionResponse(txn))
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	vendorID, ok := c.Get(middleware.CtxVendorID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	txns, total, err := h.walletSvc.ListTransactions(c.Request.Context(), vendorID.(uuid.UUID), pageSize, (page-1)*pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, dto.NewTransactionResponse(&txns[i]))
	}

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	})
}
