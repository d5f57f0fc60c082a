package handler

import (
	"errors"

	"marketplace-backend/internal/adapter/http/dto"
	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet endpoints outside of purchases.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Create handles POST /wallets/:id, where :id names the owning merchant.
// The body is optional; only admins may open a wallet with a non-zero balance.
func (h *WalletHandler) Create(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	merchantID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.WalletCreateRequest
	if err := dto.DecodeStrict(c.Request.Body, &req); err != nil && !errors.Is(err, dto.ErrEmptyBody) {
		fail(c, err)
		return
	}

	in := domain.WalletCreate{MerchantID: merchantID}
	if req.Balance != nil {
		in.Balance = *req.Balance
	}
	wallet, err := h.walletSvc.Create(c.Request.Context(), user, in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.NewWalletResponse(wallet))
}

// Get handles GET /wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	wallet, err := h.walletSvc.Get(c.Request.Context(), user, id)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewWalletResponse(wallet))
}

// SetBalance handles PUT /wallets/:id.
func (h *WalletHandler) SetBalance(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.WalletBalanceRequest
	if err := dto.DecodeStrict(c.Request.Body, &req); err != nil {
		fail(c, err)
		return
	}

	wallet, err := h.walletSvc.SetBalance(c.Request.Context(), user, id, *req.Balance)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewWalletResponse(wallet))
}

// Topup handles POST /wallets/:id/topup.
func (h *WalletHandler) Topup(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.TopupRequest
	if err := dto.DecodeStrict(c.Request.Body, &req); err != nil {
		fail(c, err)
		return
	}

	wallet, err := h.walletSvc.Topup(c.Request.Context(), user, id, *req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewWalletResponse(wallet))
}

// Delete handles DELETE /wallets/:id.
func (h *WalletHandler) Delete(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.walletSvc.Delete(c.Request.Context(), user, id); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}
