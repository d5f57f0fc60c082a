package handler

import (
	"marketplace-backend/internal/adapter/http/dto"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// MerchantHandler handles merchant CRUD endpoints.
type MerchantHandler struct {
	merchantSvc ports.MerchantService
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(merchantSvc ports.MerchantService) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc}
}

// Create handles POST /merchants. The caller becomes the owner.
func (h *MerchantHandler) Create(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var req dto.MerchantCreateRequest
	if err := dto.DecodeStrict(c.Request.Body, &req); err != nil {
		fail(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	merchant, err := h.merchantSvc.Create(c.Request.Context(), user, req.ToDomain())
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.NewMerchantResponse(merchant))
}

// Get handles GET /merchants/:id.
func (h *MerchantHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	merchant, err := h.merchantSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewMerchantResponse(merchant))
}

// List handles GET /merchants.
func (h *MerchantHandler) List(c *gin.Context) {
	req, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.merchantSvc.List(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, pageResponse(page, dto.NewMerchantResponses))
}

// Update handles PUT /merchants/:id. Only fields present in the body change.
func (h *MerchantHandler) Update(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.MerchantUpdateRequest
	if err := dto.DecodeStrict(c.Request.Body, &req); err != nil {
		fail(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	merchant, err := h.merchantSvc.Update(c.Request.Context(), user, id, req.ToDomain())
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewMerchantResponse(merchant))
}

// Delete handles DELETE /merchants/:id.
func (h *MerchantHandler) Delete(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.merchantSvc.Delete(c.Request.Context(), user, id); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}
