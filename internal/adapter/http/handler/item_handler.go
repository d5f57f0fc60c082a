package handler

import (
	"marketplace-backend/internal/adapter/http/dto"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// ItemHandler handles the item catalogue.
type ItemHandler struct {
	itemSvc ports.ItemService
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(itemSvc ports.ItemService) *ItemHandler {
	return &ItemHandler{itemSvc: itemSvc}
}

// Create handles POST /items.
func (h *ItemHandler) Create(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var req dto.ItemCreateRequest
	if err := dto.DecodeStrict(c.Request.Body, &req); err != nil {
		fail(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	item, err := h.itemSvc.Create(c.Request.Context(), user, req.ToDomain())
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.NewItemResponse(item))
}

// Get handles GET /items/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.itemSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewItemResponse(item))
}

// List handles GET /items with an optional merchant_id filter.
func (h *ItemHandler) List(c *gin.Context) {
	merchantID, ok := optionalQueryID(c, "merchant_id")
	if !ok {
		return
	}
	req, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.itemSvc.List(c.Request.Context(), ports.ItemFilter{MerchantID: merchantID}, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, pageResponse(page, dto.NewItemResponses))
}

// Update handles PUT /items/:id.
func (h *ItemHandler) Update(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ItemUpdateRequest
	if err := dto.DecodeStrict(c.Request.Body, &req); err != nil {
		fail(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	item, err := h.itemSvc.Update(c.Request.Context(), user, id, req.ToDomain())
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewItemResponse(item))
}

// Delete handles DELETE /items/:id.
func (h *ItemHandler) Delete(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.itemSvc.Delete(c.Request.Context(), user, id); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}
