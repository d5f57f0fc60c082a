package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"marketplace-backend/internal/adapter/http/dto"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"
	"marketplace-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	idempotencyTTL       = 24 * time.Hour
	replayClaimTTL       = time.Minute
	maxIdempotencyKeyLen = 128
)

// TransactionHandler handles purchases and the purchase history.
type TransactionHandler struct {
	purchaseSvc ports.PurchaseService
	querySvc    ports.TransactionQueryService
	idempotency ports.IdempotencyCache // nil = replay disabled
	log         zerolog.Logger
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(
	purchaseSvc ports.PurchaseService,
	querySvc ports.TransactionQueryService,
	idempotency ports.IdempotencyCache,
	log zerolog.Logger,
) *TransactionHandler {
	return &TransactionHandler{
		purchaseSvc: purchaseSvc,
		querySvc:    querySvc,
		idempotency: idempotency,
		log:         log,
	}
}

// Purchase handles POST /transactions/:wallet_id/:item_id.
// The quantity query parameter takes precedence over a JSON body quantity.
// A repeated Idempotency-Key replays the first committed response, and is
// rejected with TXN_005 while the first request is still running.
func (h *TransactionHandler) Purchase(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	walletID, ok := pathID(c, "wallet_id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	quantity, err := purchaseQuantity(c)
	if err != nil {
		fail(c, err)
		return
	}

	cacheKey := ""
	if key := c.GetHeader(HeaderIdempotencyKey); key != "" {
		if len(key) > maxIdempotencyKeyLen {
			fail(c, apperror.Validation("Idempotency-Key too long"))
			return
		}
		cacheKey = fmt.Sprintf("purchase:%d:%d:%d:%s", user.ID, walletID, itemID, key)
		claimed, done := h.claim(c, cacheKey)
		if done {
			return
		}
		if !claimed {
			cacheKey = ""
		}
	}

	txn, err := h.purchaseSvc.Purchase(c.Request.Context(), ports.PurchaseRequest{
		WalletID: walletID,
		ItemID:   itemID,
		Quantity: quantity,
		Actor:    user,
	})
	if err != nil {
		if cacheKey != "" {
			h.release(c, cacheKey, err)
		}
		fail(c, err)
		return
	}

	resp := dto.NewTransactionResponse(txn)
	if cacheKey != "" {
		h.remember(c, cacheKey, resp)
	}
	response.Created(c, resp)
}

// claim reserves key for this request. done reports that a replayed response
// or a TXN_005 rejection has been written. claimed is false when the cache is
// unavailable and the purchase runs without replay protection.
func (h *TransactionHandler) claim(c *gin.Context, key string) (claimed, done bool) {
	if h.idempotency == nil {
		return false, false
	}
	ctx := c.Request.Context()
	ok, err := h.idempotency.Reserve(ctx, key, replayClaimTTL)
	if err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("idempotency reserve failed")
		return false, false
	}
	if ok {
		return true, false
	}

	cached, err := h.idempotency.Get(ctx, key)
	if err == nil && cached != nil {
		c.Header(HeaderReplayed, "true")
		response.Created(c, json.RawMessage(cached))
		return false, true
	}
	if err != nil && !errors.Is(err, ports.ErrReplayPending) {
		h.log.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
	}
	fail(c, apperror.ErrRequestInFlight())
	return false, true
}

// release frees the claim after a rejected purchase so the client may retry
// with the same key. An internal failure may have committed, so its claim is
// left to expire.
func (h *TransactionHandler) release(c *gin.Context, key string, cause error) {
	if apperror.IsInternal(cause) {
		return
	}
	if err := h.idempotency.Release(context.WithoutCancel(c.Request.Context()), key); err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("failed to release idempotency key")
	}
}

func (h *TransactionHandler) remember(c *gin.Context, key string, resp dto.TransactionResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to encode purchase for replay")
		return
	}
	if err := h.idempotency.Set(context.WithoutCancel(c.Request.Context()), key, body, idempotencyTTL); err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("failed to store purchase for replay")
	}
}

// purchaseQuantity resolves the requested quantity. Range checks belong to the engine.
func purchaseQuantity(c *gin.Context) (int64, error) {
	if raw, present := c.GetQuery("quantity"); present {
		q, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, apperror.ErrInvalidQuantity()
		}
		return q, nil
	}

	var req dto.PurchaseRequest
	if err := dto.DecodeStrict(c.Request.Body, &req); err != nil {
		if errors.Is(err, dto.ErrEmptyBody) {
			return 0, apperror.ErrInvalidQuantity()
		}
		return 0, err
	}
	if req.Quantity == nil {
		return 0, apperror.ErrInvalidQuantity()
	}
	return *req.Quantity, nil
}

// List handles GET /transactions/:wallet_id.
func (h *TransactionHandler) List(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	walletID, ok := pathID(c, "wallet_id")
	if !ok {
		return
	}
	req, ok := pageRequest(c)
	if !ok {
		return
	}

	page, err := h.querySvc.ListTransactions(c.Request.Context(), user, walletID, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, pageResponse(page, dto.NewTransactionResponses))
}

// Get handles GET /transactions/:wallet_id/:transaction_id.
// A transaction that belongs to a different wallet is reported as not found.
func (h *TransactionHandler) Get(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	walletID, ok := pathID(c, "wallet_id")
	if !ok {
		return
	}
	txnID, ok := pathID(c, "transaction_id")
	if !ok {
		return
	}

	txn, err := h.querySvc.GetTransaction(c.Request.Context(), user, txnID)
	if err != nil {
		fail(c, err)
		return
	}
	if txn.WalletID != walletID {
		fail(c, apperror.ErrNotFound("transaction"))
		return
	}
	response.OK(c, dto.NewTransactionResponse(txn))
}
