package domain

import (
	"time"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister       AuditAction = "REGISTER"
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionTokenRefresh   AuditAction = "TOKEN_REFRESH"
	AuditActionChangePassword AuditAction = "CHANGE_PASSWORD"
	AuditActionPurchase       AuditAction = "PURCHASE"
	AuditActionMerchantCreate AuditAction = "MERCHANT_CREATE"
	AuditActionMerchantUpdate AuditAction = "MERCHANT_UPDATE"
	AuditActionMerchantDelete AuditAction = "MERCHANT_DELETE"
	AuditActionItemCreate     AuditAction = "ITEM_CREATE"
	AuditActionItemUpdate     AuditAction = "ITEM_UPDATE"
	AuditActionItemDelete     AuditAction = "ITEM_DELETE"
	AuditActionWalletCreate   AuditAction = "WALLET_CREATE"
	AuditActionWalletUpdate   AuditAction = "WALLET_UPDATE"
	AuditActionWalletTopup    AuditAction = "WALLET_TOPUP"
	AuditActionWalletDelete   AuditAction = "WALLET_DELETE"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           int64       `json:"id"`
	UserID       *int64      `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
