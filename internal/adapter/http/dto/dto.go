package dto

import (
	"time"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/shopspring/decimal"
)

// --- Auth DTOs ---

// TokenRequest is the login body. It binds from JSON or an OAuth2 password form.
type TokenRequest struct {
	Username string `json:"username" form:"username" binding:"required,max=50"`
	Password string `json:"password" form:"password" binding:"required,password_bytes"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	ExpiresAt        string `json:"expires_at"`
	IssuedAt         string `json:"issued_at"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
	UserID           int64  `json:"user_id"`
}

// NewTokenResponse renders a token pair. expires_in counts seconds of access token life.
func NewTokenResponse(p *ports.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        p.TokenType,
		ExpiresIn:        int64(p.ExpiresAt.Sub(p.IssuedAt).Seconds()),
		ExpiresAt:        formatTime(p.ExpiresAt),
		IssuedAt:         formatTime(p.IssuedAt),
		RefreshExpiresAt: formatTime(p.RefreshExpiresAt),
		UserID:           p.UserID,
	}
}

// --- User DTOs ---

type RegisterRequest struct {
	Username  string   `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password  string   `json:"password" binding:"required,min=8,password_bytes"`
	Email     *string  `json:"email" binding:"omitempty,email,max=255"`
	FirstName *string  `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string  `json:"last_name" binding:"omitempty,max=100"`
	Roles     []string `json:"roles" binding:"omitempty,dive,oneof=user admin"`
}

// ToDomain converts the request into the registration view.
func (r RegisterRequest) ToDomain() (domain.UserCreate, error) {
	roles := make([]domain.Role, 0, len(r.Roles))
	for _, name := range r.Roles {
		role, err := domain.ParseRole(name)
		if err != nil {
			return domain.UserCreate{}, err
		}
		roles = append(roles, role)
	}
	return domain.UserCreate{
		Username:  r.Username,
		Password:  r.Password,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Roles:     roles,
	}, nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,password_bytes"`
	NewPassword     string `json:"new_password" binding:"required,min=8,password_bytes"`
}

type UserResponse struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Email       *string  `json:"email,omitempty"`
	FirstName   *string  `json:"first_name,omitempty"`
	LastName    *string  `json:"last_name,omitempty"`
	Disabled    bool     `json:"disabled"`
	Roles       []string `json:"roles"`
	LastLoginAt *string  `json:"last_login_at,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func NewUserResponse(u *domain.User) UserResponse {
	roles := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = string(r)
	}
	var lastLogin *string
	if u.LastLoginAt != nil {
		s := formatTime(*u.LastLoginAt)
		lastLogin = &s
	}
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Disabled:    u.Disabled,
		Roles:       roles,
		LastLoginAt: lastLogin,
		CreatedAt:   formatTime(u.CreatedAt),
	}
}

// --- Merchant DTOs ---

type MerchantCreateRequest struct {
	Name        string  `json:"name" binding:"required,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Telephone   *string `json:"telephone" binding:"omitempty,telephone"`
	Email       *string `json:"email" binding:"omitempty,email,max=255"`
	TaxID       *string `json:"tax_id" binding:"omitempty,max=50,safe_id"`
}

func (r MerchantCreateRequest) ToDomain() domain.MerchantCreate {
	return domain.MerchantCreate{
		Name:        r.Name,
		Description: r.Description,
		Telephone:   r.Telephone,
		Email:       r.Email,
		TaxID:       r.TaxID,
	}
}

// MerchantUpdateRequest carries only the fields to change.
type MerchantUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Telephone   *string `json:"telephone" binding:"omitempty,telephone"`
	Email       *string `json:"email" binding:"omitempty,email,max=255"`
	TaxID       *string `json:"tax_id" binding:"omitempty,max=50,safe_id"`
}

func (r MerchantUpdateRequest) ToDomain() domain.MerchantUpdate {
	return domain.MerchantUpdate{
		Name:        r.Name,
		Description: r.Description,
		Telephone:   r.Telephone,
		Email:       r.Email,
		TaxID:       r.TaxID,
	}
}

type MerchantResponse struct {
	ID          int64   `json:"id"`
	OwnerID     int64   `json:"owner_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Telephone   *string `json:"telephone,omitempty"`
	Email       *string `json:"email,omitempty"`
	TaxID       *string `json:"tax_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func NewMerchantResponse(m *domain.Merchant) MerchantResponse {
	return MerchantResponse{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Name:        m.Name,
		Description: m.Description,
		Telephone:   m.Telephone,
		Email:       m.Email,
		TaxID:       m.TaxID,
		CreatedAt:   formatTime(m.CreatedAt),
		UpdatedAt:   formatTime(m.UpdatedAt),
	}
}

func NewMerchantResponses(ms []domain.Merchant) []MerchantResponse {
	out := make([]MerchantResponse, len(ms))
	for i := range ms {
		out[i] = NewMerchantResponse(&ms[i])
	}
	return out
}

// --- Item DTOs ---

type ItemCreateRequest struct {
	MerchantID    int64            `json:"merchant_id" binding:"required,gt=0"`
	Name          string           `json:"name" binding:"required,max=200"`
	Description   *string          `json:"description" binding:"omitempty,max=2000"`
	Price         decimal.Decimal  `json:"price" binding:"money"`
	Tax           *decimal.Decimal `json:"tax" binding:"omitempty,money"`
	StockQuantity int64            `json:"stock_quantity" binding:"gte=0"`
}

func (r ItemCreateRequest) ToDomain() domain.ItemCreate {
	return domain.ItemCreate{
		MerchantID:    r.MerchantID,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		Tax:           r.Tax,
		StockQuantity: r.StockQuantity,
	}
}

type ItemUpdateRequest struct {
	Name          *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description   *string          `json:"description" binding:"omitempty,max=2000"`
	Price         *decimal.Decimal `json:"price" binding:"omitempty,money"`
	Tax           *decimal.Decimal `json:"tax" binding:"omitempty,money"`
	StockQuantity *int64           `json:"stock_quantity" binding:"omitempty,gte=0"`
}

func (r ItemUpdateRequest) ToDomain() domain.ItemUpdate {
	return domain.ItemUpdate{
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		Tax:           r.Tax,
		StockQuantity: r.StockQuantity,
	}
}

type ItemResponse struct {
	ID            int64   `json:"id"`
	MerchantID    int64   `json:"merchant_id"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	Price         string  `json:"price"`
	Tax           *string `json:"tax,omitempty"`
	StockQuantity int64   `json:"stock_quantity"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func NewItemResponse(it *domain.Item) ItemResponse {
	return ItemResponse{
		ID:            it.ID,
		MerchantID:    it.MerchantID,
		Name:          it.Name,
		Description:   it.Description,
		Price:         it.Price.StringFixed(2),
		Tax:           fixedOrNil(it.Tax),
		StockQuantity: it.StockQuantity,
		CreatedAt:     formatTime(it.CreatedAt),
		UpdatedAt:     formatTime(it.UpdatedAt),
	}
}

func fixedOrNil(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

func NewItemResponses(items []domain.Item) []ItemResponse {
	out := make([]ItemResponse, len(items))
	for i := range items {
		out[i] = NewItemResponse(&items[i])
	}
	return out
}

// --- Wallet DTOs ---

// WalletCreateRequest is optional on create; a missing balance means zero.
type WalletCreateRequest struct {
	Balance *decimal.Decimal `json:"balance" binding:"omitempty,money"`
}

type WalletBalanceRequest struct {
	Balance *decimal.Decimal `json:"balance" binding:"required,money"`
}

type TopupRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required,money"`
}

type WalletResponse struct {
	ID         int64  `json:"id"`
	MerchantID int64  `json:"merchant_id"`
	Balance    string `json:"balance"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func NewWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:         w.ID,
		MerchantID: w.MerchantID,
		Balance:    w.Balance.StringFixed(2),
		CreatedAt:  formatTime(w.CreatedAt),
		UpdatedAt:  formatTime(w.UpdatedAt),
	}
}

// --- Transaction DTOs ---

// PurchaseRequest is the optional purchase body. The quantity query parameter wins over it.
type PurchaseRequest struct {
	Quantity *int64 `json:"quantity"`
}

type TransactionResponse struct {
	ID         int64  `json:"id"`
	WalletID   int64  `json:"wallet_id"`
	ItemID     int64  `json:"item_id"`
	UserID     int64  `json:"user_id"`
	Quantity   int64  `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
	CreatedAt  string `json:"created_at"`
}

func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:         t.ID,
		WalletID:   t.WalletID,
		ItemID:     t.ItemID,
		UserID:     t.UserID,
		Quantity:   t.Quantity,
		UnitPrice:  t.UnitPrice.StringFixed(2),
		TotalPrice: t.TotalPrice.StringFixed(2),
		CreatedAt:  formatTime(t.CreatedAt),
	}
}

func NewTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, len(txns))
	for i := range txns {
		out[i] = NewTransactionResponse(&txns[i])
	}
	return out
}

// --- Health DTOs ---

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
