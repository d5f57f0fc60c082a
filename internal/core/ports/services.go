package ports

//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"marketplace-backend/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ErrPasswordTooLong is returned by HashService.Hash for passwords over
// MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// HashService handles password hashing.
type HashService interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches hash. A malformed hash yields false.
	Verify(password string, hash string) bool
}

// TokenKind distinguishes access from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Token validation failures.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
)

// IssuedToken is a freshly signed token and its registered claims.
type IssuedToken struct {
	Token     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenClaims holds the verified claims of a token.
type TokenClaims struct {
	UserID    int64
	Kind      TokenKind
	ID        string
	ExpiresAt time.Time
}

// TokenService handles JWT token operations.
type TokenService interface {
	Issue(userID int64, kind TokenKind) (*IssuedToken, error)
	Validate(tokenString string, kind TokenKind) (*TokenClaims, error)
}

// ErrReplayPending is returned by IdempotencyCache.Get while the request
// holding the key has not finished.
var ErrReplayPending = errors.New("idempotent request still in flight")

// IdempotencyCache stores replayable responses keyed by client-supplied keys.
type IdempotencyCache interface {
	// Reserve claims key for one in-flight request. It returns false when the
	// key is already claimed or already holds a response.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Get returns the stored response, nil for an unknown key, or ErrReplayPending.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores the response over the claim.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Release drops a claim that never produced a response.
	Release(ctx context.Context, key string) error
}

// RefreshTokenStore enforces single use of refresh tokens.
type RefreshTokenStore interface {
	// Consume marks tokenID as used. Returns false if it was already used.
	Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
}

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	PublishPurchase(ctx context.Context, transaction *domain.Transaction) error
}

// --- Service Ports (Business Logic) ---

// PageRequest is a raw page request. A zero PageSize selects the default
// unless PageSizeSet says the caller supplied it.
type PageRequest struct {
	Page        int
	PageSize    int
	PageSizeSet bool
}

// PageResult is one page of a listing.
type PageResult[T any] struct {
	Items []T
	Total int64
	Page  Page
}

// AuthorizationGate resolves bearer tokens to users and checks their standing.
type AuthorizationGate interface {
	ResolveCurrentUser(ctx context.Context, token string) (*domain.User, error)
	RequireActive(user *domain.User) (*domain.User, error)
	RequireRole(user *domain.User, role domain.Role) (*domain.User, error)
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string
	IssuedAt         time.Time
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	UserID           int64
}

// AuthService defines account and session business logic.
type AuthService interface {
	// Register creates an account. actor is nil for self-registration.
	Register(ctx context.Context, actor *domain.User, in domain.UserCreate) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	ChangePassword(ctx context.Context, actor *domain.User, userID int64, currentPassword, newPassword string) error
}

// MerchantService defines merchant management.
type MerchantService interface {
	Create(ctx context.Context, actor *domain.User, in domain.MerchantCreate) (*domain.Merchant, error)
	Get(ctx context.Context, id int64) (*domain.Merchant, error)
	List(ctx context.Context, req PageRequest) (*PageResult[domain.Merchant], error)
	Update(ctx context.Context, actor *domain.User, id int64, in domain.MerchantUpdate) (*domain.Merchant, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

// ItemService defines item catalogue management.
type ItemService interface {
	Create(ctx context.Context, actor *domain.User, in domain.ItemCreate) (*domain.Item, error)
	Get(ctx context.Context, id int64) (*domain.Item, error)
	List(ctx context.Context, filter ItemFilter, req PageRequest) (*PageResult[domain.Item], error)
	Update(ctx context.Context, actor *domain.User, id int64, in domain.ItemUpdate) (*domain.Item, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

// WalletService defines wallet management outside of purchases.
type WalletService interface {
	Create(ctx context.Context, actor *domain.User, in domain.WalletCreate) (*domain.Wallet, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*domain.Wallet, error)
	SetBalance(ctx context.Context, actor *domain.User, id int64, balance decimal.Decimal) (*domain.Wallet, error)
	Topup(ctx context.Context, actor *domain.User, id int64, amount decimal.Decimal) (*domain.Wallet, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

// PurchaseRequest holds validated input for a purchase.
type PurchaseRequest struct {
	WalletID int64
	ItemID   int64
	Quantity int64
	Actor    *domain.User
}

// PurchaseService is the transaction engine.
type PurchaseService interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*domain.Transaction, error)
}

// TransactionQueryService is the read side for purchase records.
type TransactionQueryService interface {
	ListTransactions(ctx context.Context, actor *domain.User, walletID int64, req PageRequest) (*PageResult[domain.Transaction], error)
	GetTransaction(ctx context.Context, actor *domain.User, id int64) (*domain.Transaction, error)
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
