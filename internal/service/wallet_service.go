package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type walletService struct {
	walletRepo   ports.WalletRepository
	merchantRepo ports.MerchantRepository
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewWalletService creates a new wallet management service.
func NewWalletService(
	walletRepo ports.WalletRepository,
	merchantRepo ports.MerchantRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) ports.WalletService {
	return &walletService{
		walletRepo:   walletRepo,
		merchantRepo: merchantRepo,
		transactor:   transactor,
		log:          log,
	}
}

// Create opens a wallet for a merchant. Only balance adjusters may seed a non-zero balance.
func (s *walletService) Create(ctx context.Context, actor *domain.User, in domain.WalletCreate) (*domain.Wallet, error) {
	if _, err := loadOwnedMerchant(ctx, s.merchantRepo, actor, in.MerchantID); err != nil {
		return nil, err
	}
	if !in.Balance.IsZero() && !actor.Can(domain.CapAdjustBalance) {
		return nil, apperror.ErrForbidden()
	}
	wallet, err := domain.NewWallet(in)
	if err != nil {
		return nil, invalidInput(err)
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		if errors.Is(err, ports.ErrForeignKey) {
			return nil, apperror.ErrNotFound("merchant")
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create wallet: %w", err))
	}
	return wallet, nil
}

// Get returns a wallet visible to actor.
func (s *walletService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	ok, err := canViewWallet(ctx, s.merchantRepo, actor, wallet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrForbidden()
	}
	return wallet, nil
}

// SetBalance overwrites a wallet balance. Reserved for balance adjusters.
func (s *walletService) SetBalance(ctx context.Context, actor *domain.User, id int64, balance decimal.Decimal) (*domain.Wallet, error) {
	if !actor.Can(domain.CapAdjustBalance) {
		return nil, apperror.ErrForbidden()
	}
	if err := domain.ValidateMoney("balance", balance); err != nil {
		return nil, invalidInput(err)
	}

	wallet, err := s.mutateLocked(ctx, id, func(dbTx pgx.Tx, w *domain.Wallet) error {
		return s.walletRepo.SetBalance(ctx, dbTx, w.ID, balance)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("wallet_id", id).
		Int64("actor_id", actor.ID).
		Str("balance", balance.StringFixed(domain.MoneyScale)).
		Msg("wallet balance set")
	return wallet, nil
}

// Topup credits a positive amount to a wallet the actor may manage.
func (s *walletService) Topup(ctx context.Context, actor *domain.User, id int64, amount decimal.Decimal) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.Validation("amount must be positive")
	}
	if err := domain.ValidateMoney("amount", amount); err != nil {
		return nil, invalidInput(err)
	}

	return s.mutateLocked(ctx, id, func(dbTx pgx.Tx, w *domain.Wallet) error {
		if _, err := loadOwnedMerchant(ctx, s.merchantRepo, actor, w.MerchantID); err != nil {
			return err
		}
		return s.walletRepo.Credit(ctx, dbTx, w.ID, amount)
	})
}

// Delete removes a wallet. It fails with RES_002 once the wallet has transactions.
func (s *walletService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return apperror.ErrNotFound("wallet")
	}
	if _, err := loadOwnedMerchant(ctx, s.merchantRepo, actor, wallet.MerchantID); err != nil {
		return err
	}
	if err := s.walletRepo.Delete(ctx, id); err != nil {
		return storageError("wallet", err)
	}
	return nil
}

// mutateLocked locks the wallet row, runs fn and returns the wallet as committed.
func (s *walletService) mutateLocked(ctx context.Context, id int64, fn func(dbTx pgx.Tx, w *domain.Wallet) error) (*domain.Wallet, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageError("wallet", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, storageError("wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	if err := fn(dbTx, wallet); err != nil {
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, storageError("wallet", err)
	}

	updated, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, storageError("wallet", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError("wallet", err)
	}
	return updated, nil
}
