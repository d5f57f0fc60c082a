package service

import (
	"context"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"
)

type transactionQueryService struct {
	txRepo       ports.TransactionRepository
	walletRepo   ports.WalletRepository
	merchantRepo ports.MerchantRepository
	pager        Paginator
}

// NewTransactionQueryService creates the read side for purchase records.
func NewTransactionQueryService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	merchantRepo ports.MerchantRepository,
	pager Paginator,
) ports.TransactionQueryService {
	return &transactionQueryService{
		txRepo:       txRepo,
		walletRepo:   walletRepo,
		merchantRepo: merchantRepo,
		pager:        pager,
	}
}

// ListTransactions returns one page of a wallet's transactions in ascending id order.
func (s *transactionQueryService) ListTransactions(ctx context.Context, actor *domain.User, walletID int64, req ports.PageRequest) (*ports.PageResult[domain.Transaction], error) {
	page, err := s.pager.Normalize(req)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeWallet(ctx, actor, walletID); err != nil {
		return nil, err
	}

	txns, total, err := s.txRepo.ListByWallet(ctx, walletID, page)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list transactions: %w", err))
	}
	return &ports.PageResult[domain.Transaction]{Items: txns, Total: total, Page: page}, nil
}

// GetTransaction returns a single transaction whose wallet is visible to actor.
func (s *transactionQueryService) GetTransaction(ctx context.Context, actor *domain.User, id int64) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	if err := s.authorizeWallet(ctx, actor, txn.WalletID); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *transactionQueryService) authorizeWallet(ctx context.Context, actor *domain.User, walletID int64) error {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrNotFound("wallet")
	}
	ok, err := canViewWallet(ctx, s.merchantRepo, actor, wallet)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrForbidden()
	}
	return nil
}
