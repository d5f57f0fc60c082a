// Package memory is a process-local storage backend implementing the repository ports.
// It backs database.driver=memory and the service-level tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace-backend/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// Store holds every table in maps. A single write slot stands in for row locks:
// a transaction holds it from Begin until Commit or Rollback and writes to its
// own copy of the tables meanwhile.
type Store struct {
	writer chan struct{}
	mu     sync.RWMutex
	now    func() time.Time

	tables
}

type tables struct {
	users        map[int64]*domain.User
	merchants    map[int64]*domain.Merchant
	wallets      map[int64]*domain.Wallet
	items        map[int64]*domain.Item
	transactions map[int64]*domain.Transaction
	audit        []domain.AuditLog

	nextUser, nextMerchant, nextWallet, nextItem, nextTransaction, nextAudit int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		writer: make(chan struct{}, 1),
		now:    func() time.Time { return time.Now().UTC() },
		tables: tables{
			users:        make(map[int64]*domain.User),
			merchants:    make(map[int64]*domain.Merchant),
			wallets:      make(map[int64]*domain.Wallet),
			items:        make(map[int64]*domain.Item),
			transactions: make(map[int64]*domain.Transaction),
		},
	}
}

func (t *tables) clone() tables {
	c := *t
	c.users = make(map[int64]*domain.User, len(t.users))
	for id, u := range t.users {
		c.users[id] = copyUser(u)
	}
	c.merchants = make(map[int64]*domain.Merchant, len(t.merchants))
	for id, m := range t.merchants {
		cp := *m
		c.merchants[id] = &cp
	}
	c.wallets = make(map[int64]*domain.Wallet, len(t.wallets))
	for id, w := range t.wallets {
		cp := *w
		c.wallets[id] = &cp
	}
	c.items = make(map[int64]*domain.Item, len(t.items))
	for id, i := range t.items {
		cp := *i
		c.items[id] = &cp
	}
	c.transactions = make(map[int64]*domain.Transaction, len(t.transactions))
	for id, tr := range t.transactions {
		cp := *tr
		c.transactions[id] = &cp
	}
	c.audit = append([]domain.AuditLog(nil), t.audit...)
	return c
}

func copyUser(u *domain.User) *domain.User {
	cp := *u
	cp.Roles = append([]domain.Role(nil), u.Roles...)
	return &cp
}

// write runs fn as a single-statement write outside any transaction.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.writer
}

// read runs fn under the shared lock.
func (s *Store) read(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

// inTx runs fn against the private tables of tx, which must be an open
// transaction of this store. The live tables are swapped back before the
// lock is released, so readers never observe uncommitted rows.
func (s *Store) inTx(ctx context.Context, tx pgx.Tx, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s {
		return fmt.Errorf("memory store: foreign transaction %T", tx)
	}
	if mt.isDone() {
		return pgx.ErrTxClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.tables
	s.tables = mt.work
	defer func() {
		mt.work = s.tables
		s.tables = live
	}()
	return fn()
}
