package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errUnsupported = errors.New("memory store: raw SQL is not supported")

// Transactor implements ports.DBTransactor over a Store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a transactor for store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin blocks until no other transaction is open, then gives the transaction
// its own copy of the tables. Nothing it writes is visible until Commit.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.store.acquire(ctx); err != nil {
		return nil, err
	}
	t.store.mu.RLock()
	work := t.store.tables.clone()
	t.store.mu.RUnlock()
	return &memTx{store: t.store, work: work}, nil
}

// memTx is a pgx.Tx whose only real operations are Commit and Rollback.
type memTx struct {
	store *Store
	work  tables

	mu   sync.Mutex
	done bool
}

func (t *memTx) isDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// finish closes the transaction once, reporting whether this call closed it.
func (t *memTx) finish() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, errUnsupported }

func (t *memTx) Commit(ctx context.Context) error {
	if !t.finish() {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	t.store.tables = t.work
	t.store.mu.Unlock()
	t.store.release()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if !t.finish() {
		return pgx.ErrTxClosed
	}
	t.work = tables{}
	t.store.release()
	return nil
}

func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errUnsupported
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errUnsupported
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), errUnsupported
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errUnsupported
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{}
}
func (t *memTx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(dest ...any) error { return errUnsupported }
