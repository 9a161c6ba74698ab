// Package store provides the durable record store for orders and signals:
// keyed order records, the four status queues mirroring order status, a
// per-user order index and a bounded recent-signal list. Two backends are
// provided, a gorm/sqlite store and a Redis store; both guarantee that a
// status transition moves an order between queues atomically and that the
// claim operation succeeds for exactly one caller.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotClaimable = errors.New("order is not claimable")
	ErrNotCancellable    = errors.New("order cannot be cancelled")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Update carries the execution fields merged into an order record alongside a
// status transition.
type Update struct {
	ExecutedPrice    *float64
	ExecutedQuantity *float64
	TradeID          string
	ErrorMessage     string
	ExecutedAt       *time.Time
}

// MatchCriteria is the coarse pre-filter used by the reactive matching path.
// Strategy and Source narrow candidates to orders that either do not care
// about that dimension or require the given value; the fine-grained decision
// belongs to the matching predicate.
type MatchCriteria struct {
	Symbol   string
	Side     types.Side
	Strategy string
	Source   string
	MinPrice *float64
	MaxPrice *float64
	Limit    int
}

// QueueStats holds the number of orders currently in each status queue.
type QueueStats struct {
	Pending  int64
	Matched  int64
	Executed int64
	Failed   int64
}

// Store is the persistence interface consumed by the ingress handlers and the
// matching engine. Lookups on missing keys return (nil, nil) or an empty
// slice rather than an error; only connectivity failures surface as errors.
type Store interface {
	// AddOrder assigns an id, stamps the order pending and persists it,
	// appending it to the pending queue and the user's order index.
	AddOrder(ctx context.Context, order *types.Order) (string, error)
	GetOrder(ctx context.Context, orderID string) (*types.Order, error)

	// UpdateOrderStatus applies a status transition per the fixed transition
	// table, merging upd into the record and moving the order between queues.
	// Re-applying an already-applied transition is a no-op, not an error.
	UpdateOrderStatus(ctx context.Context, orderID string, status types.OrderStatus, upd *Update) error

	// ClaimOrder atomically transitions pending -> matched. Exactly one of
	// any number of concurrent callers observes claimed == true.
	ClaimOrder(ctx context.Context, orderID string) (claimed bool, err error)

	// CancelOrder transitions pending|matched -> cancelled and returns the
	// updated record. Terminal orders yield ErrNotCancellable.
	CancelOrder(ctx context.Context, orderID string) (*types.Order, error)

	GetPendingOrders(ctx context.Context, limit int) ([]*types.Order, error)
	GetUserOrders(ctx context.Context, userID string, limit int, status types.OrderStatus) ([]*types.Order, error)
	FindMatchingOrders(ctx context.Context, criteria MatchCriteria) ([]*types.Order, error)

	// StoreSignal assigns an id and retention window and persists the signal.
	StoreSignal(ctx context.Context, signal *types.Signal) (string, error)
	// GetRecentSignals returns unexpired signals, newest first.
	GetRecentSignals(ctx context.Context, limit int) ([]*types.Signal, error)

	QueueStats(ctx context.Context) (*QueueStats, error)
	Close() error
}

// transitionSources returns the statuses from which target may be reached.
func transitionSources(target types.OrderStatus) []types.OrderStatus {
	all := []types.OrderStatus{
		types.StatusPending,
		types.StatusMatched,
		types.StatusExecuted,
		types.StatusFailed,
		types.StatusCancelled,
	}
	var froms []types.OrderStatus
	for _, s := range all {
		if s.CanTransitionTo(target) {
			froms = append(froms, s)
		}
	}
	return froms
}
