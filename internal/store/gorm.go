package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

// GormStore is the sqlite-backed record store. The status column doubles as
// queue membership: every move and claim is a conditional UPDATE guarded by
// the allowed source statuses, so queue exclusivity and the single-winner
// claim fall out of the database's row-level atomicity.
type GormStore struct {
	db        *gorm.DB
	signalTTL time.Duration
}

// NewGormStore wraps a gorm connection. signalTTL bounds how long stored
// signals remain visible to the matching lookback.
func NewGormStore(db *gorm.DB, signalTTL time.Duration) *GormStore {
	if signalTTL <= 0 {
		signalTTL = 24 * time.Hour
	}
	return &GormStore{db: db, signalTTL: signalTTL}
}

func (s *GormStore) AddOrder(ctx context.Context, order *types.Order) (string, error) {
	order.OrderID = "ORD_" + uuid.New().String()
	order.Status = types.StatusPending
	if order.OrderCategory == "" {
		order.OrderCategory = types.CategoryNormal
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}
	return order.OrderID, nil
}

func (s *GormStore) GetOrder(ctx context.Context, orderID string) (*types.Order, error) {
	var order types.Order
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (s *GormStore) UpdateOrderStatus(ctx context.Context, orderID string, status types.OrderStatus, upd *Update) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	fields := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if upd != nil {
		if upd.ExecutedPrice != nil {
			fields["executed_price"] = *upd.ExecutedPrice
		}
		if upd.ExecutedQuantity != nil {
			fields["executed_quantity"] = *upd.ExecutedQuantity
		}
		if upd.TradeID != "" {
			fields["trade_id"] = upd.TradeID
		}
		if upd.ErrorMessage != "" {
			fields["error_message"] = upd.ErrorMessage
		}
		if upd.ExecutedAt != nil {
			fields["executed_at"] = *upd.ExecutedAt
		}
	}

	res := s.db.WithContext(ctx).Model(&types.Order{}).
		Where("order_id = ? AND status IN ?", orderID, transitionSources(status)).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Nothing moved: either the order is unknown, the transition was already
	// applied (idempotent no-op), or the transition is illegal.
	current, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrOrderNotFound
	}
	if current.Status == status {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
}

func (s *GormStore) ClaimOrder(ctx context.Context, orderID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&types.Order{}).
		Where("order_id = ? AND status = ?", orderID, types.StatusPending).
		Updates(map[string]interface{}{
			"status":     types.StatusMatched,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) CancelOrder(ctx context.Context, orderID string) (*types.Order, error) {
	res := s.db.WithContext(ctx).Model(&types.Order{}).
		Where("order_id = ? AND status IN ?", orderID,
			[]types.OrderStatus{types.StatusPending, types.StatusMatched}).
		Updates(map[string]interface{}{
			"status":     types.StatusCancelled,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrOrderNotFound
		}
		return nil, ErrNotCancellable
	}
	return s.GetOrder(ctx, orderID)
}

func (s *GormStore) GetPendingOrders(ctx context.Context, limit int) ([]*types.Order, error) {
	var orders []*types.Order
	q := s.db.WithContext(ctx).
		Where("status = ?", types.StatusPending).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *GormStore) GetUserOrders(ctx context.Context, userID string, limit int, status types.OrderStatus) ([]*types.Order, error) {
	var orders []*types.Order
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *GormStore) FindMatchingOrders(ctx context.Context, criteria MatchCriteria) ([]*types.Order, error) {
	q := s.db.WithContext(ctx).
		Where("status = ?", types.StatusPending).
		Order("created_at ASC")
	if criteria.Symbol != "" {
		q = q.Where("symbol = ?", criteria.Symbol)
	}
	if criteria.Side != "" {
		q = q.Where("side = ?", criteria.Side)
	}
	if criteria.Strategy != "" {
		q = q.Where("strategy_match = '' OR strategy_match = ?", criteria.Strategy)
	}
	if criteria.Source != "" {
		q = q.Where("signal_source = '' OR signal_source = ?", criteria.Source)
	}
	if criteria.MinPrice != nil {
		q = q.Where("price IS NULL OR price >= ?", *criteria.MinPrice)
	}
	if criteria.MaxPrice != nil {
		q = q.Where("price IS NULL OR price <= ?", *criteria.MaxPrice)
	}
	if criteria.Limit > 0 {
		q = q.Limit(criteria.Limit)
	}
	var orders []*types.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *GormStore) StoreSignal(ctx context.Context, signal *types.Signal) (string, error) {
	signal.SignalID = "SIG_" + uuid.New().String()
	if signal.ReceivedAt.IsZero() {
		signal.ReceivedAt = time.Now()
	}
	signal.ExpiresAt = signal.ReceivedAt.Add(s.signalTTL)

	if err := s.db.WithContext(ctx).Create(signal).Error; err != nil {
		return "", fmt.Errorf("failed to store signal: %w", err)
	}
	return signal.SignalID, nil
}

func (s *GormStore) GetRecentSignals(ctx context.Context, limit int) ([]*types.Signal, error) {
	var signals []*types.Signal
	q := s.db.WithContext(ctx).
		Where("expires_at > ?", time.Now()).
		Order("received_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&signals).Error; err != nil {
		return nil, err
	}
	return signals, nil
}

func (s *GormStore) QueueStats(ctx context.Context) (*QueueStats, error) {
	stats := &QueueStats{}
	counts := []struct {
		status types.OrderStatus
		dst    *int64
	}{
		{types.StatusPending, &stats.Pending},
		{types.StatusMatched, &stats.Matched},
		{types.StatusExecuted, &stats.Executed},
		{types.StatusFailed, &stats.Failed},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(&types.Order{}).
			Where("status = ?", c.status).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
