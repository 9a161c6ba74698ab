package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

// Redis key layout. Order records are hashes with an authoritative "status"
// field next to the serialized record, so the transition script can guard on
// status without parsing JSON.
const (
	orderKeyPrefix   = "trader:order:"
	userOrdersPrefix = "trader:user_orders:"
	queueKeyPrefix   = "trader:queue:"
	signalKeyPrefix  = "trader:signal:"
	recentSignalsKey = "trader:signals:recent"
	recentSignalsCap = 500
)

// transitionScript atomically applies a status-guarded transition: verify the
// current status is one of the allowed sources, move the order id between the
// status queues (remove at most one occurrence), update the status field and
// optionally replace the serialized record.
//
// KEYS: order hash, pending queue, matched queue, executed queue, failed queue
// ARGV: allowed sources (csv), new status, record json ("" keeps existing), order id
// Returns 1 applied, 2 already in target status, 0 transition not allowed,
// -1 order missing.
var transitionScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then return -1 end
if cur == ARGV[2] then return 2 end
local allowed = false
for from in string.gmatch(ARGV[1], '[^,]+') do
	if from == cur then allowed = true end
end
if not allowed then return 0 end
local queues = {pending=KEYS[2], matched=KEYS[3], executed=KEYS[4], failed=KEYS[5]}
local fromq = queues[cur]
if fromq then redis.call('LREM', fromq, 1, ARGV[4]) end
local toq = queues[ARGV[2]]
if toq then redis.call('RPUSH', toq, ARGV[4]) end
redis.call('HSET', KEYS[1], 'status', ARGV[2])
if ARGV[3] ~= '' then redis.call('HSET', KEYS[1], 'data', ARGV[3]) end
return 1
`)

// RedisStore is the Redis-backed record store: one hash per order, explicit
// status queues, a per-user index list and a capped recent-signal list with
// TTLed signal records.
type RedisStore struct {
	client    *redis.Client
	signalTTL time.Duration
}

// NewRedisStore wraps a Redis client. signalTTL bounds signal retention.
func NewRedisStore(client *redis.Client, signalTTL time.Duration) *RedisStore {
	if signalTTL <= 0 {
		signalTTL = 24 * time.Hour
	}
	return &RedisStore{client: client, signalTTL: signalTTL}
}

func orderKey(orderID string) string { return orderKeyPrefix + orderID }

func userKey(userID string) string { return userOrdersPrefix + userID }

func queueKey(s types.OrderStatus) string { return queueKeyPrefix + string(s) }

func queueKeys(orderID string) []string {
	return []string{
		orderKey(orderID),
		queueKey(types.StatusPending),
		queueKey(types.StatusMatched),
		queueKey(types.StatusExecuted),
		queueKey(types.StatusFailed),
	}
}

func (s *RedisStore) AddOrder(ctx context.Context, order *types.Order) (string, error) {
	order.OrderID = "ORD_" + uuid.New().String()
	order.Status = types.StatusPending
	if order.OrderCategory == "" {
		order.OrderCategory = types.CategoryNormal
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	data, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, orderKey(order.OrderID), "status", string(order.Status), "data", data)
		pipe.RPush(ctx, queueKey(types.StatusPending), order.OrderID)
		pipe.RPush(ctx, userKey(order.UserID), order.OrderID)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to store order: %w", err)
	}
	return order.OrderID, nil
}

func (s *RedisStore) GetOrder(ctx context.Context, orderID string) (*types.Order, error) {
	vals, err := s.client.HMGet(ctx, orderKey(orderID), "data", "status").Result()
	if err != nil {
		return nil, err
	}
	raw, ok := vals[0].(string)
	if !ok || raw == "" {
		return nil, nil
	}
	var order types.Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order %s: %w", orderID, err)
	}
	// The hash field wins over the serialized copy.
	if st, ok := vals[1].(string); ok && st != "" {
		order.Status = types.OrderStatus(st)
	}
	return &order, nil
}

// transition runs the guarded claim-and-move script.
func (s *RedisStore) transition(ctx context.Context, orderID string, froms []types.OrderStatus, target types.OrderStatus, data string) (int, error) {
	srcs := make([]string, len(froms))
	for i, f := range froms {
		srcs[i] = string(f)
	}
	res, err := transitionScript.Run(ctx, s.client, queueKeys(orderID),
		strings.Join(srcs, ","), string(target), data, orderID).Int()
	if err != nil {
		return 0, err
	}
	return res, nil
}

func (s *RedisStore) UpdateOrderStatus(ctx context.Context, orderID string, status types.OrderStatus, upd *Update) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}

	order.Status = status
	order.UpdatedAt = time.Now()
	if upd != nil {
		if upd.ExecutedPrice != nil {
			order.ExecutedPrice = upd.ExecutedPrice
		}
		if upd.ExecutedQuantity != nil {
			order.ExecutedQuantity = upd.ExecutedQuantity
		}
		if upd.TradeID != "" {
			order.TradeID = upd.TradeID
		}
		if upd.ErrorMessage != "" {
			order.ErrorMessage = upd.ErrorMessage
		}
		if upd.ExecutedAt != nil {
			order.ExecutedAt = upd.ExecutedAt
		}
	}
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	res, err := s.transition(ctx, orderID, transitionSources(status), status, string(data))
	if err != nil {
		return err
	}
	switch res {
	case 1, 2:
		return nil
	case -1:
		return ErrOrderNotFound
	default:
		return fmt.Errorf("%w: -> %s", ErrInvalidTransition, status)
	}
}

func (s *RedisStore) ClaimOrder(ctx context.Context, orderID string) (bool, error) {
	res, err := s.transition(ctx, orderID,
		[]types.OrderStatus{types.StatusPending}, types.StatusMatched, "")
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) CancelOrder(ctx context.Context, orderID string) (*types.Order, error) {
	res, err := s.transition(ctx, orderID,
		[]types.OrderStatus{types.StatusPending, types.StatusMatched}, types.StatusCancelled, "")
	if err != nil {
		return nil, err
	}
	switch res {
	case 1:
		return s.GetOrder(ctx, orderID)
	case -1:
		return nil, ErrOrderNotFound
	default:
		return nil, ErrNotCancellable
	}
}

// loadOrders fetches the records behind a list of order ids, skipping any
// that have disappeared.
func (s *RedisStore) loadOrders(ctx context.Context, ids []string) ([]*types.Order, error) {
	orders := make([]*types.Order, 0, len(ids))
	for _, id := range ids {
		order, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		if order == nil {
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (s *RedisStore) GetPendingOrders(ctx context.Context, limit int) ([]*types.Order, error) {
	end := int64(-1)
	if limit > 0 {
		end = int64(limit) - 1
	}
	ids, err := s.client.LRange(ctx, queueKey(types.StatusPending), 0, end).Result()
	if err != nil {
		return nil, err
	}
	return s.loadOrders(ctx, ids)
}

func (s *RedisStore) GetUserOrders(ctx context.Context, userID string, limit int, status types.OrderStatus) ([]*types.Order, error) {
	ids, err := s.client.LRange(ctx, userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	orders, err := s.loadOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	// Index lists append on creation; listings are newest first.
	filtered := make([]*types.Order, 0, len(orders))
	for i := len(orders) - 1; i >= 0; i-- {
		if status != "" && orders[i].Status != status {
			continue
		}
		filtered = append(filtered, orders[i])
		if limit > 0 && len(filtered) >= limit {
			break
		}
	}
	return filtered, nil
}

func (s *RedisStore) FindMatchingOrders(ctx context.Context, criteria MatchCriteria) ([]*types.Order, error) {
	pending, err := s.GetPendingOrders(ctx, 0)
	if err != nil {
		return nil, err
	}
	matched := make([]*types.Order, 0)
	for _, order := range pending {
		if criteria.Symbol != "" && order.Symbol != criteria.Symbol {
			continue
		}
		if criteria.Side != "" && order.Side != criteria.Side {
			continue
		}
		if criteria.Strategy != "" && order.StrategyMatch != "" && order.StrategyMatch != criteria.Strategy {
			continue
		}
		if criteria.Source != "" && order.SignalSource != "" && order.SignalSource != criteria.Source {
			continue
		}
		if criteria.MinPrice != nil && order.Price != nil && *order.Price < *criteria.MinPrice {
			continue
		}
		if criteria.MaxPrice != nil && order.Price != nil && *order.Price > *criteria.MaxPrice {
			continue
		}
		matched = append(matched, order)
		if criteria.Limit > 0 && len(matched) >= criteria.Limit {
			break
		}
	}
	return matched, nil
}

func (s *RedisStore) StoreSignal(ctx context.Context, signal *types.Signal) (string, error) {
	signal.SignalID = "SIG_" + uuid.New().String()
	if signal.ReceivedAt.IsZero() {
		signal.ReceivedAt = time.Now()
	}
	signal.ExpiresAt = signal.ReceivedAt.Add(s.signalTTL)

	data, err := json.Marshal(signal)
	if err != nil {
		return "", fmt.Errorf("failed to marshal signal: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, signalKeyPrefix+signal.SignalID, data, s.signalTTL)
		pipe.LPush(ctx, recentSignalsKey, signal.SignalID)
		pipe.LTrim(ctx, recentSignalsKey, 0, recentSignalsCap-1)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to store signal: %w", err)
	}
	return signal.SignalID, nil
}

func (s *RedisStore) GetRecentSignals(ctx context.Context, limit int) ([]*types.Signal, error) {
	ids, err := s.client.LRange(ctx, recentSignalsKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	signals := make([]*types.Signal, 0, limit)
	for _, id := range ids {
		raw, err := s.client.Get(ctx, signalKeyPrefix+id).Result()
		if err == redis.Nil {
			// Signal expired, drop it from the recency list.
			s.client.LRem(ctx, recentSignalsKey, 1, id)
			continue
		} else if err != nil {
			return nil, err
		}
		var signal types.Signal
		if err := json.Unmarshal([]byte(raw), &signal); err != nil {
			log.Warn().Str("signal_id", id).Err(err).Msg("skipping undecodable signal")
			continue
		}
		signals = append(signals, &signal)
		if limit > 0 && len(signals) >= limit {
			break
		}
	}
	return signals, nil
}

func (s *RedisStore) QueueStats(ctx context.Context) (*QueueStats, error) {
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
		n, err := s.client.LLen(ctx, queueKey(c.status)).Result()
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	return stats, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
