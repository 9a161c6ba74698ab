package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	minOrders     = 20
	maxOrders     = 120
	numWorkers    = 5
	serverAddress = "http://localhost:8080"
)

var (
	symbols = []string{"BTCUSDT", "ETHUSDT", "EURUSD"}
	sides   = []string{"buy", "sell"}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes min, max, mean, median, p95 and p99 durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient drives the order and webhook endpoints
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	mu        sync.Mutex
	stats     map[string]*routeStats
}

func newSimulationClient() (*simulationClient, error) {
	sc := &simulationClient{
		baseURL: serverAddress,
		client:  &http.Client{Timeout: 10 * time.Second},
		stats: map[string]*routeStats{
			"auth":    {name: "Authentication"},
			"create":  {name: "Create Order"},
			"status":  {name: "Order Status"},
			"webhook": {name: "TradingView Webhook"},
			"cancel":  {name: "Cancel Order"},
			"queue":   {name: "Queue Stats"},
		},
	}

	if err := sc.authenticate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *simulationClient) record(route string, start time.Time, failed bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	rs := sc.stats[route]
	rs.addDuration(time.Since(start))
	if failed {
		rs.failures++
	}
}

func (sc *simulationClient) post(path string, payload interface{}, withAuth bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, sc.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if withAuth {
		req.Header.Set("Authorization", "Bearer "+sc.authToken)
	}
	return sc.client.Do(req)
}

func (sc *simulationClient) authenticate() error {
	start := time.Now()
	resp, err := sc.post("/auth/token", map[string]string{
		"api_key":    "test-api-key",
		"api_secret": "test-api-secret",
	}, false)
	sc.record("auth", start, err != nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var parsed struct {
		Data struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return err
	}
	if parsed.Data.Token == "" {
		return fmt.Errorf("authentication returned no token")
	}
	sc.authToken = parsed.Data.Token
	return nil
}

// createOrder submits a random order, sometimes with TP/SL or signal gating
func (sc *simulationClient) createOrder() (string, error) {
	symbol := symbols[rand.Intn(len(symbols))]
	side := sides[rand.Intn(len(sides))]
	orderTypes := []string{"market", "limit", "stop"}
	orderType := orderTypes[rand.Intn(len(orderTypes))]

	payload := map[string]interface{}{
		"user_id":    fmt.Sprintf("sim-user-%d", rand.Intn(numWorkers)),
		"symbol":     symbol,
		"side":       side,
		"order_type": orderType,
		"quantity":   0.01 + rand.Float64()*0.5,
	}
	if orderType == "limit" {
		payload["price"] = 40000 + rand.Float64()*8000
	}
	if orderType == "stop" {
		payload["stop_price"] = 40000 + rand.Float64()*8000
	}
	if rand.Float64() < 0.3 {
		payload["take_profit"] = 50000 + rand.Float64()*2000
		payload["stop_loss"] = 38000 + rand.Float64()*2000
	}
	if rand.Float64() < 0.2 {
		payload["strategy_match"] = "sim-strategy"
		payload["signal_source"] = "tradingview"
	}

	start := time.Now()
	resp, err := sc.post("/orders/create", payload, true)
	if err != nil {
		sc.record("create", start, true)
		return "", err
	}
	defer resp.Body.Close()
	sc.record("create", start, resp.StatusCode != http.StatusOK)

	var parsed struct {
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.OrderID, nil
}

// fireSignal posts a TradingView-style alert
func (sc *simulationClient) fireSignal() error {
	payload := map[string]interface{}{
		"symbol":   symbols[rand.Intn(len(symbols))],
		"action":   sides[rand.Intn(len(sides))],
		"price":    40000 + rand.Float64()*8000,
		"strategy": "sim-strategy",
		"indicators": map[string]float64{
			"rsi": 30 + rand.Float64()*40,
		},
	}

	start := time.Now()
	resp, err := sc.post("/webhooks/tradingview", payload, false)
	if err != nil {
		sc.record("webhook", start, true)
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	sc.record("webhook", start, resp.StatusCode != http.StatusOK)
	return nil
}

func (sc *simulationClient) getStatus(orderID string) error {
	req, err := http.NewRequest(http.MethodGet, sc.baseURL+"/orders/status/"+orderID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+sc.authToken)

	start := time.Now()
	resp, err := sc.client.Do(req)
	if err != nil {
		sc.record("status", start, true)
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	sc.record("status", start, resp.StatusCode != http.StatusOK)
	return nil
}

func (sc *simulationClient) cancelOrder(orderID string) error {
	req, err := http.NewRequest(http.MethodPut, sc.baseURL+"/orders/cancel/"+orderID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+sc.authToken)

	start := time.Now()
	resp, err := sc.client.Do(req)
	if err != nil {
		sc.record("cancel", start, true)
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	// 400 here usually means the order already executed, which is fine
	sc.record("cancel", start, resp.StatusCode >= http.StatusInternalServerError)
	return nil
}

func (sc *simulationClient) queueStats() error {
	req, err := http.NewRequest(http.MethodGet, sc.baseURL+"/orders/queue/stats", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+sc.authToken)

	start := time.Now()
	resp, err := sc.client.Do(req)
	if err != nil {
		sc.record("queue", start, true)
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	sc.record("queue", start, resp.StatusCode != http.StatusOK)
	log.Info().RawJSON("queue_stats", body).Msg("queue state")
	return nil
}

func (sc *simulationClient) printStats() {
	fmt.Println("\n=== Simulation Results ===")
	for _, key := range []string{"auth", "create", "webhook", "status", "cancel", "queue"} {
		rs := sc.stats[key]
		if rs.totalCalls == 0 {
			continue
		}
		min, max, mean, median, p95, p99 := rs.calculate()
		fmt.Printf("\n%s (%d calls, %d failures)\n", rs.name, rs.totalCalls, rs.failures)
		fmt.Printf("  min=%v max=%v mean=%v median=%v p95=%v p99=%v\n",
			min, max, mean, median, p95, p99)
	}
}

func main() {
	sc, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize simulation client")
	}

	numOrders := minOrders + rand.Intn(maxOrders-minOrders+1)
	log.Info().Int("orders", numOrders).Int("workers", numWorkers).Msg("starting simulation")

	orderCh := make(chan int, numOrders)
	orderIDs := make(chan string, numOrders)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range orderCh {
				orderID, err := sc.createOrder()
				if err != nil {
					log.Warn().Err(err).Msg("order creation failed")
					continue
				}
				orderIDs <- orderID

				// Roughly one signal per three orders keeps the
				// reactive path busy
				if rand.Float64() < 0.33 {
					if err := sc.fireSignal(); err != nil {
						log.Warn().Err(err).Msg("signal delivery failed")
					}
				}
			}
		}()
	}

	for i := 0; i < numOrders; i++ {
		orderCh <- i
	}
	close(orderCh)
	wg.Wait()
	close(orderIDs)

	// Let the poll loop work through the backlog
	time.Sleep(3 * time.Second)

	var ids []string
	for id := range orderIDs {
		ids = append(ids, id)
	}
	for _, id := range ids {
		if err := sc.getStatus(id); err != nil {
			log.Warn().Err(err).Str("order_id", id).Msg("status check failed")
		}
	}

	// Try to cancel a handful of stragglers
	for _, id := range ids {
		if rand.Float64() < 0.1 {
			if err := sc.cancelOrder(id); err != nil {
				log.Warn().Err(err).Str("order_id", id).Msg("cancel failed")
			}
		}
	}

	if err := sc.queueStats(); err != nil {
		log.Warn().Err(err).Msg("queue stats failed")
	}

	sc.printStats()
}
