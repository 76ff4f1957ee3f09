package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"PriceTrend/internal/domain/repository"
	"PriceTrend/pkg/logger"

	"github.com/gorilla/websocket"
)

// StreamFeed keeps a websocket subscription to the exchange trade
// channel and remembers the most recent trade. Current never touches
// the network; it hands back the last observed quote, so a poller tick
// during a disconnect fails cleanly instead of blocking.
type StreamFeed struct {
	url          string
	channel      string
	pingInterval time.Duration
	log          *logger.Logger

	mu      sync.RWMutex
	conn    *websocket.Conn
	last    repository.Quote
	hasLast bool

	cancel context.CancelFunc
}

// NewStreamFeed creates a websocket price feed and starts its read
// loop. The loop reconnects with a fixed delay until Close is called.
func NewStreamFeed(url, channel string, pingInterval time.Duration, log *logger.Logger) repository.PriceFeed {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &StreamFeed{
		url:          url,
		channel:      channel,
		pingInterval: pingInterval,
		log:          log,
		cancel:       cancel,
	}
	go f.run(ctx)
	return f
}

func (f *StreamFeed) Current(_ context.Context) (repository.Quote, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.hasLast {
		return repository.Quote{}, fmt.Errorf("stream feed: no trade observed yet")
	}
	return f.last, nil
}

func (f *StreamFeed) Close() error {
	f.cancel()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

type streamMessage struct {
	Event string `json:"event"`
	Data  struct {
		Price     float64 `json:"price"`
		Timestamp string  `json:"timestamp"`
	} `json:"data"`
}

func (f *StreamFeed) run(ctx context.Context) {
	const reconnectDelay = 5 * time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := f.connect(ctx); err != nil {
			f.log.Warn("stream feed connect failed", logger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}
		f.readLoop(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *StreamFeed) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}

	sub := map[string]interface{}{
		"event": "bts:subscribe",
		"data":  map[string]string{"channel": f.channel},
	}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return fmt.Errorf("subscribe %s: %w", f.channel, err)
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	f.log.Info("stream feed connected", logger.String("channel", f.channel))
	return nil
}

func (f *StreamFeed) readLoop(ctx context.Context) {
	f.mu.RLock()
	conn := f.conn
	f.mu.RUnlock()
	if conn == nil {
		return
	}
	defer conn.Close()

	// ping loop
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go func() {
		ticker := time.NewTicker(f.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		_, b, err := conn.ReadMessage()
		if err != nil {
			f.log.Warn("stream feed read failed", logger.Error(err))
			return
		}
		var m streamMessage
		if err := json.Unmarshal(b, &m); err != nil {
			// ignore non-trade frames
			continue
		}
		if m.Event != "trade" || m.Data.Price <= 0 {
			continue
		}
		ts := time.Now().Unix()
		f.mu.Lock()
		f.last = repository.Quote{
			Timestamp:  ts,
			PriceCents: uint32(m.Data.Price * 100.0),
		}
		f.hasLast = true
		f.mu.Unlock()
	}
}
