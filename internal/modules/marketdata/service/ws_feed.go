package service

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"trade_engine/internal/models"
	"trade_engine/internal/modules/config"
	healthservice "trade_engine/internal/modules/health/service"
)

// WSFeed is the real-feed adapter: one websocket subscription for the whole
// symbol batch, closed candles are committed to the store as they confirm.
type WSFeed struct {
	cfg    *config.Config
	store  *Store
	state  *healthservice.State
	dialer *websocket.Dialer
}

func NewWSFeed(cfg *config.Config, store *Store, state *healthservice.State) *WSFeed {
	return &WSFeed{
		cfg:    cfg,
		store:  store,
		state:  state,
		dialer: &websocket.Dialer{},
	}
}

// Run blocks until ctx is done, reconnecting with a flat backoff on any
// dial or read failure.
func (f *WSFeed) Run(ctx context.Context) {
	channel := "candle" + f.cfg.DefaultTimeframe

	args := make([]map[string]string, 0, len(f.cfg.Feed.Symbols))
	for _, sym := range f.cfg.Feed.Symbols {
		args = append(args, map[string]string{
			"channel": channel,
			"instId":  sym,
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Printf("[WS] connect %s %d symbols", channel, len(args))
		conn, _, err := f.dialer.Dial(f.cfg.Feed.WSURL, nil)
		if err != nil {
			log.Printf("[WS] dial error %s: %v", channel, err)
			time.Sleep(time.Second)
			continue
		}

		sub := map[string]any{
			"op":   "subscribe",
			"args": args,
		}
		if err := conn.WriteJSON(sub); err != nil {
			log.Printf("[WS] subscribe error %s: %v", channel, err)
			_ = conn.Close()
			continue
		}

		// keepalive ping every 20s, otherwise the feed drops the connection
		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-stopPing:
					return
				case <-t.C:
					_ = conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}()

		f.state.SetFeedConnected(true)
		f.readLoop(ctx, conn, channel)
		f.state.SetFeedConnected(false)
		close(stopPing)
		_ = conn.Close()
	}
}

func (f *WSFeed) readLoop(ctx context.Context, conn *websocket.Conn, channel string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] read error %s: %v", channel, err)
			return
		}

		var frame struct {
			Arg struct {
				Channel string `json:"channel"`
				InstID  string `json:"instId"`
			} `json:"arg"`
			Data [][]string `json:"data"`
		}
		if err := sonic.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Arg.Channel != channel || len(frame.Data) == 0 {
			continue
		}

		for _, row := range frame.Data {
			// row: [ts, o, h, l, c, vol, ..., confirm]
			if len(row) < 6 {
				continue
			}
			if row[len(row)-1] != "1" {
				continue // wait for the closed candle
			}

			c, ok := parseCandleRow(frame.Arg.InstID, f.cfg.DefaultTimeframe, row)
			if !ok {
				continue
			}
			f.store.Append(c)
			f.state.TouchCandle(c.Timestamp)
			f.state.SetReady(true)
		}
	}
}

func parseCandleRow(symbol, timeframe string, row []string) (models.Candle, bool) {
	tsMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, false
	}

	var px [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return models.Candle{}, false
		}
		px[i] = v
	}

	vol, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		return models.Candle{}, false
	}

	return models.Candle{
		Symbol:    symbol,
		Timeframe: timeframe,
		Open:      px[0],
		High:      px[1],
		Low:       px[2],
		Close:     px[3],
		Volume:    int64(vol),
		Timestamp: time.UnixMilli(tsMs),
	}, true
}
