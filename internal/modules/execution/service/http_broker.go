package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"trade_engine/internal/models"
)

// HTTPBroker talks to a real broker over its REST API. Every call is
// authenticated with the owner's session token; any transport or API
// failure comes back wrapped in ErrBroker so the engine can fall back.
type HTTPBroker struct {
	baseURL  string
	http     *http.Client
	sessions *SessionRegistry
}

func NewHTTPBroker(baseURL string, timeout time.Duration, sessions *SessionRegistry) *HTTPBroker {
	return &HTTPBroker{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		sessions: sessions,
	}
}

func (b *HTTPBroker) PlaceOrder(ctx context.Context, trade *models.Trade) (string, error) {
	body := map[string]string{
		"symbol":    trade.Symbol,
		"side":      string(trade.Side),
		"orderType": "MARKET",
		"quantity":  strconv.FormatInt(trade.Quantity, 10),
		"price":     strconv.FormatFloat(trade.Price, 'f', -1, 64),
	}

	var r struct {
		Code    string `json:"code"`
		Msg     string `json:"msg"`
		OrderID string `json:"orderId"`
	}
	if err := b.post(ctx, trade.OwnerID, "/orders", body, &r); err != nil {
		return "", err
	}
	if r.Code != "0" || r.OrderID == "" {
		return "", fmt.Errorf("%w: PlaceOrder code=%s msg=%s", ErrBroker, r.Code, r.Msg)
	}
	return r.OrderID, nil
}

func (b *HTTPBroker) CloseOrder(ctx context.Context, trade *models.Trade) error {
	body := map[string]string{
		"symbol": trade.Symbol,
	}

	var r struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	path := "/orders/" + url.PathEscape(trade.BrokerOrderID) + "/close"
	if err := b.post(ctx, trade.OwnerID, path, body, &r); err != nil {
		return err
	}
	if r.Code != "0" {
		return fmt.Errorf("%w: CloseOrder code=%s msg=%s", ErrBroker, r.Code, r.Msg)
	}
	return nil
}

func (b *HTTPBroker) GetPrice(ctx context.Context, symbol string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.baseURL+"/price?symbol="+url.QueryEscape(symbol), nil)
	if err != nil {
		return 0, errors.Wrap(err, "GetPrice new request")
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: GetPrice do: %v", ErrBroker, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return 0, fmt.Errorf("%w: GetPrice http %d: %s", ErrBroker, resp.StatusCode, string(data))
	}

	var r struct {
		Price string `json:"price"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return 0, fmt.Errorf("%w: GetPrice decode: %v", ErrBroker, err)
	}
	px, err := strconv.ParseFloat(r.Price, 64)
	if err != nil || px <= 0 {
		return 0, fmt.Errorf("%w: GetPrice bad price %q", ErrBroker, r.Price)
	}
	return px, nil
}

func (b *HTTPBroker) post(ctx context.Context, ownerID int64, path string, body any, out any) error {
	payload, _ := sonic.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "%s new request", path)
	}

	sess := b.sessions.Session(ownerID)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s do: %v", ErrBroker, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %s http %d: %s", ErrBroker, path, resp.StatusCode, string(data))
	}

	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s decode: %v", ErrBroker, path, err)
	}
	return nil
}
