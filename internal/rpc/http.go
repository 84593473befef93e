package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/j-veylop/creditbar/internal/logger"
)

// reconnectDelay is the pause before redialling a dropped event stream.
const reconnectDelay = 2 * time.Second

// HTTPTransport talks to a Server over HTTP and a websocket event stream.
type HTTPTransport struct {
	baseURL string
	client  *http.Client

	mu   sync.Mutex
	subs []*Subscription
}

// NewHTTPTransport returns a transport for the backend at baseURL. A nil
// client uses http.DefaultClient.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Call implements Transport.
func (t *HTTPTransport) Call(ctx context.Context, method string, params, result any) error {
	raw, err := encodeParams(params)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/rpc/"+method, bytes.NewReader(raw))
	if err != nil {
		return Errorf(KindInternal, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(ctx, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Errorf(KindNetwork, "unexpected backend reply (HTTP %d)", resp.StatusCode)
	}
	if env.Error != nil {
		return env.Error
	}
	if result == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return Errorf(KindInternal, "failed to decode %s result: %v", method, err)
	}
	return nil
}

func transportError(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return Errorf(KindTimeout, "backend did not respond in time")
	}
	return Errorf(KindNetwork, "backend unreachable: %v", err)
}

// Subscribe implements Transport. The first dial is synchronous so a dead
// backend is reported; afterwards the stream is redialled until cancelled.
func (t *HTTPTransport) Subscribe(event string, fn func(json.RawMessage)) (*Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())

	conn, err := t.dial(ctx)
	if err != nil {
		cancel()
		return nil, Errorf(KindNetwork, "failed to open event stream: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.stream(ctx, conn, event, fn)
	}()

	sub := NewSubscription(func() {
		cancel()
		<-done
	})
	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()
	return sub, nil
}

func (t *HTTPTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, t.baseURL+"/events", &websocket.DialOptions{HTTPClient: t.client})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (t *HTTPTransport) stream(ctx context.Context, conn *websocket.Conn, event string, fn func(json.RawMessage)) {
	for {
		err := readEvents(ctx, conn, event, fn)
		_ = conn.CloseNow()
		if ctx.Err() != nil {
			return
		}
		logger.Warn("event stream dropped", "error", err)

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			conn, err = t.dial(ctx)
			if err == nil {
				break
			}
			logger.Debug("event stream redial failed", "error", err)
		}
	}
}

func readEvents(ctx context.Context, conn *websocket.Conn, event string, fn func(json.RawMessage)) error {
	for {
		var ev Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		if ev.Name == event {
			fn(ev.Payload)
		}
	}
}

// Close cancels every subscription made through t.
func (t *HTTPTransport) Close() error {
	t.mu.Lock()
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	return nil
}
