// Package viewer publishes a running sweep's tick-by-tick metrics to a
// browser over websocket, the way this codebase's earlier single-page
// viewer did: one upgraded connection, a ping/pong liveness loop, and a
// best-effort publish rate that drops intervening updates rather than
// buffering them. Routing is done with gorilla/mux instead of bare
// net/http.HandleFunc, so additional views (per-axis-value pages, a
// health endpoint) have somewhere to register without fighting the
// default mux.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"

	"citysim/internal/metrics"
)

const (
	writeWait      = 1 * time.Second
	pubResolution  = 100 * time.Millisecond
	pingResolution = 500 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ErrPeerGone is returned by Publish when the client stops answering
// pings.
var ErrPeerGone = errors.New("viewer: peer stopped responding to pings")

// Publisher streams metrics.Record updates to a single connected browser.
// A fresh Publisher is created per connection; it holds no state beyond
// the channel it reads from and the socket it writes to.
type Publisher struct {
	updates <-chan metrics.Record
	conn    *websocket.Conn
}

// NewPublisher upgrades the HTTP request to a websocket and returns a
// Publisher that will stream updates to it once Run is called.
func NewPublisher(w http.ResponseWriter, r *http.Request, updates <-chan metrics.Record) (*Publisher, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("viewer: upgrading connection: %w", err)
	}
	return &Publisher{updates: updates, conn: conn}, nil
}

// Run publishes updates until the context is cancelled, the peer
// disconnects, or the peer stops answering pings. It blocks and should be
// called from its own goroutine per connection.
func (p *Publisher) Run(ctx context.Context) error {
	defer p.close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pong := make(chan struct{})
	defer close(pong)
	p.conn.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		case <-runCtx.Done():
		}
		return nil
	})

	go p.readPump(runCtx, cancel)

	pinger := channerics.NewTicker(runCtx.Done(), pingResolution)
	lastPong := time.Now()
	lastPublish := time.Time{}

	for {
		select {
		case <-runCtx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pingResolution*2 {
				return ErrPeerGone
			}
			if err := p.ping(); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		case rec, ok := <-p.updates:
			if !ok {
				return nil
			}
			if time.Since(lastPublish) < pubResolution {
				continue
			}
			lastPublish = time.Now()
			if err := p.writeJSON(rec); err != nil {
				return err
			}
		}
	}
}

// readPump drains control frames (pongs, close) so the gorilla/websocket
// library's internal handlers fire; it never expects an application
// message on this unidirectional stream.
func (p *Publisher) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (p *Publisher) ping() error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("viewer: setting ping deadline: %w", err)
	}
	return p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (p *Publisher) writeJSON(rec metrics.Record) error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("viewer: setting write deadline: %w", err)
	}
	return p.conn.WriteJSON(rec)
}

func (p *Publisher) close() {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	p.conn.Close()
}

// NewRouter returns a mux.Router wired with a /ws live-metrics endpoint
// and a /healthz liveness endpoint. handler is called once per upgraded
// connection with the request's context, and should call NewPublisher and
// Run itself so each connection can own its own update channel.
func NewRouter(handler func(w http.ResponseWriter, r *http.Request)) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ws", handler)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return router
}
