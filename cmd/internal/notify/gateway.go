package notify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/oklog/ulid/v2"
)

const (
	defaultWriteTimeout  = 5 * time.Second
	defaultSendQueueSize = 256
	pingEvery            = 30 * time.Second
)

// GatewayConfig configures the WebSocket entrypoint.
type GatewayConfig struct {
	// AllowedOrigins lists host patterns for cross-origin upgrades, passed to
	// websocket.Accept. Empty means same-host only.
	AllowedOrigins []string

	// SendQueueSize bounds each client's outbound queue.
	SendQueueSize int
}

// Gateway upgrades HTTP requests to WebSocket subscriptions on the hub.
// Subscribers are read-only: inbound frames are drained and discarded.
type Gateway struct {
	log *slog.Logger
	hub *Hub
	cfg GatewayConfig

	// usernameFrom extracts the authenticated username, if any, from the
	// upgrade request. Anonymous subscriptions are allowed.
	usernameFrom func(r *http.Request) (string, bool)
}

// NewGateway constructs a gateway over hub.
func NewGateway(log *slog.Logger, hub *Hub, cfg GatewayConfig, usernameFrom func(r *http.Request) (string, bool)) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaultSendQueueSize
	}
	if usernameFrom == nil {
		usernameFrom = func(*http.Request) (string, bool) { return "", false }
	}
	return &Gateway{log: log, hub: hub, cfg: cfg, usernameFrom: usernameFrom}
}

// ServeHTTP handles the upgrade and runs the subscription until the client
// disconnects or the server shuts down.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.cfg.AllowedOrigins,
	})
	if err != nil {
		g.log.Warn("notify.accept_failed", "error", err)
		return
	}

	username, _ := g.usernameFrom(r)
	client := NewClient(ulid.Make().String(), username, g.cfg.SendQueueSize)
	g.hub.Register(client)
	g.log.Info("notify.connected", "client_id", client.ID, "username", username)

	defer func() {
		g.hub.Unregister(client.ID)
		_ = conn.Close(websocket.StatusNormalClosure, "")
		g.log.Info("notify.disconnected", "client_id", client.ID)
	}()

	ctx := r.Context()

	// Reader: subscribers send nothing meaningful; drain control/noise frames
	// so pongs are processed, and exit on close.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case <-client.Done():
			return
		case <-ticker.C:
			if err := g.ping(ctx, conn); err != nil {
				return
			}
		case ev := <-client.Send:
			if err := g.write(ctx, conn, ev); err != nil {
				g.log.Debug("notify.write_failed", "client_id", client.ID, "error", err)
				return
			}
		}
	}
}

func (g *Gateway) write(ctx context.Context, conn *websocket.Conn, ev Event) error {
	wctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, ev)
}

func (g *Gateway) ping(ctx context.Context, conn *websocket.Conn) error {
	pctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()
	return conn.Ping(pctx)
}
