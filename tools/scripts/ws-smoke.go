// Package main provides a CI-friendly WebSocket smoke test for the
// notification stream.
//
// It validates:
//   - handshake against /ws
//   - event delivery while catalog writes happen elsewhere
//
// Run it, perform a catalog write (e.g. POST /api/v1/artists), and the event
// prints here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func main() {
	var (
		wsURL   = flag.String("url", "ws://127.0.0.1:8080/ws", "WebSocket URL")
		bearer  = flag.String("token", "", "Optional access token (subscribes as that user)")
		count   = flag.Int("n", 1, "Number of events to wait for")
		timeout = flag.Duration("timeout", 60*time.Second, "Overall timeout")
	)
	flag.Parse()

	if _, err := url.Parse(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	opts := &websocket.DialOptions{}
	if *bearer != "" {
		opts.HTTPHeader = map[string][]string{"Authorization": {"Bearer " + *bearer}}
	}

	conn, _, err := websocket.Dial(ctx, *wsURL, opts)
	if err != nil {
		fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	fmt.Printf("connected to %s, waiting for %d event(s)\n", *wsURL, *count)

	for i := 0; i < *count; i++ {
		var ev map[string]any
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			fatalf("read: %v", err)
		}
		out, _ := json.Marshal(ev)
		fmt.Printf("event %d: %s\n", i+1, out)
	}

	fmt.Println("ok")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ws-smoke: "+format+"\n", args...)
	os.Exit(1)
}
