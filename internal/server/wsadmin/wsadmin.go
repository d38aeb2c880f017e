// Package wsadmin exposes a read-only WebSocket observer endpoint,
// /observe, that streams monitor-style command descriptions to a
// browser tab without needing a TCP client. It is additive: the
// primary client wire protocol is internal/server's plain TCP adapter.
// Client frames are read only to detect the connection closing; their
// contents are discarded.
package wsadmin

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog"

	"github.com/adred-codev/kvengine/internal/command"
	"github.com/adred-codev/kvengine/internal/executor"
)

const pingPeriod = 30 * time.Second

// Handler serves the /observe endpoint against a shared executor.
type Handler struct {
	exec      *executor.Executor
	logger    zerolog.Logger
	clientSeq int64
}

// New creates a Handler bound to exec.
func New(exec *executor.Executor, logger zerolog.Logger) *Handler {
	return &Handler{exec: exec, logger: logger}
}

// ServeHTTP upgrades the request to a WebSocket and streams monitor
// output until the connection closes or the server shuts down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.logger.Error().Err(err).Msg("wsadmin: upgrade failed")
		return
	}
	clientID := atomic.AddInt64(&h.clientSeq, 1)

	h.exec.Execute(command.Command{Kind: command.AddClient, ClientID: clientID})
	resp := h.exec.Execute(command.Command{Kind: command.Monitor, ClientID: clientID})

	ctx, cancel := context.WithCancel(r.Context())
	go h.watchForClose(conn, cancel)

	defer func() {
		cancel()
		h.exec.Execute(command.Command{Kind: command.RemoveClient, ClientID: clientID})
		conn.Close()
	}()

	if resp.Kind != executor.Stream {
		wsutil.WriteServerMessage(conn, ws.OpText, []byte("monitor unavailable"))
		return
	}
	h.writePump(ctx, conn, resp.Stream)
}

// watchForClose blocks on client reads purely to detect the browser
// closing the tab; an observer endpoint never expects client data.
func (h *Handler) watchForClose(conn net.Conn, cancel context.CancelFunc) {
	defer cancel()
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(ctx context.Context, conn net.Conn, sink *executor.ChanSink) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer sink.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sink.Messages():
			if !ok {
				return
			}
			if err := wsutil.WriteServerMessage(conn, ws.OpText, []byte(msg.Payload)); err != nil {
				return
			}
		case <-ticker.C:
			if err := wsutil.WriteServerMessage(conn, ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}
