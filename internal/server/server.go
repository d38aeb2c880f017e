// Package server is the plain-text TCP front end: one command per
// line, whitespace-tokenized, dispatched through the validator and the
// executor. Each connection gets a client identity, a rate limiter,
// and a read loop that turns into a push feed when a streaming command
// (monitor, subscribe) takes the connection over.
package server

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/adred-codev/kvengine/internal/command"
	"github.com/adred-codev/kvengine/internal/executor"
	"github.com/adred-codev/kvengine/internal/metrics"
	"github.com/adred-codev/kvengine/internal/pubsub"
	"github.com/adred-codev/kvengine/internal/valuetype"
)

// Rate limit applied per connection: generous burst with a modest
// sustained rate.
const (
	limiterBurst = 100
	limiterRate  = 10
)

// Server accepts TCP connections and serves the command protocol
// against a shared executor.
type Server struct {
	exec      *executor.Executor
	logger    zerolog.Logger
	clientSeq int64
}

// New creates a Server bound to exec.
func New(exec *executor.Executor, logger zerolog.Logger) *Server {
	return &Server{exec: exec, logger: logger}
}

// ListenAndServe accepts connections on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.logger.Warn().Err(err).Msg("accept failed")
				continue
			}
		}
		clientID := atomic.AddInt64(&s.clientSeq, 1)
		go s.handleConn(ctx, conn, clientID)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn, clientID int64) {
	defer conn.Close()

	s.exec.Execute(command.Command{Kind: command.AddClient, ClientID: clientID})
	metrics.ConnectedClients.Inc()
	defer func() {
		s.exec.Execute(command.Command{Kind: command.RemoveClient, ClientID: clientID})
		metrics.ConnectedClients.Dec()
	}()

	limiter := rate.NewLimiter(rate.Limit(limiterRate), limiterBurst)
	writer := bufio.NewWriter(conn)
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 1<<20)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !limiter.Allow() {
			writer.WriteString("ERR rate limit exceeded\r\n")
			writer.Flush()
			continue
		}

		tokens := strings.Fields(line)
		cmd, err := command.Validate(tokens, clientID)
		if err != nil {
			writer.WriteString(err.Error())
			writer.WriteString("\r\n")
			writer.Flush()
			continue
		}

		metrics.CommandsTotal.WithLabelValues(cmd.Kind.String()).Inc()
		resp := s.exec.Execute(cmd)
		if resp.Kind == executor.ErrorResponse {
			metrics.CommandErrorsTotal.WithLabelValues(cmd.Kind.String()).Inc()
		}

		if resp.Kind == executor.Stream {
			s.streamLoop(ctx, writer, resp.Stream)
			return
		}

		writer.WriteString(render(resp))
		writer.WriteString("\r\n")
		if err := writer.Flush(); err != nil {
			return
		}
	}
}

// streamLoop takes over the connection once a command (monitor,
// subscribe) turns it into an open-ended push feed. It runs until the
// sink closes or the connection's context is done.
func (s *Server) streamLoop(ctx context.Context, writer *bufio.Writer, sink *executor.ChanSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sink.Messages():
			if !ok {
				return
			}
			writer.WriteString(renderStreamMessage(msg))
			writer.WriteString("\r\n")
			if err := writer.Flush(); err != nil {
				return
			}
		}
	}
}

// renderStreamMessage formats a pub/sub or monitor frame for the wire.
// monitor frames carry a pre-rendered line in Payload; subscribe and
// unsubscribe frames report the resulting subscription count.
func renderStreamMessage(m pubsub.Message) string {
	switch m.Kind {
	case "monitor", "message":
		return m.Payload
	case "subscribe", "unsubscribe":
		return m.Kind + " " + m.Channel + " " + strconv.Itoa(m.Count)
	default:
		return m.Payload
	}
}

// render converts a Normal or Error response into its wire text per the
// rendering contract: strings render literally, lists/sets render as
// newline-joined elements, nil renders as "(nil)", errors render as
// their literal message.
func render(r executor.Response) string {
	if r.Kind == executor.ErrorResponse {
		return r.Err
	}
	v := r.Value
	switch v.Kind {
	case valuetype.KindNil:
		return "(nil)"
	case valuetype.KindString:
		return v.Str
	case valuetype.KindList:
		return strings.Join(v.List, "\r\n")
	case valuetype.KindSet:
		members := v.SetMembers()
		return strings.Join(members, "\r\n")
	default:
		return "(nil)"
	}
}
