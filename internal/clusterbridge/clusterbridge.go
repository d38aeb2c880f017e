// Package clusterbridge mirrors locally published messages onto a NATS
// subject so a second kvengine instance's subscribers can observe them
// too. This is an extension beyond the single-process pub/sub broker:
// the broker never depends on it, and it is disabled unless NATS_URL is
// configured. Mirroring is fire-and-forget via internal/workerpool, so
// a slow or unreachable NATS server never slows down a local publish.
package clusterbridge

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/adred-codev/kvengine/internal/workerpool"
)

const subjectPrefix = "kvengine.channel."

// Bridge mirrors publishes onto NATS and delivers inbound mirrors from
// other instances to a local sink.
type Bridge struct {
	conn   *nats.Conn
	pool   *workerpool.Pool
	logger zerolog.Logger
	subs   []*nats.Subscription
}

// Connect dials the given NATS URL and creates a small worker pool for
// fire-and-forget publishes; Start launches it. Returns an error if the
// connection fails;
// callers should treat that as "clustering unavailable" and continue
// running single-process, not as fatal.
func Connect(url string, logger zerolog.Logger) (*Bridge, error) {
	conn, err := nats.Connect(url, nats.Name("kvengine"))
	if err != nil {
		return nil, fmt.Errorf("clusterbridge: connect: %w", err)
	}
	pool := workerpool.New(2, 64, logger)
	return &Bridge{conn: conn, pool: pool, logger: logger}, nil
}

// Start launches the mirror-dispatch worker pool. ctx governs shutdown.
func (b *Bridge) Start(ctx context.Context) {
	b.pool.Start(ctx)
}

// MirrorPublish forwards a local publish onto this channel's NATS
// subject without blocking the caller. Submission is best-effort: if
// the internal queue is full the mirror is dropped, matching the
// broker's own best-effort fan-out semantics.
func (b *Bridge) MirrorPublish(channel, payload string) {
	b.pool.Submit(func() {
		if err := b.conn.Publish(subjectPrefix+channel, []byte(payload)); err != nil {
			b.logger.Warn().Err(err).Str("channel", channel).Msg("clusterbridge: publish mirror failed")
		}
	})
}

// LocalSink delivers a message received from another instance to this
// process's local broker.
type LocalSink interface {
	Publish(channel, message string) int
}

// SubscribeMirror subscribes to every cluster-bridged channel's NATS
// subject and replays inbound messages into the local broker via sink.
// Messages this instance itself mirrored out are naturally re-delivered
// by NATS; callers that care about de-duplicating self-published
// messages should tag payloads and filter in sink.
func (b *Bridge) SubscribeMirror(sink LocalSink) error {
	sub, err := b.conn.Subscribe(subjectPrefix+"*", func(msg *nats.Msg) {
		channel := msg.Subject[len(subjectPrefix):]
		sink.Publish(channel, string(msg.Data))
	})
	if err != nil {
		return fmt.Errorf("clusterbridge: subscribe: %w", err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// Close unsubscribes, stops the worker pool, and closes the NATS
// connection.
func (b *Bridge) Close() {
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.pool.Stop()
	b.conn.Close()
}
