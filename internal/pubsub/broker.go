// Package pubsub implements the engine's channel-keyed publish/subscribe
// broker. Fan-out is best-effort: a failed sink is skipped and pruned
// rather than blocking delivery to the remaining subscribers.
package pubsub

import (
	"sort"

	"golang.org/x/time/rate"
)

// Message is the payload handed to a subscriber's Sink. Kind
// distinguishes a delivered publish ("message") from the subscribe
// confirmation frames and monitor lines ("monitor") the executor pushes
// directly onto a client's sink.
type Message struct {
	Kind    string // "message", "subscribe", or "monitor"
	Channel string
	Payload string // published message body, or the monitor line
	Count   int    // subscription count, for "subscribe" frames
}

// Sink is the opaque per-subscriber delivery handle. The network adapter
// owns the receive side; Send must never block the broker.
type Sink interface {
	Send(Message) error
}

type subscriber struct {
	clientID int64
	sink     Sink
}

// Broker holds the channel to ordered-subscriber-list mapping. It is
// not safe for concurrent use on its own; the executor's single-owner
// run loop is the only caller.
type Broker struct {
	channels map[string][]subscriber
	limiter  *rate.Limiter
}

// New returns an empty broker with publish fan-out unrestricted. Call
// SetPublishLimit to cap the sustained publish rate.
func New() *Broker {
	return &Broker{channels: make(map[string][]subscriber), limiter: rate.NewLimiter(rate.Inf, 0)}
}

// SetPublishLimit caps the broker's sustained publish rate (messages
// per second, with the given burst). The limit applies to the whole
// broker rather than per connection since Publish is always invoked
// from the single executor run loop.
func (b *Broker) SetPublishLimit(messagesPerSecond float64, burst int) {
	b.limiter = rate.NewLimiter(rate.Limit(messagesPerSecond), burst)
}

// Subscribe appends a sink for clientID on each channel and returns, for
// each channel in order, the confirmation count (the number of channels
// this client is now subscribed to, counting this one).
func (b *Broker) Subscribe(channels []string, clientID int64, sink Sink) []int {
	counts := make([]int, 0, len(channels))
	for _, ch := range channels {
		b.channels[ch] = append(b.channels[ch], subscriber{clientID: clientID, sink: sink})
		counts = append(counts, b.clientSubscriptionCount(clientID))
	}
	return counts
}

func (b *Broker) clientSubscriptionCount(clientID int64) int {
	n := 0
	for _, subs := range b.channels {
		for _, s := range subs {
			if s.clientID == clientID {
				n++
			}
		}
	}
	return n
}

// Unsubscribe removes clientID's sink from each named channel, or from
// every channel it is subscribed to when channels is empty.
func (b *Broker) Unsubscribe(channels []string, clientID int64) {
	if len(channels) == 0 {
		for ch := range b.channels {
			b.removeClientFromChannel(ch, clientID)
		}
		return
	}
	for _, ch := range channels {
		b.removeClientFromChannel(ch, clientID)
	}
}

func (b *Broker) removeClientFromChannel(channel string, clientID int64) {
	subs, ok := b.channels[channel]
	if !ok {
		return
	}
	kept := subs[:0]
	for _, s := range subs {
		if s.clientID != clientID {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(b.channels, channel)
		return
	}
	b.channels[channel] = kept
}

// RemoveClient drops every sink belonging to clientID, used on
// disconnect.
func (b *Broker) RemoveClient(clientID int64) {
	b.Unsubscribe(nil, clientID)
}

// Publish delivers message to every sink subscribed to channel and
// returns the number of sinks it was delivered to. A failed send does
// not block delivery to the remaining subscribers; sinks that error
// are pruned from the channel rather than retried. When the limit set by
// SetPublishLimit is exceeded, nothing is delivered and 0 is returned.
func (b *Broker) Publish(channel, message string) int {
	subs, ok := b.channels[channel]
	if !ok || len(subs) == 0 {
		return 0
	}
	if !b.limiter.Allow() {
		return 0
	}

	delivered := 0
	kept := subs[:0]
	for _, s := range subs {
		if err := s.sink.Send(Message{Kind: "message", Channel: channel, Payload: message}); err != nil {
			continue // drop the sink; delivery is best-effort
		}
		kept = append(kept, s)
		delivered++
	}
	if len(kept) == 0 {
		delete(b.channels, channel)
	} else {
		b.channels[channel] = kept
	}
	return delivered
}

// Channels returns the names of channels with at least one subscriber.
// When pattern is non-empty it filters by exact match, not glob.
func (b *Broker) Channels(pattern string) []string {
	out := make([]string, 0, len(b.channels))
	for ch, subs := range b.channels {
		if len(subs) == 0 {
			continue
		}
		if pattern != "" && ch != pattern {
			continue
		}
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// NumSub returns the subscriber count for each requested channel, paired
// with its name.
func (b *Broker) NumSub(channels []string) []ChannelCount {
	out := make([]ChannelCount, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ChannelCount{Channel: ch, Count: len(b.channels[ch])})
	}
	return out
}

// ChannelCount pairs a channel name with its subscriber count, used to
// build the interleaved numsub response.
type ChannelCount struct {
	Channel string
	Count   int
}
