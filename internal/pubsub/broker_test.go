package pubsub

import "testing"

type recordingSink struct {
	received []Message
	fail     bool
}

func (s *recordingSink) Send(m Message) error {
	if s.fail {
		return errSendFailed
	}
	s.received = append(s.received, m)
	return nil
}

var errSendFailed = errSend{}

type errSend struct{}

func (errSend) Error() string { return "send failed" }

func TestSubscribeConfirmationCounts(t *testing.T) {
	b := New()
	sink := &recordingSink{}

	counts := b.Subscribe([]string{"a", "b"}, 1, sink)
	if len(counts) != 2 || counts[0] != 1 || counts[1] != 2 {
		t.Fatalf("counts = %v, want [1 2]", counts)
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	b := New()
	sink := &recordingSink{}
	b.Subscribe([]string{"ch"}, 1, sink)

	if n := b.Publish("ch", "first"); n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	if n := b.Publish("ch", "second"); n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}

	if len(sink.received) != 2 || sink.received[0].Payload != "first" || sink.received[1].Payload != "second" {
		t.Fatalf("got %+v", sink.received)
	}
}

func TestPublishNoSubscribersReturnsZero(t *testing.T) {
	b := New()
	if n := b.Publish("nobody", "m"); n != 0 {
		t.Fatalf("delivered = %d, want 0", n)
	}
}

func TestPublishFanOutToMultipleSinks(t *testing.T) {
	b := New()
	a, bb := &recordingSink{}, &recordingSink{}
	b.Subscribe([]string{"ch"}, 1, a)
	b.Subscribe([]string{"ch"}, 2, bb)

	if n := b.Publish("ch", "hi"); n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}
	if len(a.received) != 1 || len(bb.received) != 1 {
		t.Fatalf("expected both sinks to receive the message")
	}
}

func TestPublishPrunesFailedSink(t *testing.T) {
	b := New()
	good := &recordingSink{}
	bad := &recordingSink{fail: true}
	b.Subscribe([]string{"ch"}, 1, bad)
	b.Subscribe([]string{"ch"}, 2, good)

	if n := b.Publish("ch", "m1"); n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	// bad sink should now be pruned; a second publish delivers only to good.
	if n := b.Publish("ch", "m2"); n != 1 {
		t.Fatalf("delivered = %d, want 1 after pruning", n)
	}
	if len(good.received) != 2 {
		t.Fatalf("good sink should have received both messages, got %+v", good.received)
	}
}

func TestUnsubscribeSpecificChannel(t *testing.T) {
	b := New()
	sink := &recordingSink{}
	b.Subscribe([]string{"a", "b"}, 1, sink)

	b.Unsubscribe([]string{"a"}, 1)

	if n := b.Publish("a", "m"); n != 0 {
		t.Fatalf("expected no subscribers on a after unsubscribe, delivered %d", n)
	}
	if n := b.Publish("b", "m"); n != 1 {
		t.Fatalf("expected b subscription intact, delivered %d", n)
	}
}

func TestUnsubscribeAllChannels(t *testing.T) {
	b := New()
	sink := &recordingSink{}
	b.Subscribe([]string{"a", "b"}, 1, sink)

	b.Unsubscribe(nil, 1)

	if n := b.Publish("a", "m"); n != 0 {
		t.Fatalf("expected all subscriptions cleared, delivered %d on a", n)
	}
	if n := b.Publish("b", "m"); n != 0 {
		t.Fatalf("expected all subscriptions cleared, delivered %d on b", n)
	}
}

func TestRemoveClientOnDisconnect(t *testing.T) {
	b := New()
	sink := &recordingSink{}
	b.Subscribe([]string{"a"}, 1, sink)

	b.RemoveClient(1)

	if n := b.Publish("a", "m"); n != 0 {
		t.Fatalf("expected sink removed, delivered %d", n)
	}
}

func TestChannelsListsOnlyNonEmpty(t *testing.T) {
	b := New()
	sink := &recordingSink{}
	b.Subscribe([]string{"a", "b"}, 1, sink)
	b.Unsubscribe([]string{"b"}, 1)

	chans := b.Channels("")
	if len(chans) != 1 || chans[0] != "a" {
		t.Fatalf("got %v, want [a]", chans)
	}
}

func TestChannelsExactMatchPattern(t *testing.T) {
	b := New()
	sink := &recordingSink{}
	b.Subscribe([]string{"a", "ab"}, 1, sink)

	chans := b.Channels("a")
	if len(chans) != 1 || chans[0] != "a" {
		t.Fatalf("got %v, want [a] (exact match only)", chans)
	}
}

func TestNumSubInterleaved(t *testing.T) {
	b := New()
	sink := &recordingSink{}
	b.Subscribe([]string{"a"}, 1, sink)
	b.Subscribe([]string{"a"}, 2, sink)

	counts := b.NumSub([]string{"a", "missing"})
	if len(counts) != 2 || counts[0].Channel != "a" || counts[0].Count != 2 || counts[1].Count != 0 {
		t.Fatalf("got %+v", counts)
	}
}

func TestPublishLimitDropsOverBurst(t *testing.T) {
	b := New()
	b.SetPublishLimit(1, 1)
	sink := &recordingSink{}
	b.Subscribe([]string{"a"}, 1, sink)

	first := b.Publish("a", "one")
	second := b.Publish("a", "two")

	if first != 1 {
		t.Fatalf("first publish delivered = %d, want 1", first)
	}
	if second != 0 {
		t.Fatalf("second publish delivered = %d, want 0 (rate limited)", second)
	}
}

func TestDefaultPublishLimitUnrestricted(t *testing.T) {
	b := New()
	sink := &recordingSink{}
	b.Subscribe([]string{"a"}, 1, sink)

	for i := 0; i < 50; i++ {
		if n := b.Publish("a", "x"); n != 1 {
			t.Fatalf("publish %d delivered = %d, want 1", i, n)
		}
	}
}
