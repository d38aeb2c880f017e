package keyspace

import (
	"regexp"
	"testing"
	"time"

	"github.com/adred-codev/kvengine/internal/valuetype"
)

func withClock(ks *Keyspace, t *time.Time) {
	ks.now = func() time.Time { return *t }
}

func TestInsertAndGet(t *testing.T) {
	ks := New()
	ks.Insert("foo", valuetype.NewString("bar"))

	v, ok := ks.Get("foo")
	if !ok || v.Str != "bar" {
		t.Fatalf("Get(foo) = %v, %v; want bar, true", v, ok)
	}

	_, persistent, ok := ks.RemainingTTL("foo")
	if !ok || !persistent {
		t.Fatalf("fresh key should be persistent")
	}
}

func TestExpirationOnAccess(t *testing.T) {
	now := time.Unix(1000, 0)
	ks := New()
	withClock(ks, &now)

	ks.Insert("k", valuetype.NewString("v"))
	ks.SetDeadlineAbsolute("k", now.Add(1*time.Second))

	now = now.Add(2 * time.Second)
	if _, ok := ks.Get("k"); ok {
		t.Fatalf("expected k to be expired")
	}
	if ks.Contains("k") {
		t.Fatalf("expected k removed after lazy expiration")
	}
}

func TestDeadlineEqualsNowIsExpired(t *testing.T) {
	now := time.Unix(2000, 0)
	ks := New()
	withClock(ks, &now)

	ks.Insert("k", valuetype.NewString("v"))
	ks.SetDeadlineAbsolute("k", now)

	if _, ok := ks.Get("k"); ok {
		t.Fatalf("deadline == now must be treated as expired")
	}
}

func TestSetDeadlinePriorSentinel(t *testing.T) {
	ks := New()
	ks.Insert("k", valuetype.NewString("v"))

	result, _ := ks.SetDeadlineRelative("k", time.Hour)
	if result != DeadlineWasPersistent {
		t.Fatalf("first deadline set should report DeadlineWasPersistent, got %v", result)
	}

	result2, prior := ks.SetDeadlineRelative("k", 2*time.Hour)
	if result2 != DeadlineHadValue {
		t.Fatalf("second deadline set should report DeadlineHadValue, got %v", result2)
	}
	if prior.IsZero() {
		t.Fatalf("expected a concrete prior deadline")
	}
}

func TestClearDeadline(t *testing.T) {
	ks := New()
	ks.Insert("k", valuetype.NewString("v"))
	if res, _ := ks.ClearDeadline("k"); res != DeadlineWasPersistent {
		t.Fatalf("clearing a persistent key's deadline should report DeadlineWasPersistent")
	}

	ks.SetDeadlineRelative("k", time.Hour)
	res, prior := ks.ClearDeadline("k")
	if res != DeadlineHadValue || prior.IsZero() {
		t.Fatalf("clearing a TTL'd key should return the prior deadline")
	}

	_, persistent, ok := ks.RemainingTTL("k")
	if !ok || !persistent {
		t.Fatalf("key should be persistent after ClearDeadline")
	}
}

func TestWriteClearsDeadline(t *testing.T) {
	ks := New()
	ks.Insert("k", valuetype.NewString("v"))
	ks.SetDeadlineRelative("k", time.Hour)
	ks.Insert("k", valuetype.NewString("v2"))

	_, persistent, ok := ks.RemainingTTL("k")
	if !ok || !persistent {
		t.Fatalf("re-insert must clear prior deadline")
	}
}

func TestRemoveReturnsCountSemantics(t *testing.T) {
	ks := New()
	ks.Insert("k", valuetype.NewString("v"))

	if _, ok := ks.Remove("k"); !ok {
		t.Fatalf("first remove should report present")
	}
	if _, ok := ks.Remove("k"); ok {
		t.Fatalf("second remove should report absent")
	}
}

func TestTouchElapsed(t *testing.T) {
	now := time.Unix(5000, 0)
	ks := New()
	withClock(ks, &now)
	ks.Insert("k", valuetype.NewString("v"))

	now = now.Add(3 * time.Second)
	elapsed, ok := ks.Touch("k")
	if !ok {
		t.Fatalf("touch should report present")
	}
	if elapsed != 3*time.Second {
		t.Fatalf("elapsed = %v, want 3s", elapsed)
	}
}

func TestKeysMatchingIgnoresExpirationSweep(t *testing.T) {
	now := time.Unix(100, 0)
	ks := New()
	withClock(ks, &now)
	ks.Insert("alpha", valuetype.NewString("1"))
	ks.Insert("beta", valuetype.NewString("2"))
	ks.SetDeadlineAbsolute("alpha", now.Add(time.Second))
	now = now.Add(2 * time.Second) // alpha now expired but not yet purged

	re := regexp.MustCompile(".*")
	keys := ks.KeysMatching(re)
	if len(keys) != 2 {
		t.Fatalf("keys_matching must not sweep expired entries, got %v", keys)
	}
	if ks.Size() != 2 {
		t.Fatalf("size must not sweep expired entries either, got %d", ks.Size())
	}
}

func TestSnapshotExcludesExpired(t *testing.T) {
	now := time.Unix(9000, 0)
	ks := New()
	withClock(ks, &now)
	ks.Insert("live", valuetype.NewString("v"))
	ks.Insert("dead", valuetype.NewString("v"))
	ks.SetDeadlineAbsolute("dead", now.Add(-time.Second))

	entries := ks.Snapshot()
	if len(entries) != 1 || entries[0].Key != "live" {
		t.Fatalf("snapshot should exclude expired entries, got %+v", entries)
	}
}

func TestRestoreReplacesKeyspace(t *testing.T) {
	ks := New()
	ks.Insert("old", valuetype.NewString("v"))

	ks.Restore([]Entry{{Key: "new", Value: valuetype.NewString("w"), Deadline: Persistent}})

	if ks.Contains("old") {
		t.Fatalf("restore should drop prior keys")
	}
	if !ks.Contains("new") {
		t.Fatalf("restore should install new keys")
	}
}
