// Package keyspace implements the TTL-aware key/value store that backs
// the command executor. It knows nothing about commands or the wire
// protocol — only about keys, values, and deadlines.
package keyspace

import (
	"regexp"
	"sync"
	"time"

	"github.com/adred-codev/kvengine/internal/valuetype"
)

// Persistent is the deadline sentinel for a key that has never had an
// expiration set: the zero time, rather than a separate variant, so a
// deadline-mutating operation's "prior deadline" return value
// round-trips through the same type.
var Persistent = time.Time{}

// Keyspace is three parallel maps keyed by the same string: values,
// deadlines, and last-access timestamps. All exported methods are safe
// for concurrent use, though in practice the executor is the only
// caller and already serializes access.
type Keyspace struct {
	mu         sync.Mutex
	values     map[string]valuetype.Value
	deadlines  map[string]time.Time
	lastAccess map[string]time.Time
	now        func() time.Time

	// OnExpire, if set, is invoked each time a lazy access purges an
	// expired key. Called with mu held, so it must be fast and must not
	// call back into the Keyspace. Lets callers observe expirations for
	// metrics without coupling this package to a metrics library.
	OnExpire func(key string)
}

// New creates an empty keyspace.
func New() *Keyspace {
	return &Keyspace{
		values:     make(map[string]valuetype.Value),
		deadlines:  make(map[string]time.Time),
		lastAccess: make(map[string]time.Time),
		now:        time.Now,
	}
}

// expiredLocked reports whether k's deadline (if any) has passed at t.
// Must be called with mu held.
func (ks *Keyspace) expiredLocked(k string, t time.Time) bool {
	dl, ok := ks.deadlines[k]
	if !ok || dl.Equal(Persistent) {
		return false
	}
	return !dl.After(t)
}

// purgeIfExpiredLocked removes k from all three maps if its deadline has
// passed. Returns true if it purged. Must be called with mu held.
func (ks *Keyspace) purgeIfExpiredLocked(k string, t time.Time) bool {
	if !ks.expiredLocked(k, t) {
		return false
	}
	delete(ks.values, k)
	delete(ks.deadlines, k)
	delete(ks.lastAccess, k)
	if ks.OnExpire != nil {
		ks.OnExpire(k)
	}
	return true
}

// Insert overwrites any prior binding for k, drops any prior deadline, and
// resets last-access to now.
func (ks *Keyspace) Insert(k string, v valuetype.Value) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.values[k] = v
	delete(ks.deadlines, k)
	ks.lastAccess[k] = ks.now()
}

// Get returns k's value and whether k is present. A passed deadline causes
// lazy removal before the read. On a successful read, last-access is
// updated to now.
func (ks *Keyspace) Get(k string) (valuetype.Value, bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	now := ks.now()
	if ks.purgeIfExpiredLocked(k, now) {
		return valuetype.Nil, false
	}
	v, ok := ks.values[k]
	if !ok {
		return valuetype.Nil, false
	}
	ks.lastAccess[k] = now
	return v, true
}

// Contains reports whether k is live, purging it first if its deadline
// has passed. Unlike Get, it does not update last-access.
func (ks *Keyspace) Contains(k string) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.purgeIfExpiredLocked(k, ks.now()) {
		return false
	}
	_, ok := ks.values[k]
	return ok
}

// Remove deletes k from all three maps and returns its prior value, if
// any existed (expired-but-not-yet-purged entries count as absent).
func (ks *Keyspace) Remove(k string) (valuetype.Value, bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.purgeIfExpiredLocked(k, ks.now()) {
		return valuetype.Nil, false
	}
	v, ok := ks.values[k]
	if !ok {
		return valuetype.Nil, false
	}
	delete(ks.values, k)
	delete(ks.deadlines, k)
	delete(ks.lastAccess, k)
	return v, true
}

// DeadlineResult reports the outcome of a deadline-mutating operation.
type DeadlineResult int

const (
	// DeadlineMissing means the key does not exist.
	DeadlineMissing DeadlineResult = iota
	// DeadlineWasPersistent means the key existed without a prior deadline.
	DeadlineWasPersistent
	// DeadlineHadValue means the key had a prior deadline, returned as the
	// second result.
	DeadlineHadValue
)

// SetDeadlineAbsolute sets k's deadline to at, if k is present. It reports
// the prior deadline state.
func (ks *Keyspace) SetDeadlineAbsolute(k string, at time.Time) (DeadlineResult, time.Time) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.purgeIfExpiredLocked(k, ks.now()) {
		return DeadlineMissing, time.Time{}
	}
	if _, ok := ks.values[k]; !ok {
		return DeadlineMissing, time.Time{}
	}
	prior, hadDeadline := ks.deadlines[k]
	ks.deadlines[k] = at
	if !hadDeadline || prior.Equal(Persistent) {
		return DeadlineWasPersistent, time.Time{}
	}
	return DeadlineHadValue, prior
}

// SetDeadlineRelative sets k's deadline to now+d, if k is present.
func (ks *Keyspace) SetDeadlineRelative(k string, d time.Duration) (DeadlineResult, time.Time) {
	return ks.SetDeadlineAbsolute(k, ks.now().Add(d))
}

// ClearDeadline removes k's deadline. If k has already expired, it is
// purged and absent is reported instead.
func (ks *Keyspace) ClearDeadline(k string) (DeadlineResult, time.Time) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.purgeIfExpiredLocked(k, ks.now()) {
		return DeadlineMissing, time.Time{}
	}
	if _, ok := ks.values[k]; !ok {
		return DeadlineMissing, time.Time{}
	}
	prior, hadDeadline := ks.deadlines[k]
	delete(ks.deadlines, k)
	if !hadDeadline || prior.Equal(Persistent) {
		return DeadlineWasPersistent, time.Time{}
	}
	return DeadlineHadValue, prior
}

// RemainingTTL reports how long until k expires. ok is false if k is
// missing. A zero duration with ok true means k is persistent.
func (ks *Keyspace) RemainingTTL(k string) (d time.Duration, persistent bool, ok bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	now := ks.now()
	if ks.purgeIfExpiredLocked(k, now) {
		return 0, false, false
	}
	if _, present := ks.values[k]; !present {
		return 0, false, false
	}
	dl, hasDeadline := ks.deadlines[k]
	if !hasDeadline || dl.Equal(Persistent) {
		return 0, true, true
	}
	remaining := dl.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, false, true
}

// Touch updates k's last-access to now if k is live, returning the
// elapsed duration since the previous last-access.
func (ks *Keyspace) Touch(k string) (time.Duration, bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	now := ks.now()
	if ks.purgeIfExpiredLocked(k, now) {
		return 0, false
	}
	if _, ok := ks.values[k]; !ok {
		return 0, false
	}
	prev, had := ks.lastAccess[k]
	ks.lastAccess[k] = now
	if !had {
		return 0, true
	}
	return now.Sub(prev), true
}

// KeysMatching enumerates every currently-stored key whose name matches
// pattern. No expiration filtering is performed: expired-but-not-yet-
// purged keys may surface, matching the lazy-expiration model.
func (ks *Keyspace) KeysMatching(pattern *regexp.Regexp) []string {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	out := make([]string, 0, len(ks.values))
	for k := range ks.values {
		if pattern.MatchString(k) {
			out = append(out, k)
		}
	}
	return out
}

// Size returns the number of entries in the value store, without sweeping
// expired keys first.
func (ks *Keyspace) Size() int {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return len(ks.values)
}

// Flush removes every key.
func (ks *Keyspace) Flush() {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.values = make(map[string]valuetype.Value)
	ks.deadlines = make(map[string]time.Time)
	ks.lastAccess = make(map[string]time.Time)
}

// Entry is a live key's full state, used by the snapshot codec.
type Entry struct {
	Key      string
	Value    valuetype.Value
	Deadline time.Time // Persistent (zero time) if none.
}

// Snapshot returns every currently-live entry (expired-but-not-yet-purged
// keys are excluded, since a snapshot must not persist dead state).
func (ks *Keyspace) Snapshot() []Entry {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	now := ks.now()
	out := make([]Entry, 0, len(ks.values))
	for k, v := range ks.values {
		if ks.expiredLocked(k, now) {
			continue
		}
		out = append(out, Entry{Key: k, Value: v.Clone(), Deadline: ks.deadlines[k]})
	}
	return out
}

// Restore replaces the entire keyspace contents with entries, matching
// the "replacement by a snapshot load" lifecycle event.
func (ks *Keyspace) Restore(entries []Entry) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.values = make(map[string]valuetype.Value, len(entries))
	ks.deadlines = make(map[string]time.Time, len(entries))
	ks.lastAccess = make(map[string]time.Time, len(entries))
	now := ks.now()
	for _, e := range entries {
		ks.values[e.Key] = e.Value
		if !e.Deadline.Equal(Persistent) {
			ks.deadlines[e.Key] = e.Deadline
		}
		ks.lastAccess[e.Key] = now
	}
}
