// Package executor is the engine's dispatch surface: it owns the
// keyspace and the pub/sub broker, mutates them on behalf of validated
// commands, and renders each command's effect as a Response. Every
// command funnels through a single run-loop goroutine draining a
// buffered request channel, so multi-key operations (getset, copy,
// rename) are atomic without any finer-grained locking.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adred-codev/kvengine/internal/command"
	"github.com/adred-codev/kvengine/internal/keyspace"
	"github.com/adred-codev/kvengine/internal/metrics"
	"github.com/adred-codev/kvengine/internal/platform"
	"github.com/adred-codev/kvengine/internal/pubsub"
	"github.com/adred-codev/kvengine/internal/snapshot"
	"github.com/adred-codev/kvengine/internal/valuetype"
)

const (
	errWrongType    = "WRONGTYPE Operation against a key holding the wrong kind of value"
	errWrongTypeSet = "WRONGTYPE A hashset data type expected"
	errNoSuchKey    = "ERR no such key"
	errKeyMissing   = "The key doesn't exist"
)

// Kind discriminates a Response's payload.
type Kind int

const (
	Normal Kind = iota
	Stream
	ErrorResponse
)

// Response is the executor's dispatch result: an immediate value, an
// open-ended stream (monitor, subscribe), or an error.
type Response struct {
	Kind   Kind
	Value  valuetype.Value
	Stream *ChanSink
	Err    string
}

func normal(v valuetype.Value) Response  { return Response{Kind: Normal, Value: v} }
func strResp(s string) Response          { return normal(valuetype.NewString(s)) }
func listResp(xs []string) Response      { return normal(valuetype.NewList(xs)) }
func setResp(xs []string) Response       { return normal(valuetype.NewSet(xs)) }
func nilResp() Response                  { return normal(valuetype.Nil) }
func errResp(msg string) Response        { return Response{Kind: ErrorResponse, Err: msg} }
func streamResp(sink *ChanSink) Response { return Response{Kind: Stream, Stream: sink} }

type request struct {
	cmd   command.Command
	reply chan Response
}

// Executor is the engine's single-owner mutator: the keyspace, the
// broker, and the monitor/subscriber sink registries are touched only
// from the goroutine running Run.
type Executor struct {
	ks     *keyspace.Keyspace
	broker *pubsub.Broker

	monitors    map[int64]*ChanSink
	subscribers map[int64]*ChanSink
	clients     map[int64]struct{}
	configVals  map[string]string

	startTime  time.Time
	configPath string
	logger     zerolog.Logger

	requests chan request
	mirrorIn chan mirrorMessage

	// Mirror, if set, is called after every local publish with the
	// channel and message, letting internal/clusterbridge forward it
	// onto NATS without the broker depending on clusterbridge.
	Mirror func(channel, message string)
}

// New creates an executor with an empty keyspace and broker. configPath
// is surfaced by the info command; it is not read here.
func New(logger zerolog.Logger, configPath string) *Executor {
	ks := keyspace.New()
	ks.OnExpire = func(string) { metrics.ExpirationsTotal.Inc() }
	return &Executor{
		ks:          ks,
		broker:      pubsub.New(),
		monitors:    make(map[int64]*ChanSink),
		subscribers: make(map[int64]*ChanSink),
		clients:     make(map[int64]struct{}),
		configVals:  make(map[string]string),
		startTime:   time.Now(),
		configPath:  configPath,
		logger:      logger,
		requests:    make(chan request, 256),
		mirrorIn:    make(chan mirrorMessage, 256),
	}
}

// Run drains the request queue until ctx is cancelled. It must run in
// its own goroutine; Execute is the only safe way to reach the executor
// from any other goroutine.
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.requests:
			resp := e.dispatch(req.cmd)
			if resp.Kind == ErrorResponse {
				e.logger.Error().
					Str("command", req.cmd.Kind.String()).
					Int64("client_id", req.cmd.ClientID).
					Msg(resp.Err)
			}
			req.reply <- resp
		case m := <-e.mirrorIn:
			e.broker.Publish(m.channel, m.message)
		}
	}
}

// Execute submits cmd to the run loop and blocks for its Response.
func (e *Executor) Execute(cmd command.Command) Response {
	reply := make(chan Response, 1)
	e.requests <- request{cmd: cmd, reply: reply}
	return <-reply
}

type mirrorMessage struct {
	channel string
	message string
}

// Publish delivers a message received from another cluster member to
// this process's local subscribers only, without re-mirroring it back
// out onto NATS. internal/clusterbridge calls this for inbound frames;
// it satisfies clusterbridge.LocalSink. Delivery happens asynchronously
// on the run loop, so the subscriber count is not available to return
// here; callers that need it should use Execute with command.Publish
// instead.
func (e *Executor) Publish(channel, message string) int {
	e.mirrorIn <- mirrorMessage{channel: channel, message: message}
	return 0
}

func (e *Executor) write(key string, v valuetype.Value) {
	e.ks.Insert(key, v)
}

func (e *Executor) dispatch(cmd command.Command) Response {
	e.notifyMonitors(cmd)

	switch cmd.Kind {
	case command.Ping:
		return strResp("PONG")
	case command.DBSize:
		n := e.ks.Size()
		metrics.KeysTotal.Set(float64(n))
		return strResp(strconv.Itoa(n))
	case command.FlushDB:
		e.ks.Flush()
		return strResp("OK")
	case command.Info:
		return e.info(cmd.Param)
	case command.Monitor:
		sink := NewChanSink(256)
		e.monitors[cmd.ClientID] = sink
		return streamResp(sink)

	case command.Store:
		return e.store(cmd.Path)
	case command.Load:
		return e.load(cmd.Path)

	case command.Copy:
		return e.copyKey(cmd.Key, cmd.Key2)
	case command.Del:
		return e.del(cmd.Keys)
	case command.Exists:
		return e.exists(cmd.Keys)
	case command.Rename:
		return e.rename(cmd.Key, cmd.Key2)
	case command.Expire:
		return e.expireRelative(cmd.Key, time.Duration(cmd.Int)*time.Second)
	case command.ExpireAt:
		return e.expireAbsolute(cmd.Key, time.Unix(cmd.Int, 0))
	case command.Persist:
		return e.persist(cmd.Key)
	case command.Touch:
		return e.touch(cmd.Keys)
	case command.TTL:
		return e.ttl(cmd.Key)
	case command.Type:
		return e.typeOf(cmd.Key)
	case command.Keys:
		return e.keysMatching(cmd.Pattern)

	case command.Get:
		return e.get(cmd.Key)
	case command.Set:
		e.write(cmd.Key, valuetype.NewString(cmd.Value))
		return strResp("Ok")
	case command.GetSet:
		return e.getSet(cmd.Key, cmd.Value)
	case command.GetDel:
		return e.getDel(cmd.Key)
	case command.IncrBy:
		return e.incrDecr(cmd.Key, cmd.Int)
	case command.DecrBy:
		return e.incrDecr(cmd.Key, -cmd.Int)
	case command.Append:
		return e.appendStr(cmd.Key, cmd.Value)
	case command.MGet:
		return e.mget(cmd.Keys)
	case command.MSet:
		for _, p := range cmd.Pairs {
			e.write(p.Key, valuetype.NewString(p.Value))
		}
		return strResp("Ok")
	case command.StrLen:
		return e.strlen(cmd.Key)

	case command.LIndex:
		return e.lindex(cmd.Key, cmd.Index)
	case command.LLen:
		return e.llen(cmd.Key)
	case command.LPush:
		return e.push(cmd.Key, cmd.Values, true, false)
	case command.LPushX:
		return e.push(cmd.Key, cmd.Values, true, true)
	case command.RPush:
		return e.push(cmd.Key, cmd.Values, false, false)
	case command.RPushX:
		return e.push(cmd.Key, cmd.Values, false, true)
	case command.LPop:
		return e.pop(cmd.Key, cmd.Count, true)
	case command.RPop:
		return e.pop(cmd.Key, cmd.Count, false)
	case command.LRange:
		return e.lrange(cmd.Key, cmd.Index, cmd.Count)
	case command.LRem:
		return e.lrem(cmd.Key, cmd.Count, cmd.Value)
	case command.LSet:
		return e.lset(cmd.Key, cmd.Index, cmd.Value)

	case command.SAdd:
		return e.sadd(cmd.Key, cmd.Members)
	case command.SCard:
		return e.scard(cmd.Key)
	case command.SIsMember:
		return e.sismember(cmd.Key, cmd.Value)
	case command.SMembers:
		return e.smembers(cmd.Key)
	case command.SRem:
		return e.srem(cmd.Key, cmd.Members)

	case command.Subscribe:
		return e.subscribe(cmd.Channels, cmd.ClientID)
	case command.Unsubscribe:
		e.broker.Unsubscribe(cmd.Channels, cmd.ClientID)
		return nilResp()
	case command.Publish:
		n := e.broker.Publish(cmd.Channel, cmd.Message)
		if n > 0 {
			metrics.PubSubMessagesTotal.Inc()
		}
		if e.Mirror != nil {
			e.Mirror(cmd.Channel, cmd.Message)
		}
		return strResp(strconv.Itoa(n))
	case command.PubSubChannels:
		return listResp(e.broker.Channels(cmd.Pattern))
	case command.PubSubNumSub:
		return e.numsub(cmd.Channels)

	case command.AddClient:
		e.clients[cmd.ClientID] = struct{}{}
		return strResp("Ok")
	case command.RemoveClient:
		e.removeClient(cmd.ClientID)
		return strResp("Ok")
	case command.ConfigGet:
		if v, ok := e.configVals[cmd.Param]; ok {
			return strResp(v)
		}
		return nilResp()
	case command.ConfigSet:
		e.configVals[cmd.Param] = cmd.Value
		return strResp("Ok")

	default:
		return errResp("Command not valid")
	}
}

// notifyMonitors fans a single-line rendering of cmd out to every
// registered monitor sink before dispatch observes or produces any
// side effect, giving monitor subscribers a causal view.
func (e *Executor) notifyMonitors(cmd command.Command) {
	if len(e.monitors) == 0 {
		return
	}
	line := renderCommand(cmd)
	for id, sink := range e.monitors {
		if err := sink.Send(pubsub.Message{Kind: "monitor", Payload: line}); err != nil {
			sink.Close()
			delete(e.monitors, id)
		}
	}
}

// renderCommand produces the line fanned out to monitor sinks: unix
// timestamp, issuing client, then the command name and its arguments.
func renderCommand(cmd command.Command) string {
	return fmt.Sprintf("%d [%d] %s", time.Now().Unix(), cmd.ClientID, strings.Join(commandTokens(cmd), " "))
}

func commandTokens(cmd command.Command) []string {
	tokens := []string{strings.ToUpper(cmd.Kind.String())}
	switch cmd.Kind {
	case command.Get, command.GetDel, command.Persist, command.TTL, command.Type,
		command.StrLen, command.LLen, command.SCard, command.SMembers:
		tokens = append(tokens, cmd.Key)
	case command.Set, command.GetSet, command.Append, command.SIsMember:
		tokens = append(tokens, cmd.Key, cmd.Value)
	case command.IncrBy, command.DecrBy, command.Expire, command.ExpireAt:
		tokens = append(tokens, cmd.Key, strconv.FormatInt(cmd.Int, 10))
	case command.Del, command.Exists, command.Touch, command.MGet:
		tokens = append(tokens, cmd.Keys...)
	case command.MSet:
		for _, p := range cmd.Pairs {
			tokens = append(tokens, p.Key, p.Value)
		}
	case command.Copy, command.Rename:
		tokens = append(tokens, cmd.Key, cmd.Key2)
	case command.Keys:
		tokens = append(tokens, cmd.Pattern)
	case command.LIndex:
		tokens = append(tokens, cmd.Key, strconv.FormatInt(cmd.Index, 10))
	case command.LSet:
		tokens = append(tokens, cmd.Key, strconv.FormatInt(cmd.Index, 10), cmd.Value)
	case command.LRange:
		tokens = append(tokens, cmd.Key, strconv.FormatInt(cmd.Index, 10), strconv.FormatInt(cmd.Count, 10))
	case command.LRem:
		tokens = append(tokens, cmd.Key, strconv.FormatInt(cmd.Count, 10), cmd.Value)
	case command.LPop, command.RPop:
		tokens = append(tokens, cmd.Key, strconv.FormatInt(cmd.Count, 10))
	case command.LPush, command.LPushX, command.RPush, command.RPushX:
		tokens = append(append(tokens, cmd.Key), cmd.Values...)
	case command.SAdd, command.SRem:
		tokens = append(append(tokens, cmd.Key), cmd.Members...)
	case command.Subscribe, command.Unsubscribe, command.PubSubNumSub:
		tokens = append(tokens, cmd.Channels...)
	case command.Publish:
		tokens = append(tokens, cmd.Channel, cmd.Message)
	case command.PubSubChannels:
		if cmd.Pattern != "" {
			tokens = append(tokens, cmd.Pattern)
		}
	case command.Info, command.ConfigGet:
		if cmd.Param != "" {
			tokens = append(tokens, cmd.Param)
		}
	case command.ConfigSet:
		tokens = append(tokens, cmd.Param, cmd.Value)
	case command.Store, command.Load:
		tokens = append(tokens, cmd.Path)
	}
	return tokens
}

func (e *Executor) removeClient(clientID int64) {
	delete(e.clients, clientID)
	e.broker.RemoveClient(clientID)
	if sink, ok := e.monitors[clientID]; ok {
		sink.Close()
		delete(e.monitors, clientID)
	}
	if sink, ok := e.subscribers[clientID]; ok {
		sink.Close()
		delete(e.subscribers, clientID)
		metrics.PubSubSubscribersActive.Set(float64(len(e.subscribers)))
	}
}

func (e *Executor) info(param string) Response {
	fields := map[string]string{
		"process_id":        strconv.Itoa(os.Getpid()),
		"connected_clients": strconv.Itoa(len(e.clients)),
		"uptime_seconds":    strconv.FormatInt(int64(time.Since(e.startTime).Seconds()), 10),
		"config_file":       e.configPath,
		"memory_limit_bytes": func() string {
			if n := platform.MemoryLimit(); n > 0 {
				return strconv.FormatInt(n, 10)
			}
			return "Not Implemented"
		}(),
		"memory_rss_bytes": func() string {
			if stats, err := platform.Stats(e.startTime); err == nil {
				return strconv.FormatUint(stats.RSSBytes, 10)
			}
			return "Not Implemented"
		}(),
		"port":        "Not Implemented",
		"server_time": "Not Implemented",
	}
	if e.configPath == "" {
		fields["config_file"] = "Not Implemented"
	}

	if param != "" {
		if v, ok := fields[param]; ok {
			return strResp(v)
		}
		return errResp("Not Implemented")
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	var buf bytes.Buffer
	for _, name := range names {
		fmt.Fprintf(&buf, "%s:%s\r\n", name, fields[name])
	}
	return strResp(buf.String())
}

func (e *Executor) store(path string) Response {
	entries := e.ks.Snapshot()
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, entries); err != nil {
		return errResp(err.Error())
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errResp(err.Error())
	}
	metrics.SnapshotWritesTotal.Inc()
	metrics.SnapshotBytes.Observe(float64(buf.Len()))
	return strResp("Ok")
}

func (e *Executor) load(path string) Response {
	data, err := os.ReadFile(path)
	if err != nil {
		return errResp(err.Error())
	}
	entries, err := snapshot.Decode(bytes.NewReader(data))
	if err != nil {
		// Atomicity: the existing keyspace is left untouched on decode error.
		return errResp(err.Error())
	}
	e.ks.Restore(entries)
	metrics.SnapshotLoadsTotal.Inc()
	return strResp("Ok")
}

func (e *Executor) copyKey(src, dst string) Response {
	if e.ks.Contains(dst) || !e.ks.Contains(src) {
		return strResp("0")
	}
	v, ok := e.ks.Get(src)
	if !ok {
		return strResp("0")
	}
	e.write(dst, v.Clone())
	return strResp("1")
}

func (e *Executor) del(keys []string) Response {
	n := 0
	for _, k := range keys {
		if _, ok := e.ks.Remove(k); ok {
			n++
		}
	}
	return strResp(strconv.Itoa(n))
}

func (e *Executor) exists(keys []string) Response {
	n := 0
	for _, k := range keys {
		if e.ks.Contains(k) {
			n++
		}
	}
	return strResp(strconv.Itoa(n))
}

func (e *Executor) rename(src, dst string) Response {
	v, ok := e.ks.Remove(src)
	if !ok {
		return errResp(errNoSuchKey)
	}
	// Insert always clears any deadline, so rename does not carry src's
	// deadline to dst.
	e.write(dst, v)
	return strResp("Ok")
}

func (e *Executor) expireRelative(key string, d time.Duration) Response {
	res, _ := e.ks.SetDeadlineRelative(key, d)
	if res == keyspace.DeadlineMissing {
		return strResp("0")
	}
	return strResp("1")
}

func (e *Executor) expireAbsolute(key string, at time.Time) Response {
	res, _ := e.ks.SetDeadlineAbsolute(key, at)
	if res == keyspace.DeadlineMissing {
		return strResp("0")
	}
	return strResp("1")
}

func (e *Executor) persist(key string) Response {
	res, _ := e.ks.ClearDeadline(key)
	if res == keyspace.DeadlineHadValue {
		return strResp("1")
	}
	return strResp("0")
}

func (e *Executor) touch(keys []string) Response {
	n := 0
	for _, k := range keys {
		if _, ok := e.ks.Touch(k); ok {
			n++
		}
	}
	return strResp(strconv.Itoa(n))
}

func (e *Executor) ttl(key string) Response {
	d, persistent, ok := e.ks.RemainingTTL(key)
	if !ok {
		return strResp("-2")
	}
	if persistent {
		return strResp("-1")
	}
	return strResp(strconv.FormatInt(int64(d/time.Second), 10))
}

func (e *Executor) typeOf(key string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return strResp("none")
	}
	return strResp(v.Kind.String())
}

func (e *Executor) keysMatching(pattern string) Response {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errResp("ERR " + err.Error())
	}
	keys := e.ks.KeysMatching(re)
	sort.Strings(keys)
	return listResp(keys)
}

func (e *Executor) get(key string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return nilResp()
	}
	if v.Kind != valuetype.KindString {
		return errResp(errWrongType)
	}
	return strResp(v.Str)
}

func (e *Executor) getSet(key, value string) Response {
	prior, ok := e.ks.Get(key)
	if ok && prior.Kind != valuetype.KindString {
		return errResp(errWrongType)
	}
	e.write(key, valuetype.NewString(value))
	if !ok {
		return nilResp()
	}
	return strResp(prior.Str)
}

func (e *Executor) getDel(key string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return nilResp()
	}
	e.ks.Remove(key)
	return normal(v)
}

func (e *Executor) incrDecr(key string, delta int64) Response {
	var cur int64
	v, ok := e.ks.Get(key)
	if ok {
		if v.Kind != valuetype.KindString {
			return errResp(errWrongType)
		}
		n, err := strconv.ParseInt(v.Str, 10, 64)
		if err != nil {
			return errResp("ERR value is not an integer or out of range")
		}
		cur = n
	}
	cur += delta
	e.write(key, valuetype.NewString(strconv.FormatInt(cur, 10)))
	return strResp(strconv.FormatInt(cur, 10))
}

func (e *Executor) appendStr(key, s string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		e.write(key, valuetype.NewString(s))
		return strResp("Ok")
	}
	if v.Kind != valuetype.KindString {
		return errResp(errWrongType)
	}
	e.write(key, valuetype.NewString(v.Str+s))
	return strResp("Ok")
}

func (e *Executor) mget(keys []string) Response {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := e.ks.Get(k)
		if !ok || v.Kind != valuetype.KindString {
			out = append(out, "(nil)")
			continue
		}
		out = append(out, v.Str)
	}
	return listResp(out)
}

func (e *Executor) strlen(key string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return strResp("0")
	}
	if v.Kind != valuetype.KindString {
		return errResp(errWrongType)
	}
	return strResp(strconv.Itoa(len(v.Str)))
}

// push implements lpush/rpush/lpushx/rpushx. head selects prepend vs
// append; xOnly restricts the operation to keys that already hold a
// list. lpushx on a missing key creates an empty list and returns "0"
// rather than no-op'ing; rpushx leaves the key absent.
func (e *Executor) push(key string, values []string, head, xOnly bool) Response {
	v, ok := e.ks.Get(key)
	var list []string
	if ok {
		if v.Kind != valuetype.KindList {
			return errResp(errWrongType)
		}
		list = append([]string{}, v.List...)
	} else if xOnly {
		if head {
			e.write(key, valuetype.NewList([]string{}))
		}
		return strResp("0")
	}

	for _, val := range values {
		if head {
			list = append([]string{val}, list...)
		} else {
			list = append(list, val)
		}
	}
	e.write(key, valuetype.NewList(list))
	return strResp(strconv.Itoa(len(list)))
}

// pop implements lpop/rpop. count==0 covers both a missing count
// argument and an explicit zero, both meaning "pop exactly one,
// returned as a string". count>=1 pops up to that many elements and
// always returns a list, even when exactly one element is popped.
func (e *Executor) pop(key string, count int64, head bool) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return nilResp()
	}
	if v.Kind != valuetype.KindList {
		return errResp(errWrongType)
	}
	list := v.List

	if count == 0 {
		if len(list) == 0 {
			return nilResp()
		}
		var elem string
		var rest []string
		if head {
			elem, rest = list[0], list[1:]
		} else {
			elem, rest = list[len(list)-1], list[:len(list)-1]
		}
		e.write(key, valuetype.NewList(rest))
		return strResp(elem)
	}

	n := int(count)
	if n > len(list) {
		n = len(list)
	}
	var popped, rest []string
	if head {
		popped = append([]string{}, list[:n]...)
		rest = list[n:]
	} else {
		popped = make([]string, n)
		for i := 0; i < n; i++ {
			popped[i] = list[len(list)-1-i]
		}
		rest = list[:len(list)-n]
	}
	e.write(key, valuetype.NewList(rest))
	return listResp(popped)
}

func (e *Executor) lrange(key string, start, stop int64) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return listResp(nil)
	}
	if v.Kind != valuetype.KindList {
		return errResp(errWrongType)
	}
	lo, hi := normalizeRange(start, stop, len(v.List))
	if lo >= hi {
		return listResp(nil)
	}
	return listResp(append([]string{}, v.List[lo:hi]...))
}

// normalizeRange converts Redis-style (possibly negative, inclusive)
// start/stop indices into a clamped [lo, hi) slice range.
func normalizeRange(start, stop int64, length int) (int, int) {
	n := int64(length)
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n || stop < 0 {
		return 0, 0
	}
	return int(start), int(stop) + 1
}

func (e *Executor) lrem(key string, count int64, element string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return strResp("0")
	}
	if v.Kind != valuetype.KindList {
		return errResp(errWrongType)
	}

	list := v.List
	reversed := false
	if count < 0 {
		list = reverseSlice(list)
		count = -count
		reversed = true
	}

	removed := 0
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item == element && (count == 0 || removed < int(count)) {
			removed++
			continue
		}
		out = append(out, item)
	}
	if reversed {
		out = reverseSlice(out)
	}
	e.write(key, valuetype.NewList(out))
	return strResp(strconv.Itoa(removed))
}

func reverseSlice(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func (e *Executor) lset(key string, index int64, value string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return errResp(errNoSuchKey)
	}
	if v.Kind != valuetype.KindList {
		return errResp(errWrongType)
	}
	idx := index
	if idx < 0 {
		idx += int64(len(v.List))
	}
	if idx < 0 || idx >= int64(len(v.List)) {
		return errResp("ERR index out of range")
	}
	list := append([]string{}, v.List...)
	list[idx] = value
	e.write(key, valuetype.NewList(list))
	return strResp("Ok")
}

func (e *Executor) lindex(key string, index int64) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return nilResp()
	}
	if v.Kind != valuetype.KindList {
		return errResp(errWrongType)
	}
	idx := index
	if idx < 0 {
		idx += int64(len(v.List))
	}
	if idx < 0 || idx >= int64(len(v.List)) {
		return nilResp()
	}
	return strResp(v.List[idx])
}

func (e *Executor) llen(key string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return strResp("0")
	}
	if v.Kind != valuetype.KindList {
		return errResp(errWrongType)
	}
	return strResp(strconv.Itoa(len(v.List)))
}

func (e *Executor) sadd(key string, members []string) Response {
	v, ok := e.ks.Get(key)
	set := make(map[string]struct{})
	if ok {
		if v.Kind != valuetype.KindSet {
			return errResp(errWrongTypeSet)
		}
		for m := range v.Set {
			set[m] = struct{}{}
		}
	}
	added := 0
	for _, m := range members {
		if _, exists := set[m]; !exists {
			set[m] = struct{}{}
			added++
		}
	}
	e.write(key, valuetype.Value{Kind: valuetype.KindSet, Set: set})
	return strResp(strconv.Itoa(added))
}

func (e *Executor) scard(key string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return strResp("0")
	}
	if v.Kind != valuetype.KindSet {
		return errResp(errWrongTypeSet)
	}
	return strResp(strconv.Itoa(len(v.Set)))
}

func (e *Executor) sismember(key, member string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return errResp(errKeyMissing)
	}
	if v.Kind != valuetype.KindSet {
		return errResp(errWrongTypeSet)
	}
	if _, exists := v.Set[member]; exists {
		return strResp("1")
	}
	return strResp("0")
}

func (e *Executor) smembers(key string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return errResp(errKeyMissing)
	}
	if v.Kind != valuetype.KindSet {
		return errResp(errWrongTypeSet)
	}
	return setResp(v.SetMembers())
}

func (e *Executor) srem(key string, members []string) Response {
	v, ok := e.ks.Get(key)
	if !ok {
		return strResp("0")
	}
	if v.Kind != valuetype.KindSet {
		return errResp(errWrongTypeSet)
	}
	set := make(map[string]struct{}, len(v.Set))
	for m := range v.Set {
		set[m] = struct{}{}
	}
	removed := 0
	for _, m := range members {
		if _, exists := set[m]; exists {
			delete(set, m)
			removed++
		}
	}
	e.write(key, valuetype.Value{Kind: valuetype.KindSet, Set: set})
	return strResp(strconv.Itoa(removed))
}

func (e *Executor) subscribe(channels []string, clientID int64) Response {
	sink, ok := e.subscribers[clientID]
	if !ok {
		sink = NewChanSink(256)
		e.subscribers[clientID] = sink
		metrics.PubSubSubscribersActive.Set(float64(len(e.subscribers)))
	}
	counts := e.broker.Subscribe(channels, clientID, sink)
	for i, ch := range channels {
		sink.Send(pubsub.Message{Kind: "subscribe", Channel: ch, Count: counts[i]})
	}
	return streamResp(sink)
}

func (e *Executor) numsub(channels []string) Response {
	counts := e.broker.NumSub(channels)
	flat := make([]string, 0, len(counts)*2)
	for _, c := range counts {
		flat = append(flat, c.Channel, strconv.Itoa(c.Count))
	}
	return listResp(flat)
}
