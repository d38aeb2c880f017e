// Package command defines the closed set of operations the engine
// accepts and the validator that turns raw token vectors into typed
// Command values. Nothing here touches the keyspace or broker — see
// internal/executor for that.
package command

// Kind enumerates every command family/operation the engine accepts.
type Kind int

const (
	// Server control
	Ping Kind = iota
	DBSize
	FlushDB
	Info
	Monitor

	// Persistence
	Store
	Load

	// Keyspace
	Copy
	Del
	Exists
	Rename
	Expire
	ExpireAt
	Persist
	Touch
	TTL
	Type
	Keys

	// Strings
	Get
	Set
	GetSet
	GetDel
	IncrBy
	DecrBy
	Append
	MGet
	MSet
	StrLen

	// Lists
	LIndex
	LLen
	LPush
	LPushX
	LPop
	LRange
	LRem
	LSet
	RPush
	RPushX
	RPop

	// Sets
	SAdd
	SCard
	SIsMember
	SMembers
	SRem

	// Pub/sub
	Subscribe
	Unsubscribe
	Publish
	PubSubChannels
	PubSubNumSub

	// Admin
	AddClient
	RemoveClient
	ConfigGet
	ConfigSet
)

var kindNames = map[Kind]string{
	Ping: "ping", DBSize: "dbsize", FlushDB: "flushdb", Info: "info", Monitor: "monitor",
	Store: "store", Load: "load",
	Copy: "copy", Del: "del", Exists: "exists", Rename: "rename", Expire: "expire",
	ExpireAt: "expireat", Persist: "persist", Touch: "touch", TTL: "ttl", Type: "type", Keys: "keys",
	Get: "get", Set: "set", GetSet: "getset", GetDel: "getdel", IncrBy: "incrby", DecrBy: "decrby",
	Append: "append", MGet: "mget", MSet: "mset", StrLen: "strlen",
	LIndex: "lindex", LLen: "llen", LPush: "lpush", LPushX: "lpushx", LPop: "lpop",
	LRange: "lrange", LRem: "lrem", LSet: "lset", RPush: "rpush", RPushX: "rpushx", RPop: "rpop",
	SAdd: "sadd", SCard: "scard", SIsMember: "sismember", SMembers: "smembers", SRem: "srem",
	Subscribe: "subscribe", Unsubscribe: "unsubscribe", Publish: "publish",
	PubSubChannels: "pubsub channels", PubSubNumSub: "pubsub numsub",
	AddClient: "add-client", RemoveClient: "remove-client", ConfigGet: "config get", ConfigSet: "config set",
}

// String renders the command name used in arity/unknown-command errors
// and in the monitor feed's textual rendering.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Pair is a key/value argument pair, used by MSet.
type Pair struct {
	Key   string
	Value string
}

// Command is the validated, typed result of parsing a token vector.
// Only the fields relevant to Kind are populated; the rest are zero
// values. A single struct with a discriminant (rather than one Go type
// per variant) keeps the validator and executor dispatch symmetrical.
type Command struct {
	Kind     Kind
	ClientID int64

	Key  string
	Key2 string // second key, for copy/rename
	Keys []string

	Value  string
	Values []string
	Pairs  []Pair

	Members []string // sadd/srem

	Int   int64 // incrby/decrby amount, expire seconds, expireat epoch
	Index int64 // lset index (signed)
	Count int64 // lrem count (signed), lpop/rpop count (unsigned semantics enforced by validator)

	Pattern string // keys pattern

	Channel  string
	Channels []string
	Message  string

	Param string // info/config-get param name
	Path  string // store/load path
}
