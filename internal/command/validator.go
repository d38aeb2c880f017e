package command

import (
	"fmt"
	"strconv"
	"strings"
)

// arityError renders the canonical wrong-arity message.
func arityError(name string) error {
	return fmt.Errorf("ERR wrong number of arguments for '%s' command", name)
}

var errNotInteger = fmt.Errorf("ERR value is not an integer or out of range")

var errUnknownCommand = fmt.Errorf("Command not valid")

// parseUnsigned parses a non-negative base-10 integer, rejecting
// decimals, signs, and overflow.
func parseUnsigned(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errNotInteger
	}
	return uint32(n), nil
}

// parseSigned parses a base-10 signed integer, used only where the
// operation is inherently signed (list indices, lrem count).
func parseSigned(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errNotInteger
	}
	return n, nil
}

// Validate converts a non-empty token vector plus the originating
// client's identity into a typed Command, or a canonical error: the
// first token is the command name (case-insensitive), the remaining
// tokens are its arguments (case-sensitive). The keys pattern is passed
// through as-is and is matched by the executor as a Go regular expression
// (full regex, not glob).
func Validate(tokens []string, clientID int64) (Command, error) {
	if len(tokens) == 0 {
		return Command{}, errUnknownCommand
	}

	name := strings.ToLower(tokens[0])
	args := tokens[1:]
	cmd := Command{ClientID: clientID}

	switch name {
	case "ping":
		if len(args) != 0 {
			return Command{}, arityError("ping")
		}
		cmd.Kind = Ping

	case "dbsize":
		if len(args) != 0 {
			return Command{}, arityError("dbsize")
		}
		cmd.Kind = DBSize

	case "flushdb":
		if len(args) != 0 {
			return Command{}, arityError("flushdb")
		}
		cmd.Kind = FlushDB

	case "info":
		if len(args) > 1 {
			return Command{}, arityError("info")
		}
		cmd.Kind = Info
		if len(args) == 1 {
			cmd.Param = args[0]
		}

	case "monitor":
		if len(args) != 0 {
			return Command{}, arityError("monitor")
		}
		cmd.Kind = Monitor

	case "store":
		if len(args) != 1 {
			return Command{}, arityError("store")
		}
		cmd.Kind = Store
		cmd.Path = args[0]

	case "load":
		if len(args) != 1 {
			return Command{}, arityError("load")
		}
		cmd.Kind = Load
		cmd.Path = args[0]

	case "copy":
		if len(args) != 2 {
			return Command{}, arityError("copy")
		}
		cmd.Kind = Copy
		cmd.Key = args[0]
		cmd.Key2 = args[1]

	case "del":
		if len(args) < 1 {
			return Command{}, arityError("del")
		}
		cmd.Kind = Del
		cmd.Keys = args

	case "exists":
		if len(args) < 1 {
			return Command{}, arityError("exists")
		}
		cmd.Kind = Exists
		cmd.Keys = args

	case "rename":
		if len(args) != 2 {
			return Command{}, arityError("rename")
		}
		cmd.Kind = Rename
		cmd.Key = args[0]
		cmd.Key2 = args[1]

	case "expire":
		if len(args) != 2 {
			return Command{}, arityError("expire")
		}
		seconds, err := parseUnsigned(args[1])
		if err != nil {
			return Command{}, err
		}
		cmd.Kind = Expire
		cmd.Key = args[0]
		cmd.Int = int64(seconds)

	case "expireat":
		if len(args) != 2 {
			return Command{}, arityError("expireat")
		}
		epoch, err := parseUnsigned(args[1])
		if err != nil {
			return Command{}, err
		}
		cmd.Kind = ExpireAt
		cmd.Key = args[0]
		cmd.Int = int64(epoch)

	case "persist":
		if len(args) != 1 {
			return Command{}, arityError("persist")
		}
		cmd.Kind = Persist
		cmd.Key = args[0]

	case "touch":
		if len(args) < 1 {
			return Command{}, arityError("touch")
		}
		cmd.Kind = Touch
		cmd.Keys = args

	case "ttl":
		if len(args) != 1 {
			return Command{}, arityError("ttl")
		}
		cmd.Kind = TTL
		cmd.Key = args[0]

	case "type":
		if len(args) != 1 {
			return Command{}, arityError("type")
		}
		cmd.Kind = Type
		cmd.Key = args[0]

	case "keys":
		if len(args) != 1 {
			return Command{}, arityError("keys")
		}
		cmd.Kind = Keys
		cmd.Pattern = args[0]

	case "get":
		if len(args) != 1 {
			return Command{}, arityError("get")
		}
		cmd.Kind = Get
		cmd.Key = args[0]

	case "set":
		if len(args) != 2 {
			return Command{}, arityError("set")
		}
		cmd.Kind = Set
		cmd.Key = args[0]
		cmd.Value = args[1]

	case "getset":
		if len(args) != 2 {
			return Command{}, arityError("getset")
		}
		cmd.Kind = GetSet
		cmd.Key = args[0]
		cmd.Value = args[1]

	case "getdel":
		if len(args) != 1 {
			return Command{}, arityError("getdel")
		}
		cmd.Kind = GetDel
		cmd.Key = args[0]

	case "incrby":
		if len(args) != 2 {
			return Command{}, arityError("incrby")
		}
		n, err := parseUnsigned(args[1])
		if err != nil {
			return Command{}, err
		}
		cmd.Kind = IncrBy
		cmd.Key = args[0]
		cmd.Int = int64(n)

	case "decrby":
		if len(args) != 2 {
			return Command{}, arityError("decrby")
		}
		n, err := parseUnsigned(args[1])
		if err != nil {
			return Command{}, err
		}
		cmd.Kind = DecrBy
		cmd.Key = args[0]
		cmd.Int = int64(n)

	case "append":
		if len(args) != 2 {
			return Command{}, arityError("append")
		}
		cmd.Kind = Append
		cmd.Key = args[0]
		cmd.Value = args[1]

	case "mget":
		if len(args) < 1 {
			return Command{}, arityError("mget")
		}
		cmd.Kind = MGet
		cmd.Keys = args

	case "mset":
		if len(args) < 2 || len(args)%2 != 0 {
			return Command{}, arityError("mset")
		}
		cmd.Kind = MSet
		for i := 0; i < len(args); i += 2 {
			cmd.Pairs = append(cmd.Pairs, Pair{Key: args[i], Value: args[i+1]})
		}

	case "strlen":
		if len(args) != 1 {
			return Command{}, arityError("strlen")
		}
		cmd.Kind = StrLen
		cmd.Key = args[0]

	case "lindex":
		if len(args) != 2 {
			return Command{}, arityError("lindex")
		}
		idx, err := parseSigned(args[1])
		if err != nil {
			return Command{}, err
		}
		cmd.Kind = LIndex
		cmd.Key = args[0]
		cmd.Index = idx

	case "llen":
		if len(args) != 1 {
			return Command{}, arityError("llen")
		}
		cmd.Kind = LLen
		cmd.Key = args[0]

	case "lpush":
		if len(args) < 2 {
			return Command{}, arityError("lpush")
		}
		cmd.Kind = LPush
		cmd.Key = args[0]
		cmd.Values = args[1:]

	case "lpushx":
		if len(args) < 2 {
			return Command{}, arityError("lpushx")
		}
		cmd.Kind = LPushX
		cmd.Key = args[0]
		cmd.Values = args[1:]

	case "lpop":
		if len(args) < 1 || len(args) > 2 {
			return Command{}, arityError("lpop")
		}
		cmd.Kind = LPop
		cmd.Key = args[0]
		if len(args) == 2 {
			n, err := parseUnsigned(args[1])
			if err != nil {
				return Command{}, err
			}
			cmd.Count = int64(n)
		}

	case "lrange":
		if len(args) != 3 {
			return Command{}, arityError("lrange")
		}
		start, err := parseSigned(args[1])
		if err != nil {
			return Command{}, err
		}
		stop, err := parseSigned(args[2])
		if err != nil {
			return Command{}, err
		}
		cmd.Kind = LRange
		cmd.Key = args[0]
		cmd.Index = start
		cmd.Count = stop

	case "lrem":
		if len(args) != 3 {
			return Command{}, arityError("lrem")
		}
		count, err := parseSigned(args[1])
		if err != nil {
			return Command{}, err
		}
		cmd.Kind = LRem
		cmd.Key = args[0]
		cmd.Count = count
		cmd.Value = args[2]

	case "lset":
		if len(args) != 3 {
			return Command{}, arityError("lset")
		}
		idx, err := parseSigned(args[1])
		if err != nil {
			return Command{}, err
		}
		cmd.Kind = LSet
		cmd.Key = args[0]
		cmd.Index = idx
		cmd.Value = args[2]

	case "rpush":
		if len(args) < 2 {
			return Command{}, arityError("rpush")
		}
		cmd.Kind = RPush
		cmd.Key = args[0]
		cmd.Values = args[1:]

	case "rpushx":
		if len(args) < 2 {
			return Command{}, arityError("rpushx")
		}
		cmd.Kind = RPushX
		cmd.Key = args[0]
		cmd.Values = args[1:]

	case "rpop":
		if len(args) < 1 || len(args) > 2 {
			return Command{}, arityError("rpop")
		}
		cmd.Kind = RPop
		cmd.Key = args[0]
		if len(args) == 2 {
			n, err := parseUnsigned(args[1])
			if err != nil {
				return Command{}, err
			}
			cmd.Count = int64(n)
		}

	case "sadd":
		if len(args) < 2 {
			return Command{}, arityError("sadd")
		}
		cmd.Kind = SAdd
		cmd.Key = args[0]
		cmd.Members = args[1:]

	case "scard":
		if len(args) != 1 {
			return Command{}, arityError("scard")
		}
		cmd.Kind = SCard
		cmd.Key = args[0]

	case "sismember":
		if len(args) != 2 {
			return Command{}, arityError("sismember")
		}
		cmd.Kind = SIsMember
		cmd.Key = args[0]
		cmd.Value = args[1]

	case "smembers":
		if len(args) != 1 {
			return Command{}, arityError("smembers")
		}
		cmd.Kind = SMembers
		cmd.Key = args[0]

	case "srem":
		if len(args) < 2 {
			return Command{}, arityError("srem")
		}
		cmd.Kind = SRem
		cmd.Key = args[0]
		cmd.Members = args[1:]

	case "subscribe":
		if len(args) < 1 {
			return Command{}, arityError("subscribe")
		}
		cmd.Kind = Subscribe
		cmd.Channels = args

	case "unsubscribe":
		cmd.Kind = Unsubscribe
		cmd.Channels = args // may be empty: unsubscribe from all

	case "publish":
		if len(args) != 2 {
			return Command{}, arityError("publish")
		}
		cmd.Kind = Publish
		cmd.Channel = args[0]
		cmd.Message = args[1]

	case "pubsub":
		return validatePubSub(args, clientID)

	case "config":
		return validateConfig(args, clientID)

	case "add-client":
		if len(args) != 0 {
			return Command{}, arityError("add-client")
		}
		cmd.Kind = AddClient

	case "remove-client":
		if len(args) != 0 {
			return Command{}, arityError("remove-client")
		}
		cmd.Kind = RemoveClient

	default:
		return Command{}, errUnknownCommand
	}

	return cmd, nil
}

func validatePubSub(args []string, clientID int64) (Command, error) {
	if len(args) < 1 {
		return Command{}, fmt.Errorf("ERR Unknown subcommand or wrong number of arguments for 'pubsub' command")
	}
	sub := strings.ToLower(args[0])
	rest := args[1:]

	switch sub {
	case "channels":
		if len(rest) > 1 {
			return Command{}, fmt.Errorf("ERR Unknown subcommand or wrong number of arguments for 'channels' command")
		}
		cmd := Command{Kind: PubSubChannels, ClientID: clientID}
		if len(rest) == 1 {
			cmd.Pattern = rest[0]
		}
		return cmd, nil
	case "numsub":
		return Command{Kind: PubSubNumSub, ClientID: clientID, Channels: rest}, nil
	default:
		return Command{}, fmt.Errorf("ERR Unknown subcommand or wrong number of arguments for '%s' command", sub)
	}
}

func validateConfig(args []string, clientID int64) (Command, error) {
	if len(args) < 1 {
		return Command{}, fmt.Errorf("ERR Unknown subcommand or wrong number of arguments for 'config' command")
	}
	sub := strings.ToLower(args[0])
	rest := args[1:]

	switch sub {
	case "get":
		if len(rest) != 1 {
			return Command{}, fmt.Errorf("ERR Unknown subcommand or wrong number of arguments for 'get' command")
		}
		return Command{Kind: ConfigGet, ClientID: clientID, Param: rest[0]}, nil
	case "set":
		if len(rest) != 2 {
			return Command{}, fmt.Errorf("ERR Unknown subcommand or wrong number of arguments for 'set' command")
		}
		return Command{Kind: ConfigSet, ClientID: clientID, Param: rest[0], Value: rest[1]}, nil
	default:
		return Command{}, fmt.Errorf("ERR Unknown subcommand or wrong number of arguments for '%s' command", sub)
	}
}
