// Package queue implements the Redis-backed coordination store and, on
// top of it, priority dispatch ordering, the retry/delayed index, and the
// dead-letter queue with poison-pill detection.
//
// The coordination store is Redis, sharded across Config.RedisAddrs with
// a redis.Ring. Every key for one queue shares a Redis Cluster-style hash
// tag (e.g. "waiting:{orders}"), and the Ring's ConsistentHash is wired to
// hash only the tag portion of the key (hashTag below), so all four of a
// queue's key families (waiting, processing, delayed, dlq) land on the
// same shard no matter how many shards are configured. The poison key is
// tagged with the job id instead and is only ever touched on its own. That keeps every multi-key Lua script in this package
// single-shard and therefore atomic.
package queue

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
	r "github.com/redis/go-redis/v9"
)

// NewRing builds the coordination-store client. A single address still
// produces a valid (single-shard) Ring, so this works unmodified whether
// the deployment has one Redis node or many.
func NewRing(addrs []string, password string) *r.Ring {
	shards := make(map[string]string, len(addrs))
	names := make([]string, 0, len(addrs))
	for i, addr := range addrs {
		name := shardName(i)
		shards[name] = addr
		names = append(names, name)
	}
	return r.NewRing(&r.RingOptions{
		Addrs:    shards,
		Password: password,
		NewConsistentHash: func(shardNames []string) r.ConsistentHash {
			return newRendezvousHash(shardNames)
		},
	})
}

func shardName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return "shard-" + string(letters[i])
	}
	return "shard-" + string(rune('0'+i))
}

// rendezvousHash picks a shard for a coordination-store key using
// highest-random-weight (rendezvous) hashing over the key's hash tag, so
// adding or removing a shard only moves the queues hashed to it instead
// of reshuffling the whole keyspace.
type rendezvousHash struct {
	rv *rendezvous.Rendezvous
}

func newRendezvousHash(shards []string) *rendezvousHash {
	return &rendezvousHash{rv: rendezvous.New(shards, xxhash.Sum64String)}
}

// Get implements redis.ConsistentHash.
func (h *rendezvousHash) Get(key string) string {
	return h.rv.Lookup(hashTag(key))
}

// hashTag extracts the substring between the first "{" and the following
// "}" in key, Redis Cluster style, so related keys for one queue (e.g.
// "waiting:{orders}" and "processing:{orders}") always hash identically.
// Keys without a tag hash on their full value.
func hashTag(key string) string {
	start := strings.IndexByte(key, '{')
	if start < 0 {
		return key
	}
	end := strings.IndexByte(key[start+1:], '}')
	if end < 0 {
		return key
	}
	return key[start+1 : start+1+end]
}
