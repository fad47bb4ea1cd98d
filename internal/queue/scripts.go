package queue

// Lua scripts backing the coordination store's atomic multi-key
// transitions. Each only ever touches keys tagged for a single queue (or
// a single job, for the poison key), so a single-shard EVAL is always
// correct under the Ring's hash-tag routing (ring.go).

// dequeueLua pops the lowest-scoring member from waiting and moves it
// into processing. KEYS[1]=waiting(Q) KEYS[2]=processing(Q).
const dequeueLua = `
local popped = redis.call('ZRANGE', KEYS[1], 0, 0)
if #popped == 0 then
  return false
end
local id = popped[1]
redis.call('ZREM', KEYS[1], id)
redis.call('SADD', KEYS[2], id)
return id
`

// moveToDLQLua removes a job from processing and appends it to the dead
// letter list. KEYS[1]=processing(Q) KEYS[2]=dlq(Q) ARGV[1]=id.
const moveToDLQLua = `
redis.call('SREM', KEYS[1], ARGV[1])
redis.call('RPUSH', KEYS[2], ARGV[1])
return 1
`

// promoteDueLua pops every id scheduled at or before now from the
// delayed set. KEYS[1]=delayed(Q) ARGV[1]=now (ms).
const promoteDueLua = `
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if #ids > 0 then
  redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
end
return ids
`

// trackFailureLua records a failure timestamp, trims entries older than
// the poison-detection window, counts what remains, and refreshes the
// key's TTL. KEYS[1]=poison(jobId) ARGV: now_ms, window_ms, ttl_seconds,
// nonce.
const trackFailureLua = `
local member = ARGV[1] .. ':' .. ARGV[4]
redis.call('ZADD', KEYS[1], ARGV[1], member)
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1] - ARGV[2])
local count = redis.call('ZCARD', KEYS[1])
redis.call('EXPIRE', KEYS[1], ARGV[3])
return count
`
