package store

// casScript is the server-side compare-and-swap both network backends use
// for Update. It writes ARGV[2] only if the current value still equals
// ARGV[1], preserving the key's remaining TTL (optionally capped at
// ARGV[3] milliseconds, for shortening terminal records).
//
// Returns 1 on success, 0 on a lost race, -2 if the key is gone.
const casScript = `
local cur = redis.call('GET', KEYS[1])
if not cur then return -2 end
if cur ~= ARGV[1] then return 0 end
local ttl = redis.call('PTTL', KEYS[1])
local cap = tonumber(ARGV[3])
if cap > 0 and (ttl < 0 or ttl > cap) then ttl = cap end
if ttl > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ttl)
else
  redis.call('SET', KEYS[1], ARGV[2], 'KEEPTTL')
end
return 1
`

// maxCASAttempts bounds the optimistic retry loop. Contention on a single
// token is a handful of racing clicks, not a hot key; if we lose this many
// rounds something is wrong and we fail closed.
const maxCASAttempts = 8

const (
	casOK       = 1
	casConflict = 0
	casMissing  = -2
)
