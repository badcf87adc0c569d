package journal

const (
	// appendEventScript atomically appends an event and refreshes retention
	appendEventScript = `
local day_key = KEYS[1]       -- tabletime:journal:{day}
local days_set = KEYS[2]      -- tabletime:journal:days

local day = ARGV[1]
local payload = ARGV[2]
local ttl = tonumber(ARGV[3])

local length = redis.call('RPUSH', day_key, payload)
redis.call('SADD', days_set, day)

-- Expire whole days once they fall out of retention
if ttl > 0 then
  redis.call('EXPIRE', day_key, ttl)
end

return length
`
)
