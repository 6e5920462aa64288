package llmgate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/krishna-kudari/llmgate/store"
)

// admissionScript makes one admission decision atomically. It returns
// {1, 'ALLOWED'} or {0, '<REASON>'}.
//
//	KEYS[1]  requests sorted set       (rl:K:req)
//	KEYS[2]  input tokens sorted set   (rl:K:input)
//	KEYS[3]  output tokens sorted set  (rl:K:output)
//
//	ARGV[1]  now, µs since epoch
//	ARGV[2]  window start, µs (now − window)
//	ARGV[3]  rpm limit
//	ARGV[4]  input tpm limit
//	ARGV[5]  output tpm limit
//	ARGV[6]  input tokens for this request
//	ARGV[7]  output tokens for this request
//	ARGV[8]  request id
//
// Counter keys and the last_sync marker are derived from the key names
// inside the script, so with hash tags every object for one api key stays
// in a single cluster slot.
//
// Counters serve the admission check in O(1). They only grow between
// calibrations, so at most once per calibration interval per key the script
// evicts out-of-window events from the sorted sets and rebuilds the counters
// exactly before checking. Denials return early and refresh no TTLs.
const admissionScript = `
local request_key = KEYS[1]
local input_key = KEYS[2]
local output_key = KEYS[3]

local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local rpm_limit = tonumber(ARGV[3])
local input_tpm_limit = tonumber(ARGV[4])
local output_tpm_limit = tonumber(ARGV[5])
local input_tokens = tonumber(ARGV[6])
local output_tokens = tonumber(ARGV[7])
local request_id = ARGV[8]

local req_counter = request_key .. ':counter'
local input_counter = input_key .. ':counter'
local output_counter = output_key .. ':counter'
local last_sync = request_key .. ':last_sync'

local sync_time = tonumber(redis.call('GET', last_sync) or 0)

if (now - sync_time) > <CALIBRATION_US> then
    -- Calibration: evict expired events, rebuild counters exactly
    redis.call('ZREMRANGEBYSCORE', request_key, '-inf', window_start)
    redis.call('ZREMRANGEBYSCORE', input_key, '-inf', window_start)
    redis.call('ZREMRANGEBYSCORE', output_key, '-inf', window_start)

    local exact_requests = redis.call('ZCARD', request_key)

    local exact_input = 0
    for _, member in ipairs(redis.call('ZRANGEBYSCORE', input_key, window_start, '+inf')) do
        local tokens = tonumber(string.match(member, ':(%d+)$'))
        exact_input = exact_input + (tokens or 1)
    end

    local exact_output = 0
    for _, member in ipairs(redis.call('ZRANGEBYSCORE', output_key, window_start, '+inf')) do
        local tokens = tonumber(string.match(member, ':(%d+)$'))
        exact_output = exact_output + (tokens or 1)
    end

    redis.call('SET', req_counter, exact_requests)
    redis.call('SET', input_counter, exact_input)
    redis.call('SET', output_counter, exact_output)
    redis.call('SET', last_sync, now)

    redis.call('EXPIRE', req_counter, 90)
    redis.call('EXPIRE', input_counter, 90)
    redis.call('EXPIRE', output_counter, 90)
    redis.call('EXPIRE', last_sync, 90)

    redis.call('EXPIRE', request_key, 3600)
    redis.call('EXPIRE', input_key, 3600)
    redis.call('EXPIRE', output_key, 3600)
end

-- Fast path: counters only
local requests = tonumber(redis.call('GET', req_counter) or 0)
local input_used = tonumber(redis.call('GET', input_counter) or 0)
local output_used = tonumber(redis.call('GET', output_counter) or 0)

if requests >= rpm_limit then
    return {0, 'RPM_EXCEEDED'}
end
if input_used + input_tokens > input_tpm_limit then
    return {0, 'INPUT_TPM_EXCEEDED'}
end
if output_used + output_tokens > output_tpm_limit then
    return {0, 'OUTPUT_TPM_EXCEEDED'}
end

-- Admit: bump counters, append exact records
redis.call('INCR', req_counter)
if input_tokens > 0 then
    redis.call('INCRBY', input_counter, input_tokens)
end
if output_tokens > 0 then
    redis.call('INCRBY', output_counter, output_tokens)
end

redis.call('ZADD', request_key, now, request_id)
if input_tokens > 0 then
    redis.call('ZADD', input_key, now, request_id .. ':in:' .. input_tokens)
end
if output_tokens > 0 then
    redis.call('ZADD', output_key, now, request_id .. ':out:' .. output_tokens)
end

redis.call('EXPIRE', req_counter, 90)
redis.call('EXPIRE', input_counter, 90)
redis.call('EXPIRE', output_counter, 90)
redis.call('EXPIRE', last_sync, 90)

redis.call('EXPIRE', request_key, 3600)
redis.call('EXPIRE', input_key, 3600)
redis.call('EXPIRE', output_key, 3600)

return {1, 'ALLOWED'}
`

// buildAdmissionScript binds the calibration interval into the script text.
func buildAdmissionScript(calibration time.Duration) string {
	return strings.ReplaceAll(admissionScript, "<CALIBRATION_US>",
		strconv.FormatInt(calibration.Microseconds(), 10))
}

// scriptRunner executes a script through a Store, loading it into the
// server's cache once and running it by SHA afterwards.
type scriptRunner struct {
	script string

	mu  sync.Mutex
	sha string
}

func newScriptRunner(script string) *scriptRunner {
	return &scriptRunner{script: script}
}

func (r *scriptRunner) Run(ctx context.Context, s store.Store, keys []string, args ...interface{}) (interface{}, error) {
	r.mu.Lock()
	sha := r.sha
	r.mu.Unlock()

	if sha == "" {
		loaded, err := s.ScriptLoad(ctx, r.script)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.sha = loaded
		r.mu.Unlock()
		sha = loaded
	}

	reply, err := s.EvalSha(ctx, sha, keys, args...)
	if err != nil && redis.HasErrorPrefix(err, "NOSCRIPT") {
		// Script cache was flushed after load, e.g. by SCRIPT FLUSH or a
		// server restart.
		return s.Eval(ctx, r.script, keys, args...)
	}
	return reply, err
}

// decodeAdmission parses the script's {allowed, reason} reply.
func decodeAdmission(reply interface{}) (bool, Reason, error) {
	arr, ok := reply.([]interface{})
	if !ok || len(arr) < 2 {
		return false, "", fmt.Errorf("llmgate: unexpected script reply %T", reply)
	}
	allowed, ok := arr[0].(int64)
	if !ok {
		return false, "", fmt.Errorf("llmgate: unexpected allowed flag %T in script reply", arr[0])
	}
	reason, ok := arr[1].(string)
	if !ok {
		return false, "", fmt.Errorf("llmgate: unexpected reason %T in script reply", arr[1])
	}
	return allowed == 1, Reason(reason), nil
}
