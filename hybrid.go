package llmgate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/krishna-kudari/llmgate/store"
	redisstore "github.com/krishna-kudari/llmgate/store/redis"
)

// TTLs applied by the admission script: counters and the sync marker are
// short-lived, event logs survive an hour of idleness.
const (
	counterTTL = 90 * time.Second
	recordTTL  = 3600 * time.Second
)

// NewHybridSlidingWindow creates a multi-dimensional sliding window limiter
// for LLM traffic. Each admission is checked against three per-window
// quotas at once: requests, input tokens, and output tokens.
//
// quota is the default per-key allowance; use WithQuotaFunc to vary it per
// key. Pass WithRedis (or WithStore) for distributed mode; omit for
// in-memory.
//
// The hot path reads O(1) counters. Counters only grow as events age out
// of the window, so at most every 30s per key the limiter recalibrates them
// from exact event logs; between calibrations they may over-count by the
// events that expired since the last rebuild.
func NewHybridSlidingWindow(quota Quota, opts ...Option) (Limiter, error) {
	if err := quota.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	if o.Window <= 0 || o.CalibrationInterval <= 0 {
		return nil, fmt.Errorf("llmgate: window and calibration interval must be positive")
	}

	if o.Store != nil {
		return newHybridStore(o.Store, quota, o), nil
	}
	if o.RedisClient != nil {
		return newHybridStore(redisstore.New(o.RedisClient), quota, o), nil
	}
	return &hybridMemory{
		states: make(map[string]*hybridState),
		quota:  quota,
		opts:   o,
	}, nil
}

// admissionResult maps a script decision onto a Result.
func admissionResult(quota Quota, allowed bool, reason Reason, window time.Duration) *Result {
	if allowed {
		return &Result{Allowed: true, Reason: ReasonAllowed, Limit: quota.RPM}
	}
	return &Result{
		Allowed:    false,
		Reason:     reason,
		Limit:      quota.limitFor(reason),
		RetryAfter: window,
	}
}

// newRequestID builds the unique id recorded for one admission: the
// microsecond timestamp plus a 3-digit random suffix to break ties between
// same-instant requests.
func newRequestID(nowMicro int64) string {
	return strconv.FormatInt(nowMicro, 10) + strconv.Itoa(100+rand.Intn(900))
}

// ─── In-Memory ───────────────────────────────────────────────────────────────

// hybridEvent is one recorded contribution. tokens carries the token count
// for input/output events and is unused for request events.
type hybridEvent struct {
	at     int64 // µs since epoch
	tokens int64
}

type hybridState struct {
	requests []hybridEvent
	inputs   []hybridEvent
	outputs  []hybridEvent

	reqCount    int64
	inputCount  int64
	outputCount int64
	lastSync    int64 // µs; zero forces calibration on the next hit

	counterExpiry time.Time
	recordExpiry  time.Time
}

// calibrate evicts out-of-window events and rebuilds the counters exactly,
// mirroring the slow path of the admission script.
func (s *hybridState) calibrate(nowMicro, windowStart int64) {
	s.requests = evictExpired(s.requests, windowStart)
	s.inputs = evictExpired(s.inputs, windowStart)
	s.outputs = evictExpired(s.outputs, windowStart)

	s.reqCount = int64(len(s.requests))
	s.inputCount = sumTokens(s.inputs)
	s.outputCount = sumTokens(s.outputs)
	s.lastSync = nowMicro
}

// evictExpired drops events at or before windowStart. Events are appended
// in time order, so a prefix scan suffices.
func evictExpired(events []hybridEvent, windowStart int64) []hybridEvent {
	cutoff := 0
	for cutoff < len(events) && events[cutoff].at <= windowStart {
		cutoff++
	}
	return events[cutoff:]
}

func sumTokens(events []hybridEvent) int64 {
	var total int64
	for _, e := range events {
		total += e.tokens
	}
	return total
}

type hybridMemory struct {
	mu     sync.Mutex
	states map[string]*hybridState
	quota  Quota
	opts   *Options
}

func (m *hybridMemory) Allow(ctx context.Context, key string, usage Usage) (*Result, error) {
	quota := m.opts.resolveQuota(key, m.quota)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	nowMicro := now.UnixMicro()
	windowStart := nowMicro - m.opts.Window.Microseconds()

	state, ok := m.states[key]
	if ok && now.After(state.recordExpiry) {
		delete(m.states, key)
		ok = false
	}
	if !ok {
		state = &hybridState{}
		m.states[key] = state
	} else if now.After(state.counterExpiry) {
		// Counters idled out; the logs survive, so the next calibration
		// rebuilds from them.
		state.reqCount, state.inputCount, state.outputCount = 0, 0, 0
		state.lastSync = 0
	}

	if nowMicro-state.lastSync > m.opts.CalibrationInterval.Microseconds() {
		state.calibrate(nowMicro, windowStart)
		state.counterExpiry = now.Add(counterTTL)
		state.recordExpiry = now.Add(recordTTL)
	}

	if state.reqCount >= quota.RPM {
		return admissionResult(quota, false, ReasonRPMExceeded, m.opts.Window), nil
	}
	if state.inputCount+usage.InputTokens > quota.InputTPM {
		return admissionResult(quota, false, ReasonInputTPMExceeded, m.opts.Window), nil
	}
	if state.outputCount+usage.OutputTokens > quota.OutputTPM {
		return admissionResult(quota, false, ReasonOutputTPMExceeded, m.opts.Window), nil
	}

	state.reqCount++
	state.requests = append(state.requests, hybridEvent{at: nowMicro})
	if usage.InputTokens > 0 {
		state.inputCount += usage.InputTokens
		state.inputs = append(state.inputs, hybridEvent{at: nowMicro, tokens: usage.InputTokens})
	}
	if usage.OutputTokens > 0 {
		state.outputCount += usage.OutputTokens
		state.outputs = append(state.outputs, hybridEvent{at: nowMicro, tokens: usage.OutputTokens})
	}

	state.counterExpiry = now.Add(counterTTL)
	state.recordExpiry = now.Add(recordTTL)

	return admissionResult(quota, true, ReasonAllowed, 0), nil
}

func (m *hybridMemory) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.states, key)
	m.mu.Unlock()
	return nil
}

// ─── Shared Store ────────────────────────────────────────────────────────────

type hybridStore struct {
	store  store.Store
	quota  Quota
	opts   *Options
	runner *scriptRunner
}

func newHybridStore(s store.Store, quota Quota, o *Options) *hybridStore {
	return &hybridStore{
		store:  s,
		quota:  quota,
		opts:   o,
		runner: newScriptRunner(buildAdmissionScript(o.CalibrationInterval)),
	}
}

func (h *hybridStore) Allow(ctx context.Context, key string, usage Usage) (*Result, error) {
	quota := h.opts.resolveQuota(key, h.quota)

	now := time.Now().UnixMicro()
	windowStart := now - h.opts.Window.Microseconds()

	keys := []string{
		h.opts.FormatKeySuffix(key, "req"),
		h.opts.FormatKeySuffix(key, "input"),
		h.opts.FormatKeySuffix(key, "output"),
	}

	reply, err := h.runner.Run(ctx, h.store, keys,
		now,
		windowStart,
		quota.RPM,
		quota.InputTPM,
		quota.OutputTPM,
		usage.InputTokens,
		usage.OutputTokens,
		newRequestID(now),
	)
	if err != nil {
		var unsupported *store.ErrScriptNotSupported
		if errors.As(err, &unsupported) {
			return h.allowScriptless(ctx, keys, quota, usage, now, windowStart)
		}
		return h.failResult(quota, err)
	}

	allowed, reason, err := decodeAdmission(reply)
	if err != nil {
		return h.failResult(quota, err)
	}
	return admissionResult(quota, allowed, reason, h.opts.Window), nil
}

func (h *hybridStore) Reset(ctx context.Context, key string) error {
	req := h.opts.FormatKeySuffix(key, "req")
	input := h.opts.FormatKeySuffix(key, "input")
	output := h.opts.FormatKeySuffix(key, "output")
	return h.store.Del(ctx, req, input, output,
		req+":counter", input+":counter", output+":counter", req+":last_sync")
}

func (h *hybridStore) failResult(quota Quota, err error) (*Result, error) {
	if h.opts.FailOpen {
		return &Result{Allowed: true, Reason: ReasonAllowed, Limit: quota.RPM}, nil
	}
	return &Result{Allowed: false, Limit: quota.RPM, RetryAfter: h.opts.Window},
		fmt.Errorf("llmgate: store error: %w", err)
}

// ─── Scriptless Fallback ─────────────────────────────────────────────────────

// allowScriptless performs the admission with individual store commands for
// backends that cannot run the script, such as the memory store. The steps
// match the script but are not atomic across callers on different stores;
// that is acceptable for single-process backends.
func (h *hybridStore) allowScriptless(ctx context.Context, keys []string, quota Quota, usage Usage, now, windowStart int64) (*Result, error) {
	reqKey, inputKey, outputKey := keys[0], keys[1], keys[2]
	reqCounter := reqKey + ":counter"
	inputCounter := inputKey + ":counter"
	outputCounter := outputKey + ":counter"
	lastSync := reqKey + ":last_sync"

	syncTime, err := h.counterValue(ctx, lastSync)
	if err != nil {
		return h.failResult(quota, err)
	}
	if now-syncTime > h.opts.CalibrationInterval.Microseconds() {
		if err := h.calibrate(ctx, reqKey, inputKey, outputKey, now, windowStart); err != nil {
			return h.failResult(quota, err)
		}
	}

	requests, err := h.counterValue(ctx, reqCounter)
	if err != nil {
		return h.failResult(quota, err)
	}
	inputUsed, err := h.counterValue(ctx, inputCounter)
	if err != nil {
		return h.failResult(quota, err)
	}
	outputUsed, err := h.counterValue(ctx, outputCounter)
	if err != nil {
		return h.failResult(quota, err)
	}

	if requests >= quota.RPM {
		return admissionResult(quota, false, ReasonRPMExceeded, h.opts.Window), nil
	}
	if inputUsed+usage.InputTokens > quota.InputTPM {
		return admissionResult(quota, false, ReasonInputTPMExceeded, h.opts.Window), nil
	}
	if outputUsed+usage.OutputTokens > quota.OutputTPM {
		return admissionResult(quota, false, ReasonOutputTPMExceeded, h.opts.Window), nil
	}

	if _, err := h.store.IncrBy(ctx, reqCounter, 1); err != nil {
		return h.failResult(quota, err)
	}
	if usage.InputTokens > 0 {
		if _, err := h.store.IncrBy(ctx, inputCounter, usage.InputTokens); err != nil {
			return h.failResult(quota, err)
		}
	}
	if usage.OutputTokens > 0 {
		if _, err := h.store.IncrBy(ctx, outputCounter, usage.OutputTokens); err != nil {
			return h.failResult(quota, err)
		}
	}

	id := newRequestID(now)
	if err := h.store.ZAdd(ctx, reqKey, float64(now), id); err != nil {
		return h.failResult(quota, err)
	}
	if usage.InputTokens > 0 {
		member := id + ":in:" + strconv.FormatInt(usage.InputTokens, 10)
		if err := h.store.ZAdd(ctx, inputKey, float64(now), member); err != nil {
			return h.failResult(quota, err)
		}
	}
	if usage.OutputTokens > 0 {
		member := id + ":out:" + strconv.FormatInt(usage.OutputTokens, 10)
		if err := h.store.ZAdd(ctx, outputKey, float64(now), member); err != nil {
			return h.failResult(quota, err)
		}
	}

	for _, k := range []string{reqCounter, inputCounter, outputCounter, lastSync} {
		if err := h.store.Expire(ctx, k, counterTTL); err != nil {
			return h.failResult(quota, err)
		}
	}
	for _, k := range []string{reqKey, inputKey, outputKey} {
		if err := h.store.Expire(ctx, k, recordTTL); err != nil {
			return h.failResult(quota, err)
		}
	}

	return admissionResult(quota, true, ReasonAllowed, 0), nil
}

// calibrate mirrors the script's slow path: evict expired members, then
// overwrite the counters with exact values recomputed from the logs.
func (h *hybridStore) calibrate(ctx context.Context, reqKey, inputKey, outputKey string, now, windowStart int64) error {
	ws := strconv.FormatInt(windowStart, 10)
	for _, k := range []string{reqKey, inputKey, outputKey} {
		if err := h.store.ZRemRangeByScore(ctx, k, "-inf", ws); err != nil {
			return err
		}
	}

	requests, err := h.store.ZCard(ctx, reqKey)
	if err != nil {
		return err
	}
	inputTotal, err := h.sumMembers(ctx, inputKey)
	if err != nil {
		return err
	}
	outputTotal, err := h.sumMembers(ctx, outputKey)
	if err != nil {
		return err
	}

	values := map[string]int64{
		reqKey + ":counter":    requests,
		inputKey + ":counter":  inputTotal,
		outputKey + ":counter": outputTotal,
		reqKey + ":last_sync":  now,
	}
	for k, v := range values {
		if err := h.store.Set(ctx, k, strconv.FormatInt(v, 10), counterTTL); err != nil {
			return err
		}
	}

	for _, k := range []string{reqKey, inputKey, outputKey} {
		if err := h.store.Expire(ctx, k, recordTTL); err != nil {
			return err
		}
	}
	return nil
}

// sumMembers totals the trailing ":<n>" of every member in the set.
// Everything left after eviction is within the window.
func (h *hybridStore) sumMembers(ctx context.Context, key string) (int64, error) {
	entries, err := h.store.ZRangeWithScores(ctx, key, 0, -1)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += parseTokenSuffix(e.Member)
	}
	return total, nil
}

// parseTokenSuffix extracts the integer after the last ':' of member.
// Members without a parseable suffix count as 1, matching the script.
func parseTokenSuffix(member string) int64 {
	i := strings.LastIndexByte(member, ':')
	if i < 0 {
		return 1
	}
	n, err := strconv.ParseInt(member[i+1:], 10, 64)
	if err != nil || n < 0 {
		return 1
	}
	return n
}

// counterValue reads an integer counter, treating a missing key as zero.
func (h *hybridStore) counterValue(ctx context.Context, key string) (int64, error) {
	val, err := h.store.Get(ctx, key)
	if err != nil {
		var notFound *store.ErrKeyNotFound
		if errors.As(err, &notFound) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("llmgate: malformed counter %s: %w", key, err)
	}
	return n, nil
}
