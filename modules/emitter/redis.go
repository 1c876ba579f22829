package emitter

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/studio-tech-hub/SafeAging/modules/packetbus"
)

// RedisConfig holds stream settings.
type RedisConfig struct {
	StreamPrefix string

	// MaxLen trims each stream approximately to this many entries. Zero keeps
	// everything.
	MaxLen int64
}

// RedisEmitter appends packets to {prefix}:{camera_id}:{kind} streams.
type RedisEmitter struct {
	cfg    RedisConfig
	client *redis.Client

	mu        sync.Mutex
	published map[string]uint64
	errors    uint64
}

// NewRedisEmitter wraps a go-redis client.
func NewRedisEmitter(cfg RedisConfig, client *redis.Client) *RedisEmitter {
	return &RedisEmitter{cfg: cfg, client: client, published: make(map[string]uint64)}
}

func (e *RedisEmitter) Name() string { return "redis" }

// Stream returns the stream key a packet is appended to.
func (e *RedisEmitter) Stream(p packetbus.Packet) string {
	return fmt.Sprintf("%s:%s:%s", e.cfg.StreamPrefix, p.CameraID, p.Kind)
}

// Emit appends the packet as {data, timestamp_us, sequence}.
func (e *RedisEmitter) Emit(ctx context.Context, p packetbus.Packet) error {
	payload, err := marshalPayload(p)
	if err != nil {
		e.count("", err)
		return err
	}

	stream := e.Stream(p)
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"data":         string(payload),
			"timestamp_us": p.TimestampUs(),
			"sequence":     p.Sequence,
		},
	}
	if e.cfg.MaxLen > 0 {
		args.MaxLen = e.cfg.MaxLen
		args.Approx = true
	}

	if err := e.client.XAdd(ctx, args).Err(); err != nil {
		err = fmt.Errorf("xadd %s: %w", stream, err)
		e.count(stream, err)
		return err
	}
	e.count(stream, nil)
	return nil
}

func (e *RedisEmitter) count(stream string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.errors++
		return
	}
	e.published[stream]++
}

// Stats returns emitter statistics.
func (e *RedisEmitter) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{Connected: e.client != nil, Published: published, Errors: e.errors}
}

// Ping checks the Redis connection.
func (e *RedisEmitter) Ping(ctx context.Context) error {
	return e.client.Ping(ctx).Err()
}
