package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio-tech-hub/SafeAging/modules/metadata"
	"github.com/studio-tech-hub/SafeAging/modules/packetbus"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeMQTT records publishes. Methods the emitter never calls are left to
// the embedded nil interface.
type fakeMQTT struct {
	mqtt.Client

	mu      sync.Mutex
	msgs    []published
	failErr error
}

func (c *fakeMQTT) IsConnected() bool { return true }

func (c *fakeMQTT) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return &fakeToken{err: c.failErr}
	}
	c.msgs = append(c.msgs, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return &fakeToken{}
}

func eventPacket() packetbus.Packet {
	return packetbus.Packet{
		Kind:     packetbus.KindEvent,
		CameraID: "cam-1",
		Sequence: 9,
		Event: &metadata.EventPacket{
			TimestampUs: 1234,
			TypeID:      metadata.TypeFallEvent,
			TrackID:     uuid.MustParse("11111111-2222-3333-4444-555555555555"),
			Caption:     metadata.CaptionStarted,
			IsActive:    true,
		},
	}
}

func objectPacket() packetbus.Packet {
	return packetbus.Packet{
		Kind:     packetbus.KindObjects,
		CameraID: "cam-1",
		Objects:  &metadata.ObjectPacket{TimestampUs: 99, Objects: []metadata.Object{{TypeID: metadata.TypePerson}}},
	}
}

func TestMQTTEmitterPublishesPerKindTopic(t *testing.T) {
	client := &fakeMQTT{}
	e := NewMQTTEmitterWithClient(MQTTConfig{
		TopicPrefix: "safeaging",
		QoS:         map[string]byte{"events": 1},
	}, client)

	require.NoError(t, e.Emit(context.Background(), eventPacket()))
	require.NoError(t, e.Emit(context.Background(), objectPacket()))

	require.Len(t, client.msgs, 2)
	assert.Equal(t, "safeaging/cam-1/events", client.msgs[0].topic)
	assert.Equal(t, byte(1), client.msgs[0].qos)
	assert.Equal(t, "safeaging/cam-1/objects", client.msgs[1].topic)
	assert.Equal(t, byte(0), client.msgs[1].qos)

	var ev metadata.EventPacket
	require.NoError(t, json.Unmarshal(client.msgs[0].payload, &ev))
	assert.True(t, ev.IsActive)
	assert.Equal(t, int64(1234), ev.TimestampUs)

	st := e.Stats()
	assert.True(t, st.Connected)
	assert.Equal(t, uint64(1), st.Published["safeaging/cam-1/events"])
	assert.Zero(t, st.Errors)
}

func TestMQTTEmitterCountsFailures(t *testing.T) {
	client := &fakeMQTT{failErr: errors.New("broker gone")}
	e := NewMQTTEmitterWithClient(MQTTConfig{TopicPrefix: "p"}, client)

	err := e.Emit(context.Background(), eventPacket())
	assert.ErrorContains(t, err, "broker gone")
	assert.Equal(t, uint64(1), e.Stats().Errors)

	disconnected := NewMQTTEmitter(MQTTConfig{})
	assert.Error(t, disconnected.Emit(context.Background(), eventPacket()))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisEmitterAppendsToStream(t *testing.T) {
	_, client := newRedis(t)
	e := NewRedisEmitter(RedisConfig{StreamPrefix: "safeaging", MaxLen: 1000}, client)
	ctx := context.Background()

	require.NoError(t, e.Ping(ctx))
	require.NoError(t, e.Emit(ctx, eventPacket()))
	require.NoError(t, e.Emit(ctx, objectPacket()))

	msgs, err := client.XRange(ctx, "safeaging:cam-1:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "1234", msgs[0].Values["timestamp_us"])
	assert.Equal(t, "9", msgs[0].Values["sequence"])

	var ev metadata.EventPacket
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &ev))
	assert.Equal(t, metadata.CaptionStarted, ev.Caption)

	n, err := client.XLen(ctx, "safeaging:cam-1:objects").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, uint64(1), e.Stats().Published["safeaging:cam-1:objects"])
}

func TestRedisEmitterReportsErrors(t *testing.T) {
	mr, client := newRedis(t)
	e := NewRedisEmitter(RedisConfig{StreamPrefix: "s"}, client)
	mr.Close()

	assert.Error(t, e.Emit(context.Background(), eventPacket()))
	assert.Equal(t, uint64(1), e.Stats().Errors)
}

type countingEmitter struct {
	mu sync.Mutex
	n  int
}

func (c *countingEmitter) Name() string { return "count" }
func (c *countingEmitter) Emit(context.Context, packetbus.Packet) error {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return nil
}

func TestRunDrainsUntilChannelClosed(t *testing.T) {
	in := make(chan packetbus.Packet, 3)
	in <- eventPacket()
	in <- objectPacket()
	in <- eventPacket()
	close(in)

	c := &countingEmitter{}
	Run(context.Background(), in, c, time.Second)
	assert.Equal(t, 3, c.n)
}

func TestRunStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, make(chan packetbus.Packet), LogEmitter{}, time.Second)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLogEmitter(t *testing.T) {
	assert.NoError(t, LogEmitter{}.Emit(context.Background(), eventPacket()))
	assert.NoError(t, LogEmitter{}.Emit(context.Background(), objectPacket()))
}
