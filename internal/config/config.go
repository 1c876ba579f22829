// Package config loads the agent configuration: YAML file first, then
// environment overrides, then clamping to safe ranges, then validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/studio-tech-hub/SafeAging/modules/agent"
	"github.com/studio-tech-hub/SafeAging/modules/emitter"
	"github.com/studio-tech-hub/SafeAging/modules/inference"
)

// Config represents the complete agent configuration
type Config struct {
	InstanceID       string          `yaml:"instance_id"`
	ShutdownTimeoutS int             `yaml:"shutdown_timeout_s"`
	Camera           CameraConfig    `yaml:"camera"`
	Inference        InferenceConfig `yaml:"inference"`
	Pipeline         PipelineConfig  `yaml:"pipeline"`
	MQTT             MQTTConfig      `yaml:"mqtt"`
	Redis            RedisConfig     `yaml:"redis"`
	Health           HealthConfig    `yaml:"health"`
}

// CameraConfig contains camera settings
type CameraConfig struct {
	ID      string `yaml:"id"`
	RTSPURL string `yaml:"rtsp_url"`
	Width   int    `yaml:"width"`  // decoded frame width delivered to the agent
	Height  int    `yaml:"height"` // decoded frame height delivered to the agent
}

// InferenceConfig contains remote service and breaker settings
type InferenceConfig struct {
	ServiceURL       string `yaml:"service_url"`
	ConnectTimeoutMS int    `yaml:"connect_timeout_ms"`
	ReadTimeoutMS    int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS   int    `yaml:"write_timeout_ms"`
	SendWidth        int    `yaml:"send_width"`
	JPEGQuality      int    `yaml:"jpeg_quality"`
	CircuitFails     int    `yaml:"circuit_fails"`
	CircuitOpenMS    int    `yaml:"circuit_open_ms"`
	LogThrottleMS    int    `yaml:"log_throttle_ms"`
}

// PipelineConfig contains sampling, queueing and tracking settings
type PipelineConfig struct {
	SampleFPS           float64 `yaml:"sample_fps"`
	QueueSize           int     `yaml:"queue_size"`
	FallFinishMS        int     `yaml:"fall_finish_ms"`
	SyntheticTrackTTLMS int     `yaml:"synthetic_track_ttl_ms"`
	TrackMapTTLMS       int     `yaml:"track_map_ttl_ms"`
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Enabled     bool            `yaml:"enabled"`
	Broker      string          `yaml:"broker"`
	TopicPrefix string          `yaml:"topic_prefix"`
	QoS         map[string]byte `yaml:"qos"`
}

// RedisConfig contains Redis Streams settings
type RedisConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	StreamPrefix string `yaml:"stream_prefix"`
	MaxLen       int64  `yaml:"max_len"`
}

// HealthConfig contains the HTTP health/stats listener
type HealthConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// Default returns the configuration used when a key is not set anywhere.
func Default() Config {
	return Config{
		InstanceID:       "safeaging",
		ShutdownTimeoutS: 5,
		Camera: CameraConfig{
			ID:     "camera-0",
			Width:  1280,
			Height: 720,
		},
		Inference: InferenceConfig{
			ServiceURL:       inference.DefaultServiceURL,
			ConnectTimeoutMS: 250,
			ReadTimeoutMS:    400,
			WriteTimeoutMS:   250,
			SendWidth:        640,
			JPEGQuality:      80,
			CircuitFails:     3,
			CircuitOpenMS:    3000,
			LogThrottleMS:    5000,
		},
		Pipeline: PipelineConfig{
			SampleFPS:           5.0,
			QueueSize:           4,
			FallFinishMS:        3000,
			SyntheticTrackTTLMS: 2000,
			TrackMapTTLMS:       60000,
		},
		MQTT: MQTTConfig{
			Broker:      "localhost:1883",
			TopicPrefix: "safeaging",
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			StreamPrefix: "safeaging",
			MaxLen:       10000,
		},
		Health: HealthConfig{Addr: ":8090"},
	}
}

// Load reads a YAML file (empty path skips the file), applies environment
// overrides, clamps and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyEnv(&cfg, os.LookupEnv)
	Clamp(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// InferenceClient converts to the inference client configuration.
func (c *Config) InferenceClient() inference.Config {
	in := c.Inference
	return inference.Config{
		ServiceURL:      in.ServiceURL,
		ConnectTimeout:  ms(in.ConnectTimeoutMS),
		ReadTimeout:     ms(in.ReadTimeoutMS),
		WriteTimeout:    ms(in.WriteTimeoutMS),
		SendWidth:       in.SendWidth,
		JPEGQuality:     in.JPEGQuality,
		CircuitFailures: in.CircuitFails,
		CircuitOpen:     ms(in.CircuitOpenMS),
		LogThrottle:     ms(in.LogThrottleMS),
	}
}

// Agent converts to the agent configuration.
func (c *Config) Agent() agent.Config {
	p := c.Pipeline
	return agent.Config{
		CameraID:          c.Camera.ID,
		SampleFPS:         p.SampleFPS,
		QueueSize:         p.QueueSize,
		FallFinishGrace:   ms(p.FallFinishMS),
		SyntheticTrackTTL: ms(p.SyntheticTrackTTLMS),
		TrackMapTTL:       ms(p.TrackMapTTLMS),
		LogThrottle:       ms(c.Inference.LogThrottleMS),
	}
}

// MQTTEmitter converts to the MQTT emitter configuration.
func (c *Config) MQTTEmitter() emitter.MQTTConfig {
	return emitter.MQTTConfig{
		Broker:      c.MQTT.Broker,
		ClientID:    c.InstanceID + "-" + c.Camera.ID,
		TopicPrefix: c.MQTT.TopicPrefix,
		QoS:         c.MQTT.QoS,
	}
}

// RedisEmitter converts to the Redis emitter configuration.
func (c *Config) RedisEmitter() emitter.RedisConfig {
	return emitter.RedisConfig{StreamPrefix: c.Redis.StreamPrefix, MaxLen: c.Redis.MaxLen}
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}
