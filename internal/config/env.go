package config

import (
	"log/slog"
	"strconv"
	"strings"
)

// Environment variables recognized by ApplyEnv.
const (
	EnvServiceURL     = "SAFEAGING_AI_SERVICE_URL"
	EnvConnectTimeout = "SAFEAGING_AI_TIMEOUT_CONNECT_MS"
	EnvReadTimeout    = "SAFEAGING_AI_TIMEOUT_READ_MS"
	EnvWriteTimeout   = "SAFEAGING_AI_TIMEOUT_WRITE_MS"
	EnvSendWidth      = "SAFEAGING_AI_SEND_WIDTH"
	EnvJPEGQuality    = "SAFEAGING_AI_JPEG_QUALITY"
	EnvCircuitFails   = "SAFEAGING_AI_CIRCUIT_FAILS"
	EnvCircuitOpen    = "SAFEAGING_AI_CIRCUIT_OPEN_MS"
	EnvLogThrottle    = "SAFEAGING_AI_LOG_THROTTLE_MS"
	EnvSampleFPS      = "SAFEAGING_SAMPLE_FPS"
	EnvQueueSize      = "SAFEAGING_QUEUE_SIZE"
	EnvFallFinish     = "SAFEAGING_FALL_FINISH_MS"
	EnvSynthTrackTTL  = "SAFEAGING_SYNTH_TRACK_TTL_MS"
	EnvTrackMapTTL    = "SAFEAGING_TRACK_MAP_TTL_MS"
	EnvCameraID       = "SAFEAGING_CAMERA_ID"
	EnvRTSPURL        = "SAFEAGING_RTSP_URL"
	EnvMQTTBroker     = "SAFEAGING_MQTT_BROKER"
	EnvRedisAddr      = "SAFEAGING_REDIS_ADDR"
	EnvHealthAddr     = "SAFEAGING_HEALTH_ADDR"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with any set environment variable. Values that do
// not parse are ignored with a warning.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			slog.Warn("config: ignoring invalid env value", "key", key, "value", v)
			return
		}
		*dst = n
	}

	str(EnvServiceURL, &cfg.Inference.ServiceURL)
	num(EnvConnectTimeout, &cfg.Inference.ConnectTimeoutMS)
	num(EnvReadTimeout, &cfg.Inference.ReadTimeoutMS)
	num(EnvWriteTimeout, &cfg.Inference.WriteTimeoutMS)
	num(EnvSendWidth, &cfg.Inference.SendWidth)
	num(EnvJPEGQuality, &cfg.Inference.JPEGQuality)
	num(EnvCircuitFails, &cfg.Inference.CircuitFails)
	num(EnvCircuitOpen, &cfg.Inference.CircuitOpenMS)
	num(EnvLogThrottle, &cfg.Inference.LogThrottleMS)

	if v, ok := lookup(EnvSampleFPS); ok && strings.TrimSpace(v) != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.Pipeline.SampleFPS = f
		} else {
			slog.Warn("config: ignoring invalid env value", "key", EnvSampleFPS, "value", v)
		}
	}
	num(EnvQueueSize, &cfg.Pipeline.QueueSize)
	num(EnvFallFinish, &cfg.Pipeline.FallFinishMS)
	num(EnvSynthTrackTTL, &cfg.Pipeline.SyntheticTrackTTLMS)
	num(EnvTrackMapTTL, &cfg.Pipeline.TrackMapTTLMS)

	str(EnvCameraID, &cfg.Camera.ID)
	str(EnvRTSPURL, &cfg.Camera.RTSPURL)
	str(EnvMQTTBroker, &cfg.MQTT.Broker)
	str(EnvRedisAddr, &cfg.Redis.Addr)
	str(EnvHealthAddr, &cfg.Health.Addr)
}
