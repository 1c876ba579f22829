package config

import (
	"fmt"
	"math"
	"regexp"

	"github.com/studio-tech-hub/SafeAging/modules/inference"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

func clampInt(v *int, lo, hi int) {
	if *v < lo {
		*v = lo
	}
	if *v > hi {
		*v = hi
	}
}

// Clamp bounds every numeric setting to its supported range.
func Clamp(cfg *Config) {
	in := &cfg.Inference
	clampInt(&in.ConnectTimeoutMS, 50, 5000)
	clampInt(&in.ReadTimeoutMS, 50, 5000)
	clampInt(&in.WriteTimeoutMS, 50, 5000)
	clampInt(&in.SendWidth, 160, 3840)
	clampInt(&in.JPEGQuality, 40, 95)
	clampInt(&in.CircuitFails, 1, 20)
	clampInt(&in.CircuitOpenMS, 200, 60000)
	clampInt(&in.LogThrottleMS, 200, 60000)

	p := &cfg.Pipeline
	if math.IsNaN(p.SampleFPS) {
		p.SampleFPS = Default().Pipeline.SampleFPS
	}
	p.SampleFPS = math.Min(math.Max(p.SampleFPS, 0.1), 60)
	clampInt(&p.QueueSize, 1, 120)
	clampInt(&p.FallFinishMS, 0, 120000)
	clampInt(&p.SyntheticTrackTTLMS, 100, 120000)
	clampInt(&p.TrackMapTTLMS, 1000, 3600000)

	if cfg.ShutdownTimeoutS <= 0 {
		cfg.ShutdownTimeoutS = 5
	}
}

// Validate checks if the configuration is valid and fills derived defaults
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if cfg.Camera.ID == "" {
		return fmt.Errorf("camera.id is required")
	}

	if _, err := inference.ParseServiceURL(cfg.Inference.ServiceURL); err != nil {
		return fmt.Errorf("inference.service_url: %w", err)
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.TopicPrefix == "" {
			cfg.MQTT.TopicPrefix = "safeaging"
		}
		if cfg.MQTT.QoS == nil {
			cfg.MQTT.QoS = map[string]byte{
				"objects": 0,
				"events":  1,
			}
		}
		for kind, qos := range cfg.MQTT.QoS {
			if qos > 2 {
				return fmt.Errorf("mqtt.qos[%s] must be 0, 1 or 2", kind)
			}
		}
	}

	if cfg.Redis.Enabled {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when redis is enabled")
		}
		if cfg.Redis.StreamPrefix == "" {
			cfg.Redis.StreamPrefix = "safeaging"
		}
	}

	return nil
}
