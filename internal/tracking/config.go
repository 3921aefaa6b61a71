package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	SinkLog   = "log"
	SinkAMQP  = "amqp"
	SinkRedis = "redis"
	SinkSQL   = "sql"
)

// SinkConfig is one entry of the tracking.sinks list. Settings holds the
// type-specific keys.
type SinkConfig struct {
	Type     string         `mapstructure:"type"`
	Settings map[string]any `mapstructure:",remain"`
}

// DecodeSinkConfigs converts the raw configuration value (as returned by viper)
// into sink configs.
func DecodeSinkConfigs(raw any) ([]SinkConfig, error) {
	if raw == nil {
		return nil, nil
	}

	var configs []SinkConfig
	if err := decode(raw, &configs); err != nil {
		return nil, fmt.Errorf("decode tracking sinks: %w", err)
	}
	return configs, nil
}

// BuildSinks opens every configured sink. Sinks opened before a failure are closed.
func BuildSinks(ctx context.Context, configs []SinkConfig, logger *zap.Logger) ([]Sink, error) {
	sinks := make([]Sink, 0, len(configs))

	for i, cfg := range configs {
		sink, err := buildSink(ctx, cfg, logger)
		if err != nil {
			for _, opened := range sinks {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("tracking sink #%d (%s): %w", i+1, cfg.Type, err)
		}
		sinks = append(sinks, sink)
	}

	return sinks, nil
}

func buildSink(ctx context.Context, cfg SinkConfig, logger *zap.Logger) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case SinkLog:
		return NewLogSink(logger), nil
	case SinkAMQP:
		var c AMQPConfig
		if err := decode(cfg.Settings, &c); err != nil {
			return nil, err
		}
		return NewAMQPSink(c)
	case SinkRedis:
		var c RedisConfig
		if err := decode(cfg.Settings, &c); err != nil {
			return nil, err
		}
		return NewRedisSink(c)
	case SinkSQL:
		var c SQLConfig
		if err := decode(cfg.Settings, &c); err != nil {
			return nil, err
		}
		return NewSQLSink(ctx, c)
	case "":
		return nil, errors.New("sink type is required")
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}

func decode(input, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
