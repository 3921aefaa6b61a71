package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	defaultExchange = "cv_tailor_tracking"
	defaultRedisKey = "cv_tailor:tracking"
	routingPrefix   = "tracking."
)

// LogSink writes events to the application log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Write(_ context.Context, e Event) error {
	fields := []zap.Field{
		zap.String("event_id", e.ID),
		zap.String("action", e.Action),
		zap.String("session_id", e.SessionID),
	}

	switch {
	case e.Upload != nil:
		fields = append(fields,
			zap.String("filename", e.Upload.Filename),
			zap.Int("word_count", e.Upload.WordCount),
		)
	case e.Generation != nil:
		fields = append(fields,
			zap.String("company", e.Generation.Company),
			zap.Strings("job_keywords", e.Generation.JobKeywords),
			zap.Float64("match_before", e.Generation.MatchBefore),
			zap.Float64("match_after", e.Generation.MatchAfter),
		)
	}

	s.logger.Info("tracking event", fields...)
	return nil
}

func (s *LogSink) Close() error { return nil }

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes events to a topic exchange with routing key tracking.<action>.
type AMQPSink struct {
	channel  publisher
	exchange string
	closers  []func() error
}

// AMQPConfig configures the broker sink.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

func NewAMQPSink(cfg AMQPConfig) (*AMQPSink, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("amqp url is required")
	}

	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		exchange = defaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &AMQPSink{channel: ch, exchange: exchange, closers: []func() error{ch.Close, conn.Close}}, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Write(_ context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = s.channel.Publish(s.exchange, routingPrefix+e.Action, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Action, err)
	}
	return nil
}

func (s *AMQPSink) Close() error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type listPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisSink pushes JSON events onto a list.
type RedisSink struct {
	client listPusher
	key    string
	close  func() error
}

// RedisConfig configures the list sink.
type RedisConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

func NewRedisSink(cfg RedisConfig) (*RedisSink, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = defaultRedisKey
	}

	client := redis.NewClient(opts)
	return &RedisSink{client: client, key: key, close: client.Close}, nil
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := s.client.LPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("push %s: %w", e.Action, err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
