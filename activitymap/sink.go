package activitymap

import (
	"context"
	"encoding/json"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"

	auth "github.com/goliatone/go-auth-service"
)

// DefaultStream is the redis stream receiving activity records
const DefaultStream = "auth:activity"

// NewLogSink writes every event as a normalized record to logger.
func NewLogSink(logger auth.Logger, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		n := Normalize(event, opts...)
		logger.Info("activity",
			"verb", n.Verb,
			"actor_id", n.ActorID,
			"object_type", n.ObjectType,
			"object_id", n.ObjectID,
			"channel", n.Channel,
			"metadata", n.Metadata,
		)
		return nil
	})
}

// StreamSink appends normalized records to a redis stream.
type StreamSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
	opts   []Option
}

var _ auth.ActivitySink = (*StreamSink)(nil)

// NewStreamSink creates a sink on stream, DefaultStream when empty. A
// positive maxLen trims the stream on every append.
func NewStreamSink(client redis.UniversalClient, stream string, maxLen int64, opts ...Option) *StreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamSink{
		client: client,
		stream: stream,
		maxLen: maxLen,
		opts:   opts,
	}
}

func (s *StreamSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	n := Normalize(event, s.opts...)

	payload, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode activity record")
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"verb":     n.Verb,
			"actor_id": n.ActorID,
			"payload":  string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to append activity record").
			WithMetadata(map[string]any{"stream": s.stream})
	}
	return nil
}

// Fanout records each event on every sink, the first error is returned
// after all sinks ran.
func Fanout(sinks ...auth.ActivitySink) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		var first error
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			if err := sink.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
