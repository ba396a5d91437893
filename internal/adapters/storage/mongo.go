package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rollcall/internal/adapters/http/perf"
)

// Document collection names.
const (
	ActivitiesCollection      = "activities"
	ActivityConfigsCollection = "activity_configs"
)

// OpenMongo connects to uri, pings the primary and returns the named database.
// Command timings are recorded to collector when it is non-nil.
// PRE: uri is a mongodb:// or mongodb+srv:// URI
// POST: Returns a connected client; caller must Disconnect it
func OpenMongo(ctx context.Context, uri, database string, collector *perf.Collector, slowMs int) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().ApplyURI(uri)
	if collector != nil {
		opts.SetMonitor(NewCommandMonitor(collector, slowMs))
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(database), nil
}

// NewCommandMonitor records each driver command to collector the way TimedDB records SQL.
func NewCommandMonitor(collector *perf.Collector, slowMs int) *event.CommandMonitor {
	if slowMs <= 0 {
		slowMs = DefaultSlowQueryMs
	}
	threshold := float64(slowMs)

	finish := func(e event.CommandFinishedEvent, failed bool) {
		durationMs := float64(e.Duration.Microseconds()) / 1000.0
		op := "mongo " + e.CommandName
		if durationMs >= threshold {
			slog.Warn("slow_query", "op", op, "duration_ms", durationMs, "failed", failed)
		}
		collector.Record(perf.Entry{
			Kind:       perf.KindQuery,
			Path:       op,
			Failed:     failed,
			DurationMs: durationMs,
			Timestamp:  time.Now().Add(-e.Duration),
		})
	}

	return &event.CommandMonitor{
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			finish(e.CommandFinishedEvent, false)
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			finish(e.CommandFinishedEvent, true)
		},
	}
}

// WatchCollections opens a change stream on each collection and calls onChange
// after every event until ctx is cancelled. A stream that errors is reopened
// after retryDelay.
func WatchCollections(ctx context.Context, db *mongo.Database, names []string, retryDelay time.Duration, onChange func(collection string)) {
	for _, name := range names {
		go watchOne(ctx, db.Collection(name), retryDelay, onChange)
	}
}

func watchOne(ctx context.Context, coll *mongo.Collection, retryDelay time.Duration, onChange func(string)) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{
		"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}},
	}}}}
	for {
		stream, err := coll.Watch(ctx, pipeline)
		if err == nil {
			for stream.Next(ctx) {
				onChange(coll.Name())
			}
			err = stream.Err()
			stream.Close(context.Background())
		}
		if ctx.Err() != nil {
			return
		}
		slog.Warn("change_stream_interrupted", "collection", coll.Name(), "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}
