// Package backends builds the transcript store and session event publisher
// selected by configuration.
package backends

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/papercomputeco/fleet/cmd/fleet/sqlitepath"
	"github.com/papercomputeco/fleet/pkg/config"
	"github.com/papercomputeco/fleet/pkg/eventstream"
	"github.com/papercomputeco/fleet/pkg/eventstream/kafka"
	"github.com/papercomputeco/fleet/pkg/eventstream/nop"
	"github.com/papercomputeco/fleet/pkg/transcript"
	"github.com/papercomputeco/fleet/pkg/transcript/inmemory"
	"github.com/papercomputeco/fleet/pkg/transcript/postgres"
	"github.com/papercomputeco/fleet/pkg/transcript/redis"
	"github.com/papercomputeco/fleet/pkg/transcript/sqlite"
	"github.com/papercomputeco/fleet/pkg/transcript/worker"
)

// Transcript storage providers.
const (
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
	ProviderRedis    = "redis"
	ProviderMemory   = "memory"
)

// Session event providers.
const (
	PublisherNop   = "nop"
	PublisherKafka = "kafka"
)

// NewTranscriptDriver opens the transcript store named by
// transcripts.provider.
func NewTranscriptDriver(ctx context.Context, v *viper.Viper, configDir string, l *slog.Logger) (transcript.Driver, error) {
	provider := v.GetString("transcripts.provider")

	switch provider {
	case ProviderSQLite, "":
		path, err := SQLitePath(v, configDir)
		if err != nil {
			return nil, err
		}

		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite transcript store: %w", err)
		}
		l.Debug("using SQLite transcript storage", "path", path)
		return driver, nil

	case ProviderPostgres:
		dsn := v.GetString("transcripts.postgres_dsn")
		if dsn == "" {
			return nil, fmt.Errorf("transcripts.postgres_dsn is required for the %s provider", ProviderPostgres)
		}

		driver, err := postgres.NewDriver(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL transcript store: %w", err)
		}
		l.Debug("using PostgreSQL transcript storage")
		return driver, nil

	case ProviderRedis:
		url := v.GetString("transcripts.redis_url")
		if url == "" {
			return nil, fmt.Errorf("transcripts.redis_url is required for the %s provider", ProviderRedis)
		}

		driver, err := redis.NewDriver(ctx, url, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis transcript store: %w", err)
		}
		l.Debug("using Redis transcript storage")
		return driver, nil

	case ProviderMemory:
		l.Debug("using in-memory transcript storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown transcripts provider: %q", provider)
	}
}

// SQLitePath resolves the database file of the SQLite transcript store.
func SQLitePath(v *viper.Viper, configDir string) (string, error) {
	return sqlitepath.ResolveSQLitePath(v.GetString("transcripts.sqlite_path"), configDir)
}

// NewPublisher builds the session event publisher named by
// eventstream.provider.
func NewPublisher(v *viper.Viper, l *slog.Logger) (eventstream.Publisher, error) {
	provider := v.GetString("eventstream.provider")

	switch provider {
	case PublisherNop, "":
		return nop.NewPublisher(l), nil

	case PublisherKafka:
		brokers := config.StringSlice(v, "eventstream.brokers")
		topic := v.GetString("eventstream.topic")

		p, err := kafka.NewPublisher(kafka.Config{Brokers: brokers, Topic: topic})
		if err != nil {
			return nil, err
		}
		l.Debug("publishing session events to kafka", "brokers", brokers, "topic", topic)
		return p, nil

	default:
		return nil, fmt.Errorf("unknown eventstream provider: %q", provider)
	}
}

// Recording is the transcript pipeline of a chat client.
type Recording struct {
	Pool      *worker.Pool
	Driver    transcript.Driver
	Publisher eventstream.Publisher
}

// NewRecording opens the store and publisher and starts the worker pool.
func NewRecording(ctx context.Context, v *viper.Viper, configDir string, l *slog.Logger) (*Recording, error) {
	driver, err := NewTranscriptDriver(ctx, v, configDir, l)
	if err != nil {
		return nil, err
	}

	publisher, err := NewPublisher(v, l)
	if err != nil {
		driver.Close()
		return nil, err
	}

	workers := v.GetInt("transcripts.workers")
	queue := v.GetInt("transcripts.queue_size")
	if workers < 0 || queue < 0 {
		driver.Close()
		publisher.Close()
		return nil, fmt.Errorf("transcript workers and queue size must not be negative")
	}

	pool, err := worker.NewPool(&worker.Config{
		Driver:     driver,
		Publisher:  publisher,
		NumWorkers: uint(workers),
		QueueSize:  uint(queue),
		Logger:     l,
	})
	if err != nil {
		driver.Close()
		publisher.Close()
		return nil, fmt.Errorf("starting transcript workers: %w", err)
	}

	return &Recording{
		Pool:      pool,
		Driver:    driver,
		Publisher: publisher,
	}, nil
}

// Close drains the pool and then closes the publisher and the store.
func (r *Recording) Close() error {
	r.Pool.Close()

	perr := r.Publisher.Close()
	derr := r.Driver.Close()
	if perr != nil {
		return perr
	}
	return derr
}
