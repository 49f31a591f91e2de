package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent fleet configuration stored as config.toml
// in the .fleet/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Client      ClientConfig      `toml:"client"`
	Stream      StreamConfig      `toml:"stream"`
	Transcripts TranscriptsConfig `toml:"transcripts"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Replay      ReplayConfig      `toml:"replay"`
}

// ClientConfig holds settings for commands that talk to the chat backend.
// Target is a full URL (scheme + host + port).
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
	Model  string `toml:"model,omitempty"`
}

// StreamConfig tunes stream sessions.
type StreamConfig struct {
	// ChunkSize is the read buffer size of a session in bytes.
	ChunkSize int `toml:"chunk_size,omitempty"`

	// ChannelBuffer is the buffer of channel based event delivery.
	ChannelBuffer int `toml:"channel_buffer,omitempty"`

	// MaxDroppedFrames logs a warning once a session dropped more malformed
	// frames. Zero disables the warning.
	MaxDroppedFrames int `toml:"max_dropped_frames,omitempty"`
}

// TranscriptsConfig holds session transcript storage settings.
type TranscriptsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	RedisURL    string `toml:"redis_url,omitempty"`
	Workers     int    `toml:"workers,omitempty"`
	QueueSize   int    `toml:"queue_size,omitempty"`
}

// EventStreamConfig holds session event publishing settings.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// ReplayConfig holds replay server settings.
type ReplayConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKey is one user-facing dotted key and its accessors on *Config.
type configKey struct {
	name string
	get  func(c *Config) string
	set  func(c *Config, v string) error

	// value returns the typed value, as registered with viper.
	value func(c *Config) any

	// reset copies the key from d into c.
	reset func(c, d *Config)
}

// configKeys lists every supported key in the order of the TOML sections.
var configKeys = []configKey{
	stringKey("client.target", func(c *Config) *string { return &c.Client.Target }),
	stringKey("client.model", func(c *Config) *string { return &c.Client.Model }),

	intKey("stream.chunk_size", func(c *Config) *int { return &c.Stream.ChunkSize }),
	intKey("stream.channel_buffer", func(c *Config) *int { return &c.Stream.ChannelBuffer }),
	intKey("stream.max_dropped_frames", func(c *Config) *int { return &c.Stream.MaxDroppedFrames }),

	boolKey("transcripts.enabled", func(c *Config) *bool { return &c.Transcripts.Enabled }),
	stringKey("transcripts.provider", func(c *Config) *string { return &c.Transcripts.Provider }),
	stringKey("transcripts.sqlite_path", func(c *Config) *string { return &c.Transcripts.SQLitePath }),
	stringKey("transcripts.postgres_dsn", func(c *Config) *string { return &c.Transcripts.PostgresDSN }),
	stringKey("transcripts.redis_url", func(c *Config) *string { return &c.Transcripts.RedisURL }),
	intKey("transcripts.workers", func(c *Config) *int { return &c.Transcripts.Workers }),
	intKey("transcripts.queue_size", func(c *Config) *int { return &c.Transcripts.QueueSize }),

	stringKey("eventstream.provider", func(c *Config) *string { return &c.EventStream.Provider }),
	listKey("eventstream.brokers", func(c *Config) *[]string { return &c.EventStream.Brokers }),
	stringKey("eventstream.topic", func(c *Config) *string { return &c.EventStream.Topic }),

	stringKey("replay.listen", func(c *Config) *string { return &c.Replay.Listen }),
}

var keyIndex = func() map[string]configKey {
	m := make(map[string]configKey, len(configKeys))
	for _, k := range configKeys {
		m[k.name] = k
	}
	return m
}()

// typedKey builds the accessors of a key stored in a field of type T.
func typedKey[T any](name string, field func(c *Config) *T, format func(T) string, parse func(string) (T, error)) configKey {
	return configKey{
		name: name,
		get:  func(c *Config) string { return format(*field(c)) },
		set: func(c *Config, v string) error {
			x, err := parse(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = x
			return nil
		},
		value: func(c *Config) any { return *field(c) },
		reset: func(c, d *Config) { *field(c) = *field(d) },
	}
}

func stringKey(name string, field func(c *Config) *string) configKey {
	return typedKey(name, field,
		func(s string) string { return s },
		func(v string) (string, error) { return v, nil },
	)
}

// intKey holds a non-negative integer. Zero reads as unset.
func intKey(name string, field func(c *Config) *int) configKey {
	return typedKey(name, field,
		func(n int) string {
			if n == 0 {
				return ""
			}
			return strconv.Itoa(n)
		},
		func(v string) (int, error) {
			n, err := strconv.Atoi(v)
			if err != nil {
				return 0, err
			}
			if n < 0 {
				return 0, errors.New("must not be negative")
			}
			return n, nil
		},
	)
}

func boolKey(name string, field func(c *Config) *bool) configKey {
	return typedKey(name, field, strconv.FormatBool, strconv.ParseBool)
}

// listKey is set from and read as a comma separated value.
func listKey(name string, field func(c *Config) *[]string) configKey {
	return typedKey(name, field,
		func(l []string) string { return strings.Join(l, ",") },
		func(v string) ([]string, error) { return SplitList(v), nil },
	)
}

// SplitList splits a comma separated value, dropping empty entries.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
