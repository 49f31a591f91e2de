package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on "fleet chat", "fleet replay" and "fleet transcripts list").
type Flag struct {
	// Name is the long flag name (e.g. "target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "t"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagTarget              = "target"
	FlagModel               = "model"
	FlagChunkSize           = "chunk-size"
	FlagChannelBuffer       = "channel-buffer"
	FlagMaxDroppedFrames    = "max-dropped-frames"
	FlagTranscriptsProvider = "transcripts-provider"
	FlagSQLite              = "sqlite"
	FlagPostgres            = "postgres"
	FlagRedis               = "redis"
	FlagEventStreamProvider = "eventstream-provider"
	FlagKafkaBrokers        = "kafka-brokers"
	FlagEventStreamTopic    = "eventstream-topic"
	FlagReplayListen        = "listen"
)

// Flags is the registry of every flag bound to a config key.
var Flags = FlagSet{
	FlagTarget: {
		Name:        "target",
		Shorthand:   "t",
		ViperKey:    "client.target",
		Description: "Chat backend URL",
	},
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "client.model",
		Description: "Model requested from the chat backend",
	},
	FlagChunkSize: {
		Name:        "chunk-size",
		ViperKey:    "stream.chunk_size",
		Description: "Read buffer size of a stream session in bytes",
	},
	FlagChannelBuffer: {
		Name:        "channel-buffer",
		ViperKey:    "stream.channel_buffer",
		Description: "Events buffered between a stream session and the terminal",
	},
	FlagMaxDroppedFrames: {
		Name:        "max-dropped-frames",
		ViperKey:    "stream.max_dropped_frames",
		Description: "Warn once a session dropped more malformed frames (0 disables)",
	},
	FlagTranscriptsProvider: {
		Name:        "transcripts-provider",
		ViperKey:    "transcripts.provider",
		Description: "Transcript storage: sqlite, postgres, redis or memory",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "transcripts.sqlite_path",
		Description: "Path to the SQLite transcript database",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "transcripts.postgres_dsn",
		Description: "PostgreSQL connection string for transcripts",
	},
	FlagRedis: {
		Name:        "redis",
		ViperKey:    "transcripts.redis_url",
		Description: "Redis URL for transcripts",
	},
	FlagEventStreamProvider: {
		Name:        "eventstream-provider",
		ViperKey:    "eventstream.provider",
		Description: "Session event publisher: nop or kafka",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "eventstream.brokers",
		Description: "Comma separated Kafka brokers",
	},
	FlagEventStreamTopic: {
		Name:        "eventstream-topic",
		ViperKey:    "eventstream.topic",
		Description: "Topic session events are published to",
	},
	FlagReplayListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "replay.listen",
		Description: "Address the replay server listens on",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}

// StringSlice returns a list valued key. Values coming from a flag or an
// environment variable arrive as one comma separated string.
func StringSlice(v *viper.Viper, key string) []string {
	var out []string
	for _, s := range v.GetStringSlice(key) {
		out = append(out, SplitList(s)...)
	}
	return out
}
