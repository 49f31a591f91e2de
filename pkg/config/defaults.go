package config

const (
	defaultClientTarget = "http://localhost:8000"

	defaultChunkSize        = 32 * 1024
	defaultChannelBuffer    = 16
	defaultMaxDroppedFrames = 0

	defaultTranscriptsProvider = "sqlite"
	defaultTranscriptsWorkers  = 3
	defaultTranscriptsQueue    = 256

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "fleet.chat.sessions"

	defaultReplayListen = ":8000"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
		Stream: StreamConfig{
			ChunkSize:        defaultChunkSize,
			ChannelBuffer:    defaultChannelBuffer,
			MaxDroppedFrames: defaultMaxDroppedFrames,
		},
		Transcripts: TranscriptsConfig{
			Enabled:   true,
			Provider:  defaultTranscriptsProvider,
			Workers:   defaultTranscriptsWorkers,
			QueueSize: defaultTranscriptsQueue,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Replay: ReplayConfig{
			Listen: defaultReplayListen,
		},
	}
}
