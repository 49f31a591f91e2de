package replay

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/logger"
	"github.com/papercomputeco/fleet/pkg/transcript"
)

// Server replays recorded transcripts over the chat streaming endpoints.
type Server struct {
	config Config
	driver transcript.Driver
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new replay server reading transcripts from driver.
func NewServer(config Config, driver transcript.Driver, l *slog.Logger) *Server {
	if l == nil {
		l = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		driver: driver,
		logger: l,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Post(chatstream.SendPath, s.handleSend)
	app.Post(chatstream.RegeneratePath, s.handleRegenerate)
	app.Get("/transcripts", s.handleListTranscripts)
	app.Get("/transcripts/:id", s.handleGetTranscript)

	return s
}

// Run starts the replay server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting replay server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting replay server",
		"listen", ln.Addr().String(),
	)
	return s.app.Listener(ln)
}

// Handler returns the server as a net/http handler, for mounting next to
// other routes. Replies are buffered in full before they are written, so
// FrameDelay has no visible effect.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Shutdown gracefully shuts down the replay server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
