package hub

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tolk/internal/domain"
	"tolk/internal/ports"
	"tolk/internal/translate"
)

// Server exposes the hub over HTTP: one websocket topic per room plus the
// utterance submission endpoint that runs the translation capability.
type Server struct {
	app    *fiber.App
	hub    *Hub
	engine ports.TranslationEngine
	log    *zap.Logger
}

func NewServer(h *Hub, engine ports.TranslationEngine, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		app:    fiber.New(fiber.Config{DisableStartupMessage: true, BodyLimit: 32 << 20}),
		hub:    h,
		engine: engine,
		log:    log,
	}

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Use("/rooms/:room/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/rooms/:room/ws", websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()
		s.hub.Serve(conn.Params("room"), conn)
	}))

	s.app.Post("/rooms/:room/utterances", s.handleUtterance)

	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleUtterance(c *fiber.Ctx) error {
	roomID := c.Params("room")

	file, err := c.FormFile("audio")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "audio file is required")
	}
	reader, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "audio file is unreadable")
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "audio file is unreadable")
	}

	payload := domain.Payload{Data: data, MediaType: c.FormValue("mediaType")}
	sourceLang := c.FormValue("sourceLanguage")
	targetLang := c.FormValue("targetLanguage")
	if sourceLang == "" || targetLang == "" {
		return fiber.NewError(fiber.StatusBadRequest, "sourceLanguage and targetLanguage are required")
	}

	original, translated, err := s.engine.Translate(c.UserContext(), payload, sourceLang, targetLang)
	if err != nil {
		return s.mapEngineError(roomID, err)
	}

	utterance := domain.Utterance{
		ID:             uuid.NewString(),
		SourceLanguage: sourceLang,
		OriginalText:   original,
		TranslatedText: translated,
		ProducedAt:     time.Now().UTC(),
	}
	s.hub.Publish(roomID, utterance)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": utterance.ID})
}

func (s *Server) mapEngineError(roomID string, err error) error {
	s.log.Warn("translation failed", zap.String("room", roomID), zap.Error(err))
	switch {
	case errors.Is(err, translate.ErrNoAudio):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, translate.ErrNotConfigured):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}
