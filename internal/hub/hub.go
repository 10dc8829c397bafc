package hub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"tolk/internal/domain"
)

const textMessage = 1

// wsConn is the subset of a websocket connection the hub needs; tests
// substitute fakes.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Hub is a process-scoped room registry. Each room is a topic; publishing an
// utterance fans it out to every live subscriber of that room. The transport
// is best-effort at-least-once: subscribers de-duplicate by utterance ID on
// their side.
type Hub struct {
	log *zap.Logger

	mu    sync.Mutex
	rooms map[string]map[*subscriber]struct{}
}

type subscriber struct {
	writeMu sync.Mutex
	conn    wsConn
}

func New(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:   log,
		rooms: make(map[string]map[*subscriber]struct{}),
	}
}

// Serve registers the connection as a room subscriber and blocks until the
// peer disconnects. Incoming frames are drained and discarded; the channel
// is broadcast-only.
func (h *Hub) Serve(roomID string, conn wsConn) {
	sub := &subscriber{conn: conn}

	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*subscriber]struct{})
	}
	h.rooms[roomID][sub] = struct{}{}
	count := len(h.rooms[roomID])
	h.mu.Unlock()

	h.log.Info("subscriber joined", zap.String("room", roomID), zap.Int("subscribers", count))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.drop(roomID, sub)
	h.log.Info("subscriber left", zap.String("room", roomID))
}

// Publish fans the utterance out to every subscriber of the room. A failed
// write drops that subscriber; delivery is best-effort.
func (h *Hub) Publish(roomID string, u domain.Utterance) {
	payload, err := json.Marshal(u)
	if err != nil {
		h.log.Error("failed to encode utterance", zap.Error(err))
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.rooms[roomID]))
	for sub := range h.rooms[roomID] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.writeMu.Lock()
		err := sub.conn.WriteMessage(textMessage, payload)
		sub.writeMu.Unlock()
		if err != nil {
			h.log.Warn("dropping dead subscriber", zap.String("room", roomID), zap.Error(err))
			h.drop(roomID, sub)
			_ = sub.conn.Close()
		}
	}

	h.log.Info("utterance published",
		zap.String("room", roomID),
		zap.String("id", u.ID),
		zap.String("source", u.SourceLanguage),
	)
}

// SubscriberCount reports the live subscribers of a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

func (h *Hub) drop(roomID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.rooms[roomID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}
