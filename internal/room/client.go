package room

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"tolk/internal/domain"
	"tolk/internal/ports"
)

// Config controls the channel client.
type Config struct {
	// BaseURL is the hub base, e.g. http://localhost:7300. It is rewritten to
	// the websocket scheme when dialing.
	BaseURL string
	// Language is the receiver's configured language. Utterances whose source
	// language differs are spoken aloud; the producer's own echo is not.
	Language string
}

// Client binds rooms to their utterance streams. One live binding per room;
// received utterances feed the transcript store and, when the source language
// differs from the receiver's, playback.
type Client struct {
	cfg     Config
	dialer  *websocket.Dialer
	store   *TranscriptStore
	speaker ports.Speaker
	events  ports.EventSink

	mu     sync.Mutex
	bound  map[string]*Subscription
	closed bool
}

func NewClient(cfg Config, store *TranscriptStore, speaker ports.Speaker, events ports.EventSink) *Client {
	return &Client{
		cfg:     cfg,
		dialer:  websocket.DefaultDialer,
		store:   store,
		speaker: speaker,
		events:  events,
		bound:   make(map[string]*Subscription),
	}
}

// Store exposes the client's transcript store.
func (c *Client) Store() *TranscriptStore { return c.store }

// Subscribe opens the room's utterance stream. Subscribing to a room that is
// already bound returns the existing subscription.
func (c *Client) Subscribe(ctx context.Context, roomID string) (ports.Subscription, error) {
	c.mu.Lock()
	if existing, ok := c.bound[roomID]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.mu.Unlock()

	wsURL, err := topicURL(c.cfg.BaseURL, roomID)
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to room channel: %w", err)
	}

	sub := &Subscription{
		room:     roomID,
		conn:     conn,
		client:   c,
		readDone: make(chan struct{}),
	}

	c.mu.Lock()
	if existing, ok := c.bound[roomID]; ok {
		// Lost the race; keep the first binding.
		c.mu.Unlock()
		_ = conn.Close()
		return existing, nil
	}
	c.bound[roomID] = sub
	c.mu.Unlock()

	go sub.readLoop()
	return sub, nil
}

// Close tears down every live binding.
func (c *Client) Close() {
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.bound))
	for _, sub := range c.bound {
		subs = append(subs, sub)
	}
	c.closed = true
	c.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
}

func (c *Client) unbind(sub *Subscription) {
	c.mu.Lock()
	if c.bound[sub.room] == sub {
		delete(c.bound, sub.room)
	}
	c.mu.Unlock()
}

// receive offers the utterance to the store and routes playback. Playback
// fires only when the utterance's source language differs from the
// receiver's own; the producer relies on the transcript echo instead of
// hearing their voice replayed.
func (c *Client) receive(u domain.Utterance) {
	if !c.store.Add(u) {
		return
	}

	played := false
	if u.SourceLanguage != c.cfg.Language && c.speaker != nil && u.TranslatedText != "" {
		c.speaker.Speak(u.TranslatedText, c.cfg.Language)
		played = true
	}
	c.events.UtteranceReceived(u, played)
}

// Subscription is one live room binding.
type Subscription struct {
	room   string
	conn   *websocket.Conn
	client *Client

	closeOnce sync.Once
	readDone  chan struct{}
}

func (s *Subscription) Room() string { return s.room }

// Close releases the channel binding and its connection. Idempotent.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.client.unbind(s)
		_ = s.conn.Close()
		<-s.readDone
	})
	return nil
}

func (s *Subscription) readLoop() {
	defer close(s.readDone)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) && !isClosedConn(err) {
				s.client.events.SessionError(domain.ErrorCodeChannel, err.Error())
			}
			go s.Close()
			return
		}

		var u domain.Utterance
		if err := json.Unmarshal(payload, &u); err != nil || u.ID == "" {
			continue
		}
		s.client.receive(u)
	}
}

func isClosedConn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "use of closed network connection")
}

// topicURL derives the room's topic endpoint deterministically from the room
// identifier.
func topicURL(base string, roomID string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", fmt.Errorf("room channel base URL is not configured")
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	topic, err := url.Parse(base + "/rooms/" + url.PathEscape(roomID) + "/ws")
	if err != nil {
		return "", fmt.Errorf("invalid room channel URL: %w", err)
	}
	return topic.String(), nil
}
