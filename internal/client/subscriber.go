package client

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tasklist/internal/hub"
	"tasklist/internal/models"
	"tasklist/pkg/logger"
)

// Subscriber listens on tasks.subscribe and reports every revalidation event.
type Subscriber struct {
	url     string
	dialer  *websocket.Dialer
	backoff time.Duration
}

// NewSubscriber derives the websocket URL from the server base URL.
func NewSubscriber(baseURL string) *Subscriber {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return &Subscriber{
		url:     u + rpcPrefix + "tasks.subscribe",
		dialer:  websocket.DefaultDialer,
		backoff: time.Second,
	}
}

// Run delivers events to onEvent until ctx is done, reconnecting after failures.
func (s *Subscriber) Run(ctx context.Context, onEvent func(models.RevalidateEvent)) {
	for ctx.Err() == nil {
		err := s.listen(ctx, onEvent)
		if ctx.Err() != nil {
			return
		}
		logger.Debug(ctx, "Subscription dropped, reconnecting", "error", err, "url", s.url)
		select {
		case <-time.After(s.backoff):
		case <-ctx.Done():
			return
		}
	}
}

func (s *Subscriber) listen(ctx context.Context, onEvent func(models.RevalidateEvent)) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg hub.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Debug(ctx, "Ignoring malformed push", "error", err)
			continue
		}
		if msg.Type == hub.MessageTypeRevalidate {
			onEvent(msg.Data)
		}
	}
}
