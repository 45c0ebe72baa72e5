package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"parlor/internal/content"
	"parlor/internal/hub"
	"parlor/internal/models"
)

type wsConnection interface {
	Close() error
	WriteJSON(v any) error
	ReadJSON(v any) error
}

type eventHub interface {
	Register() *hub.Session
	BindUser(s *hub.Session, userID int64)
	JoinRoom(s *hub.Session, roomID models.RoomID, roomName string, userID int64)
	SendMessage(s *hub.Session, roomID models.RoomID, senderID int64, username, body string)
	Typing(s *hub.Session, roomID models.RoomID, username string)
	StopTyping(s *hub.Session, roomID models.RoomID)
	ProfileUpdated(s *hub.Session)
	Disconnect(s *hub.Session)
}

// Connection pumps events between one websocket client and the hub. Events
// from a single connection are processed in arrival order.
type Connection struct {
	ws         wsConnection
	hub        eventHub
	sess       *hub.Session
	fromClient chan models.ClientEvent
	errorCh    chan error
}

func NewConnection(h eventHub, ws wsConnection) *Connection {
	return &Connection{
		ws:         ws,
		hub:        h,
		sess:       h.Register(),
		fromClient: make(chan models.ClientEvent),
		errorCh:    make(chan error, 2),
	}
}

func (c *Connection) Handle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(c.fromClient)
		close(c.errorCh)
		c.hub.Disconnect(c.sess)
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		c.errorCh <- c.pumpEvents(ctx)
		cancel()
	})

	wg.Go(func() {
		c.errorCh <- c.mainLoop(ctx)
		cancel()
	})

	var err error
	select {
	case err = <-c.errorCh:
	case <-ctx.Done():
	}
	c.ws.Close()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (c *Connection) pumpEvents(ctx context.Context) error {
	for {
		var raw json.RawMessage
		if err := c.ws.ReadJSON(&raw); err != nil {
			return err
		}

		var ev models.ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			// Malformed payloads are a per-event client error, not fatal to
			// the connection.
			slog.Warn("dropping malformed client event", "session_id", c.sess.ID(), "error", err)
			continue
		}

		select {
		case c.fromClient <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Connection) mainLoop(ctx context.Context) error {
	for {
		select {
		case ev := <-c.fromClient:
			c.processClientEvent(ev)
		case ev, ok := <-c.sess.Events():
			if !ok {
				return nil
			}
			if err := c.ws.WriteJSON(ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Connection) processClientEvent(ev models.ClientEvent) {
	switch ev.Type {
	case models.ClientEventUserConnected:
		c.hub.BindUser(c.sess, ev.UserID)
	case models.ClientEventJoinRoom:
		// Room names are normalized here, once, at the boundary. The
		// registry stores exactly what it is given.
		name := strings.ToUpper(strings.TrimSpace(ev.RoomName))
		if ev.RoomID == 0 || content.ValidateRoomName(name) != nil {
			slog.Warn("rejecting join with invalid room",
				"session_id", c.sess.ID(), "room_id", ev.RoomID, "room_name", ev.RoomName)
			return
		}
		c.hub.JoinRoom(c.sess, ev.RoomID, name, ev.UserID)
	case models.ClientEventSendMessage:
		c.hub.SendMessage(c.sess, ev.RoomID, ev.SenderID, ev.Username, ev.Content)
	case models.ClientEventTyping:
		c.hub.Typing(c.sess, ev.RoomID, ev.Username)
	case models.ClientEventStopTyping:
		c.hub.StopTyping(c.sess, ev.RoomID)
	case models.ClientEventProfileUpdated:
		c.hub.ProfileUpdated(c.sess)
	default:
		slog.Warn("unknown client event", "session_id", c.sess.ID(), "type", ev.Type)
	}
}
