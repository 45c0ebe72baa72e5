package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"parlor/internal/hub"
	"parlor/internal/models"
)

type mockWS struct {
	readCh      chan []byte
	writeCh     chan any
	closeCh     chan struct{}
	closed      bool
	errToReturn error
}

func newMockWS() *mockWS {
	return &mockWS{
		readCh:  make(chan []byte, 10),
		writeCh: make(chan any, 10),
		closeCh: make(chan struct{}),
	}
}

func (m *mockWS) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.closeCh)
	return nil
}

func (m *mockWS) WriteJSON(v any) error {
	if m.errToReturn != nil {
		return m.errToReturn
	}
	m.writeCh <- v
	return nil
}

func (m *mockWS) ReadJSON(v any) error {
	if m.errToReturn != nil {
		return m.errToReturn
	}
	select {
	case payload, ok := <-m.readCh:
		if !ok {
			return errors.New("closed")
		}
		if ptr, ok := v.(*json.RawMessage); ok {
			*ptr = payload
		}
		return nil
	case <-m.closeCh:
		return errors.New("connection closed")
	}
}

func (m *mockWS) send(t *testing.T, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	m.readCh <- payload
}

type hubCall struct {
	method string
	event  models.ClientEvent
}

type mockHub struct {
	sess         *hub.Session
	calls        chan hubCall
	disconnected chan struct{}
}

func newMockHub() *mockHub {
	return &mockHub{
		calls:        make(chan hubCall, 10),
		disconnected: make(chan struct{}, 1),
	}
}

func (m *mockHub) Register() *hub.Session {
	m.sess = hub.NewSession(10)
	return m.sess
}

func (m *mockHub) BindUser(s *hub.Session, userID int64) {
	m.calls <- hubCall{method: "BindUser", event: models.ClientEvent{UserID: userID}}
}

func (m *mockHub) JoinRoom(s *hub.Session, roomID models.RoomID, roomName string, userID int64) {
	m.calls <- hubCall{method: "JoinRoom", event: models.ClientEvent{RoomID: roomID, RoomName: roomName, UserID: userID}}
}

func (m *mockHub) SendMessage(s *hub.Session, roomID models.RoomID, senderID int64, username, body string) {
	m.calls <- hubCall{method: "SendMessage", event: models.ClientEvent{RoomID: roomID, SenderID: senderID, Username: username, Content: body}}
}

func (m *mockHub) Typing(s *hub.Session, roomID models.RoomID, username string) {
	m.calls <- hubCall{method: "Typing", event: models.ClientEvent{RoomID: roomID, Username: username}}
}

func (m *mockHub) StopTyping(s *hub.Session, roomID models.RoomID) {
	m.calls <- hubCall{method: "StopTyping", event: models.ClientEvent{RoomID: roomID}}
}

func (m *mockHub) ProfileUpdated(s *hub.Session) {
	m.calls <- hubCall{method: "ProfileUpdated"}
}

func (m *mockHub) Disconnect(s *hub.Session) {
	select {
	case m.disconnected <- struct{}{}:
	default:
	}
}

func (m *mockHub) nextCall(t *testing.T) hubCall {
	t.Helper()
	select {
	case call := <-m.calls:
		return call
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for hub call")
	}
	return hubCall{}
}

func (m *mockHub) expectNoCall(t *testing.T, window time.Duration) {
	t.Helper()
	select {
	case call := <-m.calls:
		t.Fatalf("unexpected hub call %q", call.method)
	case <-time.After(window):
	}
}

func TestConnection_Lifecycle(t *testing.T) {
	h := newMockHub()
	ws := newMockWS()

	conn := NewConnection(h, ws)
	if conn == nil {
		t.Fatal("NewConnection returned nil")
	}
	if h.sess == nil {
		t.Fatal("Register not called on NewConnection")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error)
	go func() {
		done <- conn.Handle(ctx)
	}()

	// 1. Client -> hub dispatch.
	ws.send(t, models.ClientEvent{
		Type:    models.ClientEventSendMessage,
		RoomID:  42,
		Content: "hello",
	})
	call := h.nextCall(t)
	if call.method != "SendMessage" || call.event.Content != "hello" || call.event.RoomID != 42 {
		t.Errorf("hub received wrong call: %+v", call)
	}

	// 2. Hub -> client write.
	h.sess.Deliver(models.ServerEvent{
		Type:    models.ServerEventReceiveMessage,
		RoomID:  42,
		Message: &models.Message{Content: "hi back"},
	})
	select {
	case received := <-ws.writeCh:
		ev, ok := received.(models.ServerEvent)
		if !ok {
			t.Fatalf("WS received wrong type: %T", received)
		}
		if ev.Message == nil || ev.Message.Content != "hi back" {
			t.Errorf("WS received wrong content: %+v", ev)
		}
	case <-time.After(1 * time.Second):
		t.Error("WS did not receive server event")
	}

	// 3. Stop.
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Handle returned error: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Error("Handle did not return after cancel")
	}

	select {
	case <-h.disconnected:
	default:
		t.Error("Disconnect not called")
	}
	if !ws.closed {
		t.Error("WS Close not called")
	}
}

func TestConnection_EventDispatch(t *testing.T) {
	h := newMockHub()
	ws := newMockWS()
	conn := NewConnection(h, ws)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error)
	go func() {
		done <- conn.Handle(ctx)
	}()

	ws.send(t, models.ClientEvent{Type: models.ClientEventUserConnected, UserID: 7})
	if call := h.nextCall(t); call.method != "BindUser" || call.event.UserID != 7 {
		t.Errorf("expected BindUser(7), got %+v", call)
	}

	ws.send(t, models.ClientEvent{Type: models.ClientEventJoinRoom, RoomID: 42, RoomName: "  general ", UserID: 7})
	call := h.nextCall(t)
	if call.method != "JoinRoom" {
		t.Fatalf("expected JoinRoom, got %+v", call)
	}
	if call.event.RoomName != "GENERAL" {
		t.Errorf("expected normalized room name, got %q", call.event.RoomName)
	}

	ws.send(t, models.ClientEvent{Type: models.ClientEventTyping, RoomID: 42, Username: "alice"})
	if call := h.nextCall(t); call.method != "Typing" || call.event.Username != "alice" {
		t.Errorf("expected Typing(alice), got %+v", call)
	}

	ws.send(t, models.ClientEvent{Type: models.ClientEventStopTyping, RoomID: 42})
	if call := h.nextCall(t); call.method != "StopTyping" || call.event.RoomID != 42 {
		t.Errorf("expected StopTyping(42), got %+v", call)
	}

	ws.send(t, models.ClientEvent{Type: models.ClientEventProfileUpdated})
	if call := h.nextCall(t); call.method != "ProfileUpdated" {
		t.Errorf("expected ProfileUpdated, got %+v", call)
	}

	cancel()
	<-done
}

func TestConnection_RejectsInvalidJoin(t *testing.T) {
	h := newMockHub()
	ws := newMockWS()
	conn := NewConnection(h, ws)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error)
	go func() {
		done <- conn.Handle(ctx)
	}()

	// Missing room id.
	ws.send(t, models.ClientEvent{Type: models.ClientEventJoinRoom, RoomName: "GENERAL", UserID: 7})
	// Blank room name.
	ws.send(t, models.ClientEvent{Type: models.ClientEventJoinRoom, RoomID: 42, RoomName: "   ", UserID: 7})
	h.expectNoCall(t, 100*time.Millisecond)

	// A valid join afterwards still goes through.
	ws.send(t, models.ClientEvent{Type: models.ClientEventJoinRoom, RoomID: 42, RoomName: "GENERAL", UserID: 7})
	if call := h.nextCall(t); call.method != "JoinRoom" {
		t.Errorf("expected JoinRoom, got %+v", call)
	}

	cancel()
	<-done
}

func TestConnection_MalformedPayloadNonFatal(t *testing.T) {
	h := newMockHub()
	ws := newMockWS()
	conn := NewConnection(h, ws)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error)
	go func() {
		done <- conn.Handle(ctx)
	}()

	ws.readCh <- []byte(`{"type":"join_room","roomId":{"bad":true}}`)

	// The connection survives and keeps dispatching.
	ws.send(t, models.ClientEvent{Type: models.ClientEventUserConnected, UserID: 7})
	if call := h.nextCall(t); call.method != "BindUser" {
		t.Errorf("expected BindUser after malformed payload, got %+v", call)
	}

	cancel()
	<-done
}

func TestConnection_WSError(t *testing.T) {
	h := newMockHub()
	ws := newMockWS()
	conn := NewConnection(h, ws)

	ws.errToReturn = errors.New("read error")

	done := make(chan error)
	go func() {
		done <- conn.Handle(context.Background())
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error from Handle, got nil")
		}
	case <-time.After(1 * time.Second):
		t.Error("Handle did not return on error")
	}

	if !ws.closed {
		t.Error("WS Close not called")
	}
}
