package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/arbaaz/klarity-sync/internal/klarity"
	"github.com/arbaaz/klarity-sync/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	server := NewServer(&Config{
		Addr:   "127.0.0.1:0",
		Logger: log.New(io.Discard, "", 0),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("starting dashboard: %v", err)
	}
	t.Cleanup(func() {
		if err := server.Stop(); err != nil {
			t.Errorf("stopping dashboard: %v", err)
		}
	})
	return server
}

// dialTestClient connects a client and consumes the greeting, so later
// broadcasts are the next frames read.
func dialTestClient(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dialing dashboard: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	greeting := readMessage(t, ctx, conn)
	if greeting.Type != MessageTypeStatus {
		t.Fatalf("greeting type = %q, want %q", greeting.Type, MessageTypeStatus)
	}
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("reading dashboard frame: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshaling dashboard frame: %v", err)
	}
	return msg
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(&Config{
		Addr:   "127.0.0.1:0",
		Logger: log.New(io.Discard, "", 0),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("starting dashboard: %v", err)
	}
	if server.Addr() == "" {
		t.Error("bound address is empty")
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("stopping dashboard: %v", err)
	}
}

func TestGreetingAndClientCount(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialTestClient(t, ctx, server)

	if count := server.ClientCount(); count != 1 {
		t.Errorf("ClientCount = %d, want 1", count)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns := []*websocket.Conn{
		dialTestClient(t, ctx, server),
		dialTestClient(t, ctx, server),
		dialTestClient(t, ctx, server),
	}
	if count := server.ClientCount(); count != len(conns) {
		t.Fatalf("ClientCount = %d, want %d", count, len(conns))
	}

	payload, _ := json.Marshal(NoteSyncedData{NoteID: "n-1", Title: "Standup", Processed: 1, Total: 4})
	server.Broadcast(Message{Type: MessageTypeNoteSynced, Data: payload})

	for i, conn := range conns {
		msg := readMessage(t, ctx, conn)
		if msg.Type != MessageTypeNoteSynced {
			t.Errorf("client %d: type = %q, want %q", i, msg.Type, MessageTypeNoteSynced)
		}
		if msg.Timestamp.IsZero() {
			t.Errorf("client %d: timestamp not filled in", i)
		}

		var got NoteSyncedData
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("client %d: unmarshaling payload: %v", i, err)
		}
		if got.NoteID != "n-1" || got.Processed != 1 || got.Total != 4 {
			t.Errorf("client %d: payload = %+v", i, got)
		}
	}
}

func TestNotifierPublishesCycleEvents(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestClient(t, ctx, server)
	n := server.Notifier()

	note := types.Note{ID: "n-7", Title: "Retro"}
	n.SyncStarted(types.TriggerManual)
	n.NoteSynced(note, 1, 1)
	n.NoteFailed(note, "permission denied")
	n.SyncCompleted(types.Summary{Trigger: types.TriggerManual, Written: 1})

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncStarted {
		t.Fatalf("first event type = %q, want %q", msg.Type, MessageTypeSyncStarted)
	}
	var started SyncStartedData
	if err := json.Unmarshal(msg.Data, &started); err != nil {
		t.Fatal(err)
	}
	if started.Trigger != string(types.TriggerManual) {
		t.Errorf("trigger = %q, want manual", started.Trigger)
	}

	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeNoteSynced {
		t.Fatalf("second event type = %q, want %q", msg.Type, MessageTypeNoteSynced)
	}
	var synced NoteSyncedData
	if err := json.Unmarshal(msg.Data, &synced); err != nil {
		t.Fatal(err)
	}
	if synced.NoteID != "n-7" || synced.Title != "Retro" {
		t.Errorf("synced payload = %+v", synced)
	}

	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeNoteFailed {
		t.Fatalf("third event type = %q, want %q", msg.Type, MessageTypeNoteFailed)
	}
	var failed NoteFailedData
	if err := json.Unmarshal(msg.Data, &failed); err != nil {
		t.Fatal(err)
	}
	if failed.Reason != "permission denied" {
		t.Errorf("failure reason = %q", failed.Reason)
	}

	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncComplete {
		t.Fatalf("fourth event type = %q, want %q", msg.Type, MessageTypeSyncComplete)
	}
	var sum types.Summary
	if err := json.Unmarshal(msg.Data, &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Written != 1 || sum.Trigger != types.TriggerManual {
		t.Errorf("summary payload = %+v", sum)
	}
}

func TestNotifierSyncFailed(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestClient(t, ctx, server)

	fetchErr := &klarity.Error{Kind: klarity.KindServer, Message: "Klarity server error (HTTP 500); try again later"}
	server.Notifier().SyncFailed(types.TriggerScheduled, fetchErr)

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncError {
		t.Fatalf("event type = %q, want %q", msg.Type, MessageTypeSyncError)
	}

	var got SyncErrorData
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Kind != string(klarity.KindServer) {
		t.Errorf("kind = %q, want server", got.Kind)
	}
	if got.Trigger != string(types.TriggerScheduled) {
		t.Errorf("trigger = %q, want scheduled", got.Trigger)
	}
	if got.Error == "" {
		t.Error("error text missing")
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialTestClient(t, ctx, server)

	resp, err := http.Get("http://" + server.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var health struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decoding health response: %v", err)
	}
	if health.Status != "ok" || health.Clients != 1 {
		t.Errorf("health = %+v, want ok with 1 client", health)
	}
}
