package api_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type liveReply struct {
	Type    string `json:"type"`
	Verdict *struct {
		StoredStatus string `json:"stored_status"`
		Downgraded   bool   `json:"downgraded"`
	} `json:"verdict"`
	Nodes []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"nodes"`
	Error string `json:"error"`
}

func dialLive(t *testing.T, userID string) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(newTestServer(t, nil))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/users/" + userID + "/live"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func readReply(t *testing.T, ctx context.Context, conn *websocket.Conn) liveReply {
	t.Helper()
	var r liveReply
	if err := wsjson.Read(ctx, conn, &r); err != nil {
		t.Fatalf("wsjson.Read() error = %v", err)
	}
	return r
}

func TestLive_ProgressThenPath(t *testing.T) {
	conn, ctx := dialLive(t, "u1")

	if err := wsjson.Write(ctx, conn, map[string]any{
		"type":       "progress",
		"topic_id":   "A",
		"status":     "completed",
		"quiz_score": 60,
	}); err != nil {
		t.Fatalf("wsjson.Write() error = %v", err)
	}

	verdict := readReply(t, ctx, conn)
	if verdict.Type != "verdict" || verdict.Verdict == nil || !verdict.Verdict.Downgraded {
		t.Fatalf("first reply = %+v, want downgraded verdict", verdict)
	}
	if verdict.Verdict.StoredStatus != "in_progress" {
		t.Errorf("stored_status = %s, want in_progress", verdict.Verdict.StoredStatus)
	}

	path := readReply(t, ctx, conn)
	if path.Type != "path" || len(path.Nodes) != 3 {
		t.Fatalf("second reply = %+v, want path with 3 nodes", path)
	}
	if path.Nodes[0].ID != "A" || path.Nodes[0].Status != "in_progress" {
		t.Errorf("first node = %+v, want A in_progress", path.Nodes[0])
	}
}

func TestLive_PathWithKnownTopics(t *testing.T) {
	conn, ctx := dialLive(t, "u2")

	if err := wsjson.Write(ctx, conn, map[string]any{"type": "path", "known_topics": []string{"A", "B"}}); err != nil {
		t.Fatalf("wsjson.Write() error = %v", err)
	}
	r := readReply(t, ctx, conn)
	if r.Type != "path" || len(r.Nodes) != 1 || r.Nodes[0].ID != "C" || r.Nodes[0].Status != "available" {
		t.Errorf("reply = %+v, want only C available", r)
	}
}

func TestLive_Errors(t *testing.T) {
	conn, ctx := dialLive(t, "u3")

	for _, msg := range []map[string]any{
		{"type": "dance"},
		{"type": "progress", "topic_id": "Z", "status": "completed"},
	} {
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			t.Fatalf("wsjson.Write() error = %v", err)
		}
		r := readReply(t, ctx, conn)
		if r.Type != "error" || r.Error == "" {
			t.Errorf("reply to %v = %+v, want error", msg, r)
		}
	}
}
