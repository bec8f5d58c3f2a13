package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-pathfinder/internal/pathing"
)

const liveWriteTimeout = 5 * time.Second

// Message types on the live feed.
const (
	liveTypeProgress = "progress"
	liveTypePath     = "path"
	liveTypeVerdict  = "verdict"
	liveTypeError    = "error"
)

type liveMessage struct {
	Type        string   `json:"type"`
	KnownTopics []string `json:"known_topics,omitempty"`
	progressBody
}

type liveReply struct {
	Type    string                     `json:"type"`
	Verdict *pathing.Verdict           `json:"verdict,omitempty"`
	Nodes   []pathing.LearningPathNode `json:"nodes,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

// handleLive serves a WebSocket on which the client submits progress and
// asks for its path. Every accepted progress message is answered with the
// verdict followed by the recomputed adaptive path.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "user_id", userID, "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	slog.Info("live session started", "user_id", userID)

	var known []string
	for {
		var msg liveMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("live session closed", "user_id", userID)
			} else if !errors.Is(err, context.Canceled) {
				slog.Warn("live session read failed", "user_id", userID, "error", err)
			}
			return
		}

		if msg.KnownTopics != nil {
			known = msg.KnownTopics
		}

		var replies []liveReply
		switch msg.Type {
		case liveTypeProgress:
			verdict, err := s.svc.SubmitProgress(ctx, msg.request(userID))
			if err != nil {
				replies = append(replies, errorReply(err))
				break
			}
			replies = append(replies, liveReply{Type: liveTypeVerdict, Verdict: &verdict})
			replies = append(replies, s.livePath(ctx, userID, known))
		case liveTypePath:
			replies = append(replies, s.livePath(ctx, userID, known))
		default:
			replies = append(replies, liveReply{Type: liveTypeError, Error: "unknown message type " + msg.Type})
		}

		for _, reply := range replies {
			if err := s.writeLive(ctx, conn, reply); err != nil {
				slog.Warn("live session write failed", "user_id", userID, "error", err)
				return
			}
		}
	}
}

func (s *Server) livePath(ctx context.Context, userID string, known []string) liveReply {
	nodes, err := s.svc.ResolveAdaptivePath(ctx, userID, known)
	if err != nil {
		return errorReply(err)
	}
	return liveReply{Type: liveTypePath, Nodes: nodes}
}

func (s *Server) writeLive(ctx context.Context, conn *websocket.Conn, reply liveReply) error {
	ctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, reply)
}

func errorReply(err error) liveReply {
	_, msg := errorStatus(err)
	return liveReply{Type: liveTypeError, Error: msg}
}
