// Package notify pushes submission progress to websocket subscribers.
package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	submodel "algojudge/internal/submission/model"
	"algojudge/pkg/utils/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingEvery  = (pongWait * 9) / 10
	sendBuffer = 16
	readLimit  = 512
)

const (
	FrameStatus = "status"
	FrameResult = "result"
	FrameError  = "error"
)

// Frame is one message sent to a subscriber.
type Frame struct {
	Type            string `json:"type"`
	SubmissionID    string `json:"submissionId"`
	Status          string `json:"status"`
	Verdict         string `json:"verdict,omitempty"`
	RuntimeMs       *int64 `json:"runtimeMs,omitempty"`
	MemoryKB        *int64 `json:"memoryKb,omitempty"`
	PassedTestCases *int   `json:"passedTestCases,omitempty"`
	TotalTestCases  *int   `json:"totalTestCases,omitempty"`
	Error           string `json:"error,omitempty"`
}

// final frames end the subscription.
func (f Frame) final() bool {
	return f.Type == FrameResult || f.Type == FrameError
}

type subscriber struct {
	send chan Frame
	done chan struct{}
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans submission events out to the websocket connections watching them.
type Hub struct {
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		subs: make(map[string]map[*subscriber]struct{}),
	}
}

// Serve upgrades the request and streams frames for submissionID until the
// submission reaches a final state, the client leaves or the hub closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, submissionID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sub, ok := h.subscribe(submissionID)
	if !ok {
		closeConn(conn, websocket.CloseGoingAway, "shutting down")
		return conn.Close()
	}
	defer h.unsubscribe(submissionID, sub)

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		_ = conn.Close()
		<-readerDone
	}()

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-sub.done:
			closeConn(conn, websocket.CloseGoingAway, "shutting down")
			return nil
		case <-readerDone:
			return nil
		case frame := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				return err
			}
			if frame.final() {
				closeConn(conn, websocket.CloseNormalClosure, frame.Type)
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

// NotifyStatus announces an intermediate status.
func (h *Hub) NotifyStatus(ctx context.Context, submissionID string, status submodel.Status) {
	h.broadcast(ctx, Frame{Type: FrameStatus, SubmissionID: submissionID, Status: string(status)})
}

// NotifyResult announces the verdict of a completed submission.
func (h *Hub) NotifyResult(ctx context.Context, status submodel.StatusSnapshot) {
	runtime, memory := status.RuntimeMs, status.MemoryKB
	passed, total := status.PassedTestCases, status.TotalTestCases
	h.broadcast(ctx, Frame{
		Type:            FrameResult,
		SubmissionID:    status.SubmissionID,
		Status:          string(submodel.StatusCompleted),
		Verdict:         string(status.Verdict),
		RuntimeMs:       &runtime,
		MemoryKB:        &memory,
		PassedTestCases: &passed,
		TotalTestCases:  &total,
	})
}

// NotifyError announces a submission the system failed to judge.
func (h *Hub) NotifyError(ctx context.Context, submissionID, message string) {
	h.broadcast(ctx, Frame{Type: FrameError, SubmissionID: submissionID, Status: string(submodel.StatusFailed), Error: message})
}

// Subscribers returns the number of connections watching submissionID.
func (h *Hub) Subscribers(submissionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[submissionID])
}

// Close disconnects every subscriber and waits for their handlers.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for _, set := range h.subs {
		for sub := range set {
			sub.stop()
		}
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) subscribe(submissionID string) (*subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	sub := &subscriber{send: make(chan Frame, sendBuffer), done: make(chan struct{})}
	set, ok := h.subs[submissionID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[submissionID] = set
	}
	set[sub] = struct{}{}
	h.wg.Add(1)
	return sub, true
}

func (h *Hub) unsubscribe(submissionID string, sub *subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[submissionID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, submissionID)
		}
	}
	h.mu.Unlock()
	h.wg.Done()
}

func (h *Hub) broadcast(ctx context.Context, frame Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[frame.SubmissionID] {
		if !push(sub.send, frame) {
			logger.Warn(ctx, "websocket subscriber lagging, frame dropped",
				zap.String("submission_id", frame.SubmissionID),
				zap.String("frame", frame.Type),
			)
		}
	}
}

// push enqueues frame, evicting the oldest queued frame when the buffer is
// full. It reports false when a frame was lost.
func push(ch chan Frame, frame Frame) bool {
	select {
	case ch <- frame:
		return true
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- frame:
	default:
	}
	return false
}

func closeConn(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
