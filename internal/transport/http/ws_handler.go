package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"opening-lines-quiz/internal/app"
	"opening-lines-quiz/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Mode      string `json:"mode"`
	Value     string `json:"value"`
	CadenceMs int    `json:"cadenceMs"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type connectedPayload struct {
	SessionID string `json:"sessionId"`
}

type resultsPayload struct {
	Score               int          `json:"score"`
	TotalQuestions      int          `json:"totalQuestions"`
	TotalCharactersRead int          `json:"totalCharactersRead"`
	Mode                domain.Mode  `json:"mode"`
	Value               string       `json:"value"`
	Accuracy            float64      `json:"accuracy"`
	AverageCharacters   int          `json:"averageCharacters"`
	Title               domain.Title `json:"title"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs one player's quiz
// over the connection. Closing the socket tears the session down.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// owned is the session this socket started last; another socket may
	// since have replaced it under the same id.
	var owned *app.Session
	defer func() { h.service.Leave(r.Context(), owned) }()

	send := make(chan outboundMessage[any], 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.String("session", sessionID), zap.Error(err))
				failed = true
			}
		}
	}()

	fwd := &forwarder{send: send, closeSignals: closeSignals}
	send <- outboundMessage[any]{Type: "connected", Payload: connectedPayload{SessionID: sessionID}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid start payload")
				continue
			}
			sel := domain.Selection{Mode: domain.Mode(payload.Mode), Value: payload.Value}
			cadence := time.Duration(payload.CadenceMs) * time.Millisecond
			session, err := h.service.Start(r.Context(), sessionID, sel, cadence)
			if err != nil {
				send <- errorMessage(startErrorMessage(err))
				continue
			}
			owned = session
			fwd.follow(session)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid answer payload")
				continue
			}
			if _, _, err := h.service.SubmitAnswer(r.Context(), sessionID, payload.Answer); err != nil {
				send <- errorMessage(err.Error())
			}
		case "replay":
			session, err := h.service.Replay(r.Context(), sessionID)
			if err != nil {
				send <- errorMessage(startErrorMessage(err))
				continue
			}
			owned = session
			fwd.follow(session)
		default:
			send <- errorMessage("unsupported message type")
		}
	}

	close(closeSignals)
	fwd.stop()
	close(send)
	<-writerDone
}

// forwarder pumps one session's events into the connection's send queue and
// switches over when a new session is started on the same socket.
type forwarder struct {
	send         chan<- outboundMessage[any]
	closeSignals <-chan struct{}

	mu     sync.Mutex
	cancel func()
	done   chan struct{}
}

func (f *forwarder) follow(session *app.Session) {
	f.stop()
	events, cancel := session.Subscribe()
	done := make(chan struct{})

	f.mu.Lock()
	f.cancel = cancel
	f.done = done
	f.mu.Unlock()

	go func() {
		defer close(done)
		for ev := range events {
			select {
			case f.send <- eventMessage(ev):
			case <-f.closeSignals:
				return
			}
		}
	}()
}

func (f *forwarder) stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func eventMessage(ev app.Event) outboundMessage[any] {
	switch ev.Type {
	case app.EventQuestion:
		return outboundMessage[any]{Type: string(ev.Type), Payload: ev.Question}
	case app.EventReveal:
		return outboundMessage[any]{Type: string(ev.Type), Payload: ev.Reveal}
	case app.EventFeedback:
		return outboundMessage[any]{Type: string(ev.Type), Payload: ev.Feedback}
	case app.EventResults:
		res := ev.Results
		return outboundMessage[any]{Type: string(ev.Type), Payload: resultsPayload{
			Score:               res.Score,
			TotalQuestions:      res.TotalQuestions,
			TotalCharactersRead: res.TotalCharactersRead,
			Mode:                res.Selection.Mode,
			Value:               res.Selection.Value,
			Accuracy:            res.Accuracy(),
			AverageCharacters:   res.AverageCharacters(),
			Title:               res.Title,
		}}
	}
	return errorMessage("unknown event")
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidSelection):
		return "invalid mode or value"
	case errors.Is(err, domain.ErrNoQuestions):
		return "no questions for this selection"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "nothing to replay"
	}
	return "could not start quiz"
}
