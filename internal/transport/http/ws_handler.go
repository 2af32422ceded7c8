package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"vocab-tiers-service/internal/app"
	"vocab-tiers-service/internal/quiz"
)

// WSHandler drives one quiz session over a websocket. Snapshots are pushed
// after every change, including changes made through the REST API.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWSHandler(service *app.QuizService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS upgrades the request and relays answer/advance/finish/restart
// commands to the quiz service.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	userID := r.URL.Query().Get("userId")
	if sessionID == "" || userID == "" {
		http.Error(w, "missing sessionId or userId", http.StatusBadRequest)
		return
	}

	// Resolve the session before upgrading so unknown ids get a plain HTTP error.
	updates, cancel, err := h.service.Subscribe(r.Context(), userID, sessionID)
	if err != nil {
		writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
		return
	}
	defer func() { cancel() }()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections support one concurrent writer.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", "session", sessionID, "err", err)
				return
			}
		}
	}()

	// relay forwards one subscription until the session is closed or the
	// connection goes away.
	relay := func(updates <-chan quiz.Snapshot, done chan struct{}) {
		defer close(done)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}
	go relay(updates, updatesDone)
	relays := []chan struct{}{updatesDone}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerBody
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid answer payload")
				continue
			}
			ans, err := h.service.Answer(r.Context(), userID, sessionID, payload.Selected)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: ans}
		case "advance":
			if _, err := h.service.Advance(r.Context(), userID, sessionID); err != nil {
				send <- errorMessage(err.Error())
			}
		case "finish":
			done, err := h.service.Finish(r.Context(), userID, sessionID)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "finished", Payload: done}
		case "restart":
			snap, err := h.service.Restart(r.Context(), userID, sessionID)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			// The old session is gone; follow the replacement.
			sessionID = snap.ID
			next, nextCancel, err := h.service.Subscribe(r.Context(), userID, sessionID)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			cancel()
			cancel = nextCancel
			done := make(chan struct{})
			go relay(next, done)
			relays = append(relays, done)
			send <- outboundMessage[any]{Type: "restarted", Payload: snap}
		default:
			send <- errorMessage("unsupported message type")
		}
	}

	close(closeSignals)
	for _, done := range relays {
		<-done
	}
	close(send)
	<-writerDone
}
