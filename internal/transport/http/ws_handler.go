package http

import (
	"encoding/json"
	"log"
	"net/http"

	"ebcoins-quiz-service/internal/app"
	"github.com/gorilla/websocket"
)

// WSHandler streams leaderboard snapshots over a websocket.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
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

type standingPayload struct {
	Email string `json:"email"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// outbox hands messages to the single writer goroutine. push reports false
// once the writer has stopped.
type outbox struct {
	send chan outboundMessage[any]
	done <-chan struct{}
}

func (o outbox) push(msg outboundMessage[any]) bool {
	select {
	case o.send <- msg:
		return true
	case <-o.done:
		return false
	}
}

// ServeWS upgrades the request and pushes a "leaderboard" message after every
// scoring call or reset. Clients may send {"type":"standing","payload":{"email":...}}
// to receive their own position.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.Subscribe(r.Context())
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	out := outbox{send: send, done: writerDone}

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

read:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var reply outboundMessage[any]
		switch inbound.Type {
		case "standing":
			var payload standingPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Email == "" {
				reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid standing payload"}}
				break
			}
			lb, err := h.service.Leaderboard(r.Context(), payload.Email)
			if err != nil {
				reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}}
				break
			}
			reply = outboundMessage[any]{Type: "standing", Payload: lb}
		default:
			reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
		if !out.push(reply) {
			break read
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
