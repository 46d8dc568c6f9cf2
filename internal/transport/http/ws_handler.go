package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/export"
)

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

// generatePayload is shared by generate, image and scan. Image is base64 in JSON.
type generatePayload struct {
	Notes      string `json:"notes"`
	Image      []byte `json:"image"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
	Language   string `json:"language"`
	Topic      string `json:"topic"`
}

type answerPayload struct {
	Index  int `json:"index"`
	Option int `json:"option"`
}

type exportRequest struct {
	Format string `json:"format"`
}

type exportPayload struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one learner flow per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	learnerID := r.URL.Query().Get("learnerId")
	if learnerID == "" {
		learnerID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	flow := h.service.Open(ctx, learnerID)
	updates, cancel := flow.Subscribe()
	defer h.service.Close(context.Background(), learnerID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	var pending sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		case <-writerDone:
		}
	}
	emitError := func(message string) {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				emit(outboundMessage[any]{Type: "state", Payload: update})
			case <-closeSignals:
				return
			}
		}
	}()

	// Generation blocks on the gateway, so it runs off the read loop.
	generate := func(run func(context.Context) error) {
		pending.Add(1)
		go func() {
			defer pending.Done()
			err := run(ctx)
			switch {
			case err == nil, errors.Is(err, domain.ErrGenerationDiscarded):
			case errors.Is(err, domain.ErrGenerationInFlight):
				emitError(domain.UserMessage(err, domain.ModeText))
			case errors.Is(err, domain.ErrInvalidTransition):
				emitError(err.Error())
			}
			if err != nil {
				log.Printf("generation for %s: %v", learnerID, err)
			}
		}()
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.service.Touch(ctx, learnerID)
		switch inbound.Type {
		case "generate", "image", "scan":
			var payload generatePayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					emitError("invalid generate payload")
					continue
				}
			}
			req := domain.GenerationRequest{
				Notes:      payload.Notes,
				Image:      payload.Image,
				Difficulty: domain.Difficulty(payload.Difficulty),
				Count:      payload.Count,
				Language:   payload.Language,
				Topic:      payload.Topic,
			}
			switch inbound.Type {
			case "generate":
				generate(func(ctx context.Context) error { return flow.Generate(ctx, req) })
			case "image":
				req.Notes = ""
				generate(func(ctx context.Context) error { return flow.Generate(ctx, req) })
			default:
				generate(func(ctx context.Context) error { return flow.Scan(ctx, req) })
			}
		case "select", "confirm", "advance":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emitError("invalid answer payload")
				continue
			}
			switch inbound.Type {
			case "select":
				err = flow.Select(payload.Index, payload.Option)
			case "confirm":
				err = flow.Confirm(payload.Index)
			default:
				_, err = flow.Advance(payload.Index)
			}
			// Out-of-state answers are ignored; the next state update corrects the client.
			if err != nil && !errors.Is(err, domain.ErrInvalidSelection) {
				emitError(err.Error())
			}
		case "exit":
			if err := flow.Exit(); err != nil {
				emitError(err.Error())
			}
		case "retake":
			if err := flow.Retake(); err != nil {
				emitError(err.Error())
			}
		case "newPractice":
			flow.NewPractice()
		case "export":
			var payload exportRequest
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					emitError("invalid export payload")
					continue
				}
			}
			format, err := export.ParseFormat(payload.Format)
			if err != nil {
				emitError(err.Error())
				continue
			}
			data, name, err := flow.Export(format)
			if err != nil {
				emitError(err.Error())
				continue
			}
			emit(outboundMessage[any]{Type: "export", Payload: exportPayload{
				FileName:    name,
				ContentType: format.ContentType(),
				Data:        data,
			}})
		default:
			emitError("unsupported message type")
		}
	}

	cancelCtx()
	close(closeSignals)
	pending.Wait()
	<-updatesDone
	close(send)
	<-writerDone
}
