package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/export"
)

const maxDumpBytes = 4 << 20

// ExportHandler serves result downloads.
type ExportHandler struct {
	service *app.QuizService
	now     func() time.Time
}

func NewExportHandler(service *app.QuizService) *ExportHandler {
	return &ExportHandler{service: service, now: time.Now}
}

// ServeHTTP handles GET for a live learner's result and POST for a supplied {quiz,result} dump.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		data []byte
		name string
	)
	switch r.Method {
	case http.MethodGet:
		learnerID := r.URL.Query().Get("learnerId")
		if learnerID == "" {
			http.Error(w, "missing learnerId", http.StatusBadRequest)
			return
		}
		data, name, err = h.service.Export(r.Context(), learnerID, format)
	case http.MethodPost:
		var dump export.Dump
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDumpBytes)).Decode(&dump); err != nil {
			http.Error(w, "invalid export body", http.StatusBadRequest)
			return
		}
		if err := dump.Quiz.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, err = export.Encode(format, dump.Quiz, dump.Result)
		name = export.FileName(format, h.now())
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := w.Write(data); err != nil {
		log.Printf("export write error: %v", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrFlowNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
