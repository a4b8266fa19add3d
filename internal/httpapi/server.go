// Package httpapi is a demo-only HTTP surface over a taskcore.Runtime: it
// accepts task submissions and streams their message queue over SSE. It is
// not part of the core library's product surface (no wire protocol is
// specified by the task model itself); no other package in this module
// imports it.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/taskcore"
	"github.com/aretw0/tasking/pkg/taskview"
	"github.com/go-chi/chi/v5"
	oapiruntime "github.com/oapi-codegen/runtime"
)

// Server exposes a Runtime's submit/status/stream operations over HTTP.
type Server struct {
	rt      *taskcore.Runtime
	streams *streamManager
	logger  *slog.Logger
}

// NewHandler builds the chi-routed http.Handler backing rt. A failure
// loading the embedded OpenAPI spec is returned rather than panicking.
func NewHandler(rt *taskcore.Runtime, logger *slog.Logger) (http.Handler, error) {
	if _, err := loadSpec(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{rt: rt, streams: newStreamManager(), logger: logger}

	r := chi.NewRouter()
	r.Get("/openapi.yaml", s.getSpec)
	r.Post("/tasks", s.submitTask)
	r.Get("/tasks/{id}", s.getTask)
	r.Get("/tasks/{id}/events", s.streamTaskEvents)
	return r, nil
}

func (s *Server) getSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	w.Write(rawSpec)
}

type submitTaskRequest struct {
	Title    string `json:"title"`
	Template string `json:"template"`
	Input    string `json:"input"`
}

type taskAccepted struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	var body submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	root, err := s.rt.Submit(body.Title, body.Template, body.Input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outQueue := queue.New[message.Message](32)
	go s.relay(root.GetID(), outQueue)
	go func() {
		defer outQueue.Close()
		if err := s.rt.Run(context.Background(), root, outQueue); err != nil {
			s.logger.Error("task run failed", "id", root.GetID(), "err", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(taskAccepted{ID: root.GetID(), State: string(root.GetCurrentState())})
}

// relay drains outQueue onto the per-task SSE stream until it closes.
func (s *Server) relay(taskID string, outQueue *queue.Queue[message.Message]) {
	for {
		msg, ok, err := outQueue.Get(context.Background())
		if err != nil || !ok {
			return
		}
		payload, _ := json.Marshal(map[string]any{"role": msg.Role, "text": msg.Text()})
		s.streams.broadcast(taskID, string(payload))
	}
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := oapiruntime.BindStyledParameter("simple", false, "id", chi.URLParam(r, "id"), &id); err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	node, err := s.rt.Registry.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var format string
	if raw := r.URL.Query().Get("format"); raw != "" {
		if err := oapiruntime.BindStyledParameter("form", true, "format", raw, &format); err != nil {
			http.Error(w, "invalid format", http.StatusBadRequest)
			return
		}
	}

	if format == "markdown" {
		w.Header().Set("Content-Type", "text/markdown")
		fmt.Fprint(w, taskview.TreeMarkdown(node))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":    node.GetID(),
		"state": node.GetCurrentState(),
		"error": node.GetErrorInfo(),
	})
}

func (s *Server) streamTaskEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.subscribe(id)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
