package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lokilens-mcp/internal/chat"
	"lokilens-mcp/internal/models"
	"lokilens-mcp/internal/search"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

// HTTPServer serves the MCP transport alongside the REST search and chat
// endpoints.
type HTTPServer struct {
	server       *mcp.Server
	svc          *search.Service
	orchestrator *chat.Orchestrator
	config       models.Config
}

// NewHTTPServer creates a new HTTP-based server.
func NewHTTPServer(server *mcp.Server, svc *search.Service, orchestrator *chat.Orchestrator, cfg models.Config) *HTTPServer {
	return &HTTPServer{
		server:       server,
		svc:          svc,
		orchestrator: orchestrator,
		config:       cfg,
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (h *HTTPServer) Start() error {
	addr := h.config.Host + ":" + h.config.Port

	mux := http.NewServeMux()

	// Stateless MCP handler on both root and /mcp for client flexibility.
	httpHandler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return h.server
	}, nil)
	mux.Handle("/", httpHandler)
	mux.Handle("/mcp", httpHandler)

	mux.HandleFunc("/api/search", h.handleSearch)
	mux.HandleFunc("/chat", h.handleChat)
	mux.HandleFunc("/health", h.handleHealth)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Infof("server listening on %s", addr)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case sig := <-signalChan:
		log.Infof("received signal %v, shutting down", sig)
	case err := <-serverErr:
		log.WithError(err).Error("server error")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
		return err
	}
	log.Info("server shutdown complete")
	return nil
}

// handleSearch serves POST /api/search with the canonical result JSON.
func (h *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	log.WithFields(log.Fields{
		"search_id":   req.SearchID,
		"time_ranges": req.TimeRanges,
	}).Info("received search request")

	result, err := h.svc.Search(r.Context(), req.SearchID, req.TimeRanges)
	if err != nil {
		log.WithError(err).Error("search failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleChat serves POST /chat. The conversation participant is identified
// by the X-User-ID header so follow-up context survives across turns.
func (h *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, models.ChatResponse{Error: "query is required"})
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		userID = r.RemoteAddr
	}

	reply, err := h.orchestrator.Chat(r.Context(), userID, req.Query)
	if err != nil {
		writeJSON(w, http.StatusOK, models.ChatResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{Response: reply})
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"server":  "lokilens-mcp",
		"version": Version,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}
