// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/poiesic/vectorium"
)

const requestTimeout = 120 * time.Second

// NewRouter builds the route tree over the service facade.
func NewRouter(service *vectorium.Service) http.Handler {
	h := NewHandlers(service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", h.Health)

	r.Route("/api/vector-db/{provider}", func(api chi.Router) {
		api.Post("/create-index", h.CreateIndex)

		api.Route("/{index}", func(idx chi.Router) {
			idx.Post("/upsert", h.Upsert)
			idx.Post("/search", h.Search)
			idx.Post("/namespaces/{namespace}/ensure", h.EnsureNamespace)
			idx.Get("/chunks/{chunkID}/context", h.ChunkContext)
			idx.Get("/documents/{originalID}/chunks", h.DocumentChunks)
		})
	})

	return r
}

// Server wraps the HTTP listener.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer binds the router to a port.
func NewServer(port string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		},
		logger: slog.Default().With("component", "http-server"),
	}
}

// Start runs the listener until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	return s.httpServer.Shutdown(ctx)
}
