package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/illarion/microkv/internal/crypto"
	"github.com/illarion/microkv/pkg/microkv"
)

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type namespacesResponse struct {
	Namespaces []string `json:"namespaces"`
}

type keysResponse struct {
	Keys []string `json:"keys"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.Namespaces()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for i, name := range names {
		names[i] = NamespaceToPath(name)
	}
	writeJSON(w, http.StatusOK, namespacesResponse{Namespaces: names})
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	ns := s.namespace(r)

	var keys []string
	var err error
	if r.URL.Query().Get("sorted") == "true" {
		keys, err = ns.SortedKeys()
	} else {
		keys, err = ns.Keys()
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keysResponse{Keys: keys})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	value, err := microkv.Get[json.RawMessage](s.namespace(r), r.PathValue("key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer crypto.ClearBytes(value)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(value)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxValueSize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error:     "too_large",
			Message:   "request body too large",
			RequestID: RequestIDFromContext(r.Context()),
		})
		return
	}
	defer crypto.ClearBytes(body)

	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "serialization",
			Message:   "request body is not valid JSON",
			RequestID: RequestIDFromContext(r.Context()),
		})
		return
	}

	if err := s.namespace(r).Put(r.PathValue("key"), json.RawMessage(body)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.namespace(r).Delete(r.PathValue("key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.namespace(r).Clear(); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Commit(); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) namespace(r *http.Request) *microkv.Namespace {
	return s.store.Namespace(NamespaceFromPath(r.PathValue("ns")))
}

// errorKind maps an engine error to its wire name and status code.
func errorKind(err error) (string, int) {
	switch {
	case errors.Is(err, microkv.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, microkv.ErrSerialization):
		return "serialization", http.StatusBadRequest
	case errors.Is(err, microkv.ErrNotCommitted):
		return "not_committed", http.StatusInternalServerError
	case errors.Is(err, microkv.ErrAuthentication):
		return "authentication", http.StatusConflict
	case errors.Is(err, microkv.ErrCorruptStore):
		return "corrupt_store", http.StatusInternalServerError
	case errors.Is(err, microkv.ErrIO):
		return "io", http.StatusInternalServerError
	case errors.Is(err, microkv.ErrClosed):
		return "closed", http.StatusServiceUnavailable
	default:
		return "internal", http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, status := errorKind(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse{
		Error:     kind,
		Message:   err.Error(),
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
