package rest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/dmitrijs2005/registadb/internal/server/models"
	"github.com/dmitrijs2005/registadb/internal/wire"
	"github.com/gorilla/mux"
)

func (s *RESTServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (s *RESTServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	e, err := readEntry(w, r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.execute(w, r, models.Request{Op: models.OpCreate, Entry: e}, http.StatusCreated)
}

func (s *RESTServer) handleRead(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.execute(w, r, models.Request{Op: models.OpRead, ID: id}, http.StatusOK)
}

func (s *RESTServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	e, err := readEntry(w, r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.execute(w, r, models.Request{Op: models.OpUpdate, ID: id, Entry: e}, http.StatusOK)
}

func (s *RESTServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.execute(w, r, models.Request{Op: models.OpDelete, ID: id}, http.StatusNoContent)
}

func (s *RESTServer) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultPageLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxPageLimit)
	}

	var cursor []byte
	if v := q.Get("cursor"); v != "" {
		var err error
		if cursor, err = base64.RawURLEncoding.DecodeString(v); err != nil {
			s.writeError(w, r, http.StatusBadRequest, "malformed cursor")
			return
		}
	}

	page, err := s.executor.List(r.Context(), cursor, limit)
	switch {
	case errors.Is(err, common.ErrInvalidArgument):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	out := pageJSON{Entries: make([]*entryJSON, 0, len(page.Entries))}
	for _, e := range page.Entries {
		out.Entries = append(out.Entries, toJSON(e))
	}
	if page.Next != nil {
		out.Next = base64.RawURLEncoding.EncodeToString(page.Next)
	}
	writeJSON(w, http.StatusOK, out)
}

// execute runs req and writes the response with okCode on success.
func (s *RESTServer) execute(w http.ResponseWriter, r *http.Request, req models.Request, okCode int) {
	resp := s.executor.Execute(r.Context(), req)

	s.logger.Debug(r.Context(), "request executed",
		"request_id", requestIDFromContext(r.Context()),
		"op", req.Op.String(),
		"status", resp.Status.String(),
	)

	code := okCode
	switch resp.Status {
	case models.StatusOK:
	case models.StatusNotFound:
		code = http.StatusNotFound
	case models.StatusInvalidArgument:
		code = http.StatusBadRequest
	default:
		code = http.StatusInternalServerError
	}

	if code == http.StatusNoContent {
		w.WriteHeader(code)
		return
	}
	s.writeResponse(w, r, code, &resp)
}

func (s *RESTServer) pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		s.writeError(w, r, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *RESTServer) writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	status := models.StatusInvalidArgument
	if code >= http.StatusInternalServerError {
		status = models.StatusInternalError
	}
	s.writeResponse(w, r, code, &models.Response{Status: status, Message: msg})
}

func (s *RESTServer) writeResponse(w http.ResponseWriter, r *http.Request, code int, resp *models.Response) {
	if wantsProtobuf(r) {
		b, err := wire.MarshalResponse(resp)
		if err != nil {
			s.logger.Error(r.Context(), "response encoding failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", common.ContentTypeProtobuf)
		w.WriteHeader(code)
		_, _ = w.Write(b)
		return
	}

	writeJSON(w, code, responseJSON{
		Status:  resp.Status.String(),
		Message: resp.Message,
		Entry:   toJSON(resp.Entry),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func readEntry(w http.ResponseWriter, r *http.Request) (*models.Entry, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	if isProtobuf(r.Header.Get("Content-Type")) {
		return wire.UnmarshalEntry(body)
	}

	var in entryJSON
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, err
	}
	return fromJSON(&in)
}

func isProtobuf(contentType string) bool {
	return strings.HasPrefix(strings.TrimSpace(contentType), common.ContentTypeProtobuf)
}

func wantsProtobuf(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), common.ContentTypeProtobuf)
}
