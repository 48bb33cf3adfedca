package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/mediahub/internal/progress"
	"github.com/emrgen/mediahub/internal/service"
)

const maxBody = 1 << 20

type handler struct {
	svc *service.ResourceService
}

// NewHandler routes the v1 API onto svc.
func NewHandler(svc *service.ResourceService) http.Handler {
	h := &handler{svc: svc}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/sources", h.sources)
	mux.HandleFunc("POST /v1/imports", h.importByURI)
	mux.HandleFunc("POST /v1/resolve", h.resolve)
	mux.HandleFunc("GET /v1/search", h.search)
	mux.HandleFunc("POST /v1/play", h.play)
	mux.HandleFunc("GET /v1/resources", h.listResources)
	mux.HandleFunc("GET /v1/resources/{id}", h.getResource)
	mux.HandleFunc("DELETE /v1/resources/{id}", h.deleteResource)
	mux.HandleFunc("GET /v1/resources/{id}/lists/{key}", h.getList)
	mux.HandleFunc("GET /v1/resources/{id}/thumbnail", h.thumbnail)
	mux.HandleFunc("PUT /v1/resources/{id}/favourite", h.setFavourite)
	mux.HandleFunc("POST /v1/resources/{id}/refresh", h.refresh)

	return RequestTimeInterceptor(UserInterceptor(mux))
}

func (h *handler) sources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sources": h.svc.Sources()})
}

func (h *handler) importByURI(w http.ResponseWriter, r *http.Request) {
	var req service.ImportRequest
	if !decode(w, r, &req) {
		return
	}
	req.User = UserFromContext(r.Context())

	stream := newProgressStream(w, r)
	res, err := h.svc.Import(r.Context(), req, stream.report())
	stream.finish(res, err)
}

func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	var req service.ResolveRequest
	if !decode(w, r, &req) {
		return
	}
	req.User = UserFromContext(r.Context())

	stream := newProgressStream(w, r)
	res, err := h.svc.Resolve(r.Context(), req, stream.report())
	stream.finish(res, err)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Search(r.Context(), service.SearchRequest{
		Text:    q.Get("q"),
		Sources: listParam(q["source"]),
		Types:   listParam(q["type"]),
		Limit:   limit,
		User:    UserFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) play(w http.ResponseWriter, r *http.Request) {
	var req service.PlayRequest
	if !decode(w, r, &req) {
		return
	}
	req.User = UserFromContext(r.Context())
	if err := h.svc.Play(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	found, err := h.svc.ListResources(r.Context(), service.ListResourcesRequest{
		Query:         q.Get("q"),
		Type:          q.Get("type"),
		FavouriteOnly: q.Get("favourite") == "true",
		Limit:         limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": found})
}

func (h *handler) getResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetResource(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) deleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteResource(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getList(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.GetList(r.Context(), r.PathValue("id"), r.PathValue("key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": items})
}

func (h *handler) thumbnail(w http.ResponseWriter, r *http.Request) {
	rc, ref, err := h.svc.Thumbnail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", ref.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(ref.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		logrus.Warnf("thumbnail %s: %v", ref.ID, err)
	}
}

func (h *handler) setFavourite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Favourite bool `json:"favourite"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.SetFavourite(r.Context(), r.PathValue("id"), req.Favourite)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Refresh(r.Context(), r.PathValue("id"), r.URL.Query().Get("source"), UserFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// progressStream writes newline-delimited progress updates followed by the
// result when the client asks for it with ?progress=true. Otherwise it
// writes the result alone.
type progressStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	enabled bool
	mu      sync.Mutex
	last    float64
	started bool
}

type progressLine struct {
	Progress *float64 `json:"progress,omitempty"`
	Result   any      `json:"result,omitempty"`
	Error    string   `json:"error,omitempty"`
	Status   int      `json:"status,omitempty"`
}

func newProgressStream(w http.ResponseWriter, r *http.Request) *progressStream {
	s := &progressStream{w: w, last: -1}
	if r.URL.Query().Get("progress") == "true" {
		s.flusher, s.enabled = w.(http.Flusher)
	}
	return s
}

func (s *progressStream) report() progress.Func {
	if !s.enabled {
		return nil
	}
	return func(p float64) {
		s.mu.Lock()
		defer s.mu.Unlock()
		// drop updates smaller than a percent
		if p < 1 && p-s.last < 0.01 {
			return
		}
		s.last = p
		s.write(progressLine{Progress: &p})
	}
}

func (s *progressStream) write(line progressLine) {
	if !s.started {
		s.w.Header().Set("Content-Type", "application/x-ndjson")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if err := json.NewEncoder(s.w).Encode(line); err != nil {
		logrus.Warnf("progress stream: %v", err)
		return
	}
	s.flusher.Flush()
}

func (s *progressStream) finish(res any, err error) {
	if !s.enabled {
		if err != nil {
			writeError(s.w, err)
			return
		}
		writeJSON(s.w, http.StatusOK, res)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.write(progressLine{Error: err.Error(), Status: statusOf(err)})
		return
	}
	s.write(progressLine{Result: res})
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.Join(service.ErrInvalidArgument, errors.New("limit must be a non-negative integer"))
	}
	return n, nil
}

// listParam accepts repeated and comma separated values.
func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logrus.Errorf("request failed: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("write response: %v", err)
	}
}
