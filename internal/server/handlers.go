package server

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/forcetree/pkg/ecosystem"
	"github.com/matzehuels/forcetree/pkg/errors"
	"github.com/matzehuels/forcetree/pkg/pipeline"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
	"github.com/matzehuels/forcetree/pkg/render/forcetree/sink"
	"github.com/matzehuels/forcetree/pkg/store"
)

var contentTypes = map[string]string{
	pipeline.FormatSVG:      "image/svg+xml",
	pipeline.FormatHTML:     "text/html; charset=utf-8",
	pipeline.FormatJSON:     "application/json",
	pipeline.FormatDOT:      "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatGraphviz: "image/svg+xml",
	pipeline.FormatPNG:      "image/png",
	pipeline.FormatPDF:      "application/pdf",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "views": s.viewCount()})
}

// readDocument reads an ecosystem body. TOML is selected by a toml
// Content-Type; anything else is JSON.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, ecosystem.Format, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodySize))
	if err != nil {
		return nil, "", err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, "", errors.New(errors.ErrCodeInvalidInput, "empty request body")
	}
	format := ecosystem.FormatJSON
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/toml" || mt == "text/toml" {
		format = ecosystem.FormatTOML
	}
	return body, format, nil
}

// requestOptions applies query parameters over the server defaults.
func (s *Server) requestOptions(r *http.Request) (pipeline.Options, error) {
	o := s.opts.Defaults
	o.Formats = nil
	q := r.URL.Query()
	o.Root = q.Get("root")
	o.Refresh = q.Get("refresh") == "true"
	if t := q.Get("title"); t != "" {
		o.Title = t
	}
	for name, dst := range map[string]*float64{
		"width":         &o.Width,
		"height":        &o.Height,
		"radius":        &o.Radius,
		"charge":        &o.Charge,
		"link_distance": &o.LinkDistance,
		"link_strength": &o.LinkStrength,
		"scale":         &o.Scale,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return o, errors.Wrap(errors.ErrCodeInvalidInput, err, "query parameter %s", name)
		}
		*dst = f
	}
	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	o.Formats = []string{format}
	o.Logger = s.logger
	return o, nil
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Document, opts.DocumentFormat, err = s.readDocument(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := opts.Formats[0]
	hit := "miss"
	if res.CacheInfo.RenderHit {
		hit = "hit"
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Forcetree-Cache", hit)
	w.Header().Set("X-Forcetree-Ecosystem", res.EcosystemHash)
	_, _ = w.Write(res.Artifacts[format])
}

func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.listViews())
}

func (s *Server) handleCreateView(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Document, opts.DocumentFormat, err = s.readDocument(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	root, hash, err := s.runner.Load(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := opts.ValidateForLayout(); err != nil {
		s.writeError(w, r, err)
		return
	}

	stream := sink.NewStream(sink.DefaultStreamBuffer)
	viewOpts := append(append([]forcetree.Option{}, s.opts.ViewOptions...), opts.RenderOptions()...)
	v, err := forcetree.Render(s.base, root, stream, viewOpts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := time.Now()
	lv := &liveView{view: v, stream: stream, source: hash, title: opts.Title, created: now, lastSeen: now}
	if err := s.addView(lv); err != nil {
		lv.dispose(s.logger)
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("created view", "view", v.ID(), "root", root.Path(), "nodes", len(v.Scene().Nodes))
	w.Header().Set("Location", "/views/"+v.ID())
	writeJSON(w, http.StatusCreated, lv.info())
}

func (s *Server) handleViewPage(w http.ResponseWriter, r *http.Request) {
	lv, err := s.getView(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := []sink.HTMLOption{
		sink.WithLive("/views/" + lv.view.ID()),
		sink.WithViewState(lv.view.Zoom().Transform(), lv.view.Selected()),
	}
	if lv.title != "" {
		opts = append(opts, sink.WithTitle(lv.title))
	}
	if css := s.opts.Defaults.Style; css != "" {
		opts = append(opts, sink.WithPageStyle(css))
	}
	page, err := sink.RenderHTML(lv.view.Layout(), opts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[pipeline.FormatHTML])
	_, _ = w.Write(page)
}

func (s *Server) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	lv, err := s.removeView(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lv.dispose(s.logger)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleViewLayout(w http.ResponseWriter, r *http.Request) {
	lv, err := s.getView(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lv.view.Layout())
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	lv, err := s.getView(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ticks := lv.view.Settle()
	writeJSON(w, http.StatusOK, map[string]int{"ticks": ticks})
}

type nodeRequest struct {
	Node int `json:"node"`
}

type dragRequest struct {
	Node  int     `json:"node"`
	Phase string  `json:"phase"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type hoverRequest struct {
	Node  int  `json:"node"`
	Enter bool `json:"enter"`
}

// zoomRequest carries one of: a full transform (x, y, k), a scale, a
// factor about a point, or a pan.
type zoomRequest struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	K      *float64 `json:"k,omitempty"`
	Scale  *float64 `json:"scale,omitempty"`
	Factor *float64 `json:"factor,omitempty"`
	DX     *float64 `json:"dx,omitempty"`
	DY     *float64 `json:"dy,omitempty"`
}

func (s *Server) inputView(w http.ResponseWriter, r *http.Request, req any) (*liveView, bool) {
	lv, err := s.getView(chi.URLParam(r, "id"))
	if err == nil {
		err = decodeJSON(r, req)
	}
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return lv, true
}

func checkNode(lv *liveView, i int) error {
	if n := len(lv.view.Scene().Nodes); i < 0 || i >= n {
		return errors.New(errors.ErrCodeInvalidInput, "node %d out of range (%d nodes)", i, n)
	}
	return nil
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	lv, ok := s.inputView(w, r, &req)
	if !ok {
		return
	}
	if err := checkNode(lv, req.Node); err != nil {
		s.writeError(w, r, err)
		return
	}
	h := lv.stream.Drag()
	switch req.Phase {
	case "start":
		h.DragStart(req.Node)
	case "move":
		h.Drag(req.Node, req.X, req.Y)
	case "end":
		h.DragEnd(req.Node)
	default:
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "unknown drag phase %q", req.Phase))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	var req hoverRequest
	lv, ok := s.inputView(w, r, &req)
	if !ok {
		return
	}
	if err := checkNode(lv, req.Node); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Enter {
		lv.stream.Pointer().PointerEnter(req.Node)
	} else {
		lv.stream.Pointer().PointerLeave(req.Node)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClick selects a node; node -1 clears the selection.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	lv, ok := s.inputView(w, r, &req)
	if !ok {
		return
	}
	if req.Node == -1 {
		lv.view.ClearSelection()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := checkNode(lv, req.Node); err != nil {
		s.writeError(w, r, err)
		return
	}
	lv.stream.Pointer().Click(req.Node)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	lv, ok := s.inputView(w, r, &req)
	if !ok {
		return
	}
	var t forcetree.Transform
	switch {
	case req.K != nil:
		t = lv.stream.Zoom().Set(forcetree.Transform{X: deref(req.X), Y: deref(req.Y), K: *req.K})
	case req.Scale != nil:
		t = lv.view.ZoomTo(*req.Scale)
	case req.Factor != nil:
		t = lv.view.ZoomBy(*req.Factor, deref(req.X), deref(req.Y))
	case req.DX != nil || req.DY != nil:
		t = lv.view.Pan(deref(req.DX), deref(req.DY))
	default:
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "zoom request needs k, scale, factor or dx/dy"))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	lv, err := s.getView(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.store.Save(r.Context(), store.Record{
		ViewID: lv.view.ID(),
		Source: lv.source,
		Layout: lv.view.Layout(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/layouts/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "limit"))
			return
		}
		limit = n
	}
	out, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetLayout returns a stored record, or renders its layout when a
// format is given.
func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	opts := s.opts.Defaults
	opts.Formats = []string{format}
	opts.Logger = s.logger
	artifacts, err := s.runner.Render(r.Context(), rec.Layout, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", rec.ID+"."+extension(format)))
	_, _ = w.Write(artifacts[format])
}

func (s *Server) handleDeleteLayout(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func extension(format string) string {
	if format == pipeline.FormatGraphviz {
		return "svg"
	}
	return format
}
