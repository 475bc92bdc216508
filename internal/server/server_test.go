package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/forcetree/pkg/cache"
	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/pipeline"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
	"github.com/matzehuels/forcetree/pkg/store"
)

const testEcosystem = `{
  "id": "root",
  "children": [
    {"id": "lib", "name": "Library", "type": "package", "children": [
      {"id": "util", "type": "module"},
      {"id": "io", "type": "module"}
    ]},
    {"id": "cmd", "type": "package", "children": [
      {"id": "main", "type": "file"}
    ]}
  ]
}`

const testEcosystemTOML = `
id = "root"

[[children]]
id = "a"
type = "package"

[[children.children]]
id = "b"
type = "module"
`

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newTestServer(t *testing.T, mutate ...func(*Options)) *Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(context.Background(), cache.RedisOptions{Addr: mr.Addr(), Prefix: cache.DefaultRedisPrefix})
	require.NoError(t, err)

	opts := Options{
		Runner: pipeline.NewRunner(rc, nil, quietLogger()),
		Store:  store.NewMemory(),
		Logger: quietLogger(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	s := New(opts)
	t.Cleanup(func() {
		s.Close()
		_ = opts.Runner.Close()
	})
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string, contentType ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if len(contentType) > 0 {
		req.Header.Set("Content-Type", contentType[0])
	} else if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createView(t *testing.T, s *Server) viewInfo {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/views", testEcosystem)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var info viewInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	return info
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return string(body.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","views":0}`, rec.Body.String())
}

func TestRender(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/render?format=svg", testEcosystem)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "miss", rec.Header().Get("X-Forcetree-Cache"))
	assert.Len(t, rec.Header().Get("X-Forcetree-Ecosystem"), 64)
	assert.Contains(t, rec.Body.String(), "<svg")

	again := do(t, s, http.MethodPost, "/render?format=svg", testEcosystem)
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "hit", again.Header().Get("X-Forcetree-Cache"))
	assert.Equal(t, rec.Body.String(), again.Body.String())
}

func TestRenderFormats(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		query, contentType, want string
	}{
		{"format=html&title=Deps", "text/html; charset=utf-8", "<title>Deps</title>"},
		{"format=json", "application/json", `"nodes"`},
		{"format=dot", "text/vnd.graphviz; charset=utf-8", "graph G"},
		{"format=json&root=root/lib", "application/json", `"util"`},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/render?"+tt.query, testEcosystem)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}

	rec := do(t, s, http.MethodPost, "/render?format=json&root=root/lib", testEcosystem)
	l, err := layout.Unmarshal(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, l.Nodes, 2, "subtree renders only the children of lib")
}

func TestRenderTOML(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/render?format=json", testEcosystemTOML, "application/toml")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	l, err := layout.Unmarshal(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, l.Nodes, 2)
}

func TestRenderErrors(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.MaxBodySize = 64 })
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad format", "/render?format=gif", `{"id":"r"}`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"empty body", "/render", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"bad number", "/render?charge=lots", `{"id":"r"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed", "/render", `{"id":`, http.StatusBadRequest, "INVALID_ECOSYSTEM"},
		{"missing root", "/render?root=r/x", `{"id":"r"}`, http.StatusNotFound, "NOT_FOUND"},
		{"too large", "/render", `{"id":"` + strings.Repeat("x", 100) + `"}`, http.StatusRequestEntityTooLarge, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.path, tt.body, "application/json")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestViewLifecycle(t *testing.T) {
	s := newTestServer(t)
	info := createView(t, s)
	assert.Equal(t, 5, info.Nodes)
	assert.Equal(t, 3, info.Links)
	assert.Equal(t, "/views/"+info.ID+"/events", info.Events)

	rec := do(t, s, http.MethodGet, "/views", "")
	var list []viewInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, info.ID, list[0].ID)

	page := do(t, s, http.MethodGet, "/views/"+info.ID, "")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), info.ID)
	assert.Contains(t, page.Body.String(), "EventSource")

	lr := do(t, s, http.MethodGet, "/views/"+info.ID+"/layout", "")
	require.Equal(t, http.StatusOK, lr.Code)
	var l layout.Layout
	require.NoError(t, json.Unmarshal(lr.Body.Bytes(), &l))
	assert.Len(t, l.Nodes, 5)

	del := do(t, s, http.MethodDelete, "/views/"+info.ID, "")
	assert.Equal(t, http.StatusNoContent, del.Code)

	gone := do(t, s, http.MethodGet, "/views/"+info.ID+"/layout", "")
	assert.Equal(t, http.StatusNotFound, gone.Code)
	assert.Equal(t, "VIEW_NOT_FOUND", errorCode(t, gone))
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/views/"+info.ID, "").Code)
}

func TestViewInput(t *testing.T) {
	s := newTestServer(t)
	info := createView(t, s)
	lv, err := s.getView(info.ID)
	require.NoError(t, err)
	base := "/views/" + info.ID

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodPost, base+"/drag", `{"node":1,"phase":"start"}`).Code)
	assert.True(t, lv.view.Dragging(1))
	assert.Equal(t, forcetree.DragAlphaTarget, lv.view.Simulation().AlphaTarget())

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodPost, base+"/drag", `{"node":1,"phase":"move","x":12,"y":-8}`).Code)
	fx, fy, ok := lv.view.Simulation().Fixed(1)
	require.True(t, ok)
	assert.Equal(t, 12.0, fx)
	assert.Equal(t, -8.0, fy)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodPost, base+"/drag", `{"node":1,"phase":"end"}`).Code)
	assert.False(t, lv.view.Dragging(1))
	assert.Zero(t, lv.view.Simulation().AlphaTarget())

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodPost, base+"/hover", `{"node":0,"enter":true}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodPost, base+"/click", `{"node":2}`).Code)
	assert.Equal(t, 2, lv.view.Selected())
	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodPost, base+"/click", `{"node":-1}`).Code)
	assert.Equal(t, -1, lv.view.Selected())

	tests := []struct {
		name, path, body string
		code             string
	}{
		{"node out of range", "/drag", `{"node":99,"phase":"start"}`, "INVALID_INPUT"},
		{"bad phase", "/drag", `{"node":0,"phase":"fling"}`, "INVALID_INPUT"},
		{"unknown field", "/hover", `{"node":0,"over":true}`, "INVALID_INPUT"},
		{"negative click", "/click", `{"node":-5}`, "INVALID_INPUT"},
		{"empty zoom", "/zoom", `{}`, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, base+tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestViewZoomClamped(t *testing.T) {
	s := newTestServer(t)
	base := "/views/" + createView(t, s).ID

	tests := []struct {
		body  string
		wantK float64
	}{
		{`{"scale":10}`, forcetree.MaxScale},
		{`{"scale":0.01}`, forcetree.MinScale},
		{`{"k":2,"x":5,"y":5}`, 2},
		{`{"k":100,"x":0,"y":0}`, forcetree.MaxScale},
		{`{"factor":0.001,"x":100,"y":100}`, forcetree.MinScale},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodPost, base+"/zoom", tt.body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var tr forcetree.Transform
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))
		assert.Equal(t, tt.wantK, tr.K, tt.body)
	}

	rec := do(t, s, http.MethodPost, base+"/zoom", `{"dx":3,"dy":4}`)
	var tr forcetree.Transform
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))
	assert.Equal(t, forcetree.MinScale, tr.K, "pan keeps the scale")
}

func TestViewSettle(t *testing.T) {
	s := newTestServer(t)
	base := "/views/" + createView(t, s).ID
	rec := do(t, s, http.MethodPost, base+"/settle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out, "ticks")
}

func TestMaxViews(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.MaxViews = 1 })
	createView(t, s)
	rec := do(t, s, http.MethodPost, "/views", testEcosystem)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, s.viewCount())
}

func TestSnapshots(t *testing.T) {
	s := newTestServer(t)
	info := createView(t, s)

	rec := do(t, s, http.MethodPost, "/views/"+info.ID+"/snapshot", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var saved store.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, info.ID, saved.ViewID)
	assert.Equal(t, info.Source, saved.Source)

	list := do(t, s, http.MethodGet, "/layouts?limit=10", "")
	var summaries []store.Summary
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 5, summaries[0].Nodes)

	svg := do(t, s, http.MethodGet, "/layouts/"+saved.ID+"?format=svg", "")
	require.Equal(t, http.StatusOK, svg.Code, svg.Body.String())
	assert.Contains(t, svg.Body.String(), "<svg")

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/layouts/"+saved.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/layouts/"+saved.ID, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/layouts?limit=x", "").Code)
}

func TestEvents(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()
	info := createView(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+info.Events, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64<<10), 1<<20)
	waitFor := func(event string) {
		t.Helper()
		for sc.Scan() {
			if sc.Text() == "event: "+event {
				return
			}
		}
		t.Fatalf("stream ended before %q: %v", event, sc.Err())
	}
	waitFor("frame")

	require.Eventually(t, func() bool {
		lv, err := s.getView(info.ID)
		return err == nil && lv.stream.Subscribers() == 1
	}, time.Second, 10*time.Millisecond)

	go do(t, s, http.MethodPost, "/views/"+info.ID+"/hover", `{"node":0,"enter":true}`)
	waitFor("tooltip")

	go do(t, s, http.MethodDelete, "/views/"+info.ID, "")
	waitFor("dispose")
}

func TestIdleViews(t *testing.T) {
	s := newTestServer(t)
	info := createView(t, s)

	assert.Empty(t, s.idleViews(time.Now(), time.Hour))
	idle := s.idleViews(time.Now().Add(2*time.Hour), time.Hour)
	require.Len(t, idle, 1)
	assert.Equal(t, info.ID, idle[0].view.ID())
	assert.Zero(t, s.viewCount())
	idle[0].dispose(s.logger)
	assert.True(t, idle[0].view.Disposed())
}

func TestCloseDisposesViews(t *testing.T) {
	s := New(Options{Logger: quietLogger()})
	a := createView(t, s)
	b := createView(t, s)
	la, _ := s.getView(a.ID)
	lb, _ := s.getView(b.ID)

	s.Close()
	assert.True(t, la.view.Disposed())
	assert.True(t, lb.view.Disposed())
	assert.Equal(t, http.StatusGone, do(t, s, http.MethodPost, "/views", testEcosystem).Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(store.ErrNotFound))
	assert.Equal(t, http.StatusTooManyRequests, statusOf(errTooManyViews))
	assert.Equal(t, http.StatusInternalServerError, statusOf(io.ErrUnexpectedEOF))
}
