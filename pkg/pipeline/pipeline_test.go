package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/forcetree/pkg/cache"
	"github.com/matzehuels/forcetree/pkg/ecosystem"
	"github.com/matzehuels/forcetree/pkg/errors"
	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/observability"
	"github.com/matzehuels/forcetree/pkg/render"
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

func docOptions(formats ...string) Options {
	return Options{Document: []byte(testEcosystem), Formats: formats}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"html", false},
		{"json", false},
		{"dot", false},
		{"graphviz", false},
		{"png", false},
		{"pdf", false},
		{"SVG", true},
		{"tower", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s, want INVALID_FORMAT", tt.format, errors.GetCode(err))
		}
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("ValidateFormats(nil) = %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := docOptions()
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Width != 200 || o.Height != 200 || o.Radius != 3.5 {
		t.Errorf("size defaults = %v x %v r %v", o.Width, o.Height, o.Radius)
	}
	if o.LinkDistance != 0 || o.LinkStrength != 1 || o.Charge != -50 {
		t.Errorf("force defaults = %v %v %v", o.LinkDistance, o.LinkStrength, o.Charge)
	}
	if len(o.Formats) != 1 || o.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", o.Formats)
	}
	if o.DocumentFormat != ecosystem.FormatJSON || o.Scale != DefaultScale || o.Logger == nil {
		t.Errorf("defaults not applied: %+v", o)
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"no input", Options{}, errors.ErrCodeInvalidInput},
		{"both inputs", Options{Path: "a.json", Document: []byte("{}")}, errors.ErrCodeInvalidInput},
		{"bad path", Options{Path: "a\x00.json"}, errors.ErrCodeInvalidPath},
		{"negative width", Options{Document: []byte("{}"), Width: -1}, errors.ErrCodeInvalidInput},
		{"negative distance", Options{Document: []byte("{}"), LinkDistance: -3}, errors.ErrCodeInvalidInput},
		{"bad format", Options{Document: []byte("{}"), Formats: []string{"gif"}}, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	o := Options{Title: "T", Style: "circle{}", Scale: 3}
	if k := o.ArtifactKeyOpts(FormatJSON); k.Style != "" || k.Title != "" || k.Scale != 0 {
		t.Errorf("json key should ignore presentation: %+v", k)
	}
	if k := o.ArtifactKeyOpts(FormatHTML); k.Title != "T" || k.Style == "" {
		t.Errorf("html key = %+v", k)
	}
	if k := o.ArtifactKeyOpts(FormatPNG); k.Scale != 3 {
		t.Errorf("png key = %+v", k)
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	root, hash, err := Load(ctx, docOptions())
	if err != nil {
		t.Fatal(err)
	}
	if root.ID() != "root" || len(hash) != 64 {
		t.Errorf("Load = %s, %q", root.ID(), hash)
	}

	o := docOptions()
	o.Root = "root/lib"
	sub, subHash, err := Load(ctx, o)
	if err != nil {
		t.Fatal(err)
	}
	if sub.ID() != "lib" {
		t.Errorf("subtree root = %s, want lib", sub.ID())
	}
	if subHash != hash {
		t.Error("subtree hash should be the whole document hash")
	}

	o.Root = "root/nope"
	if _, _, err := Load(ctx, o); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing root err = %v, want NOT_FOUND", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "eco.json")
	if err := os.WriteFile(p, []byte(testEcosystem), 0o644); err != nil {
		t.Fatal(err)
	}
	root, _, err := Load(context.Background(), Options{Path: p})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(root.Descendants()); got != 6 {
		t.Errorf("descendants = %d, want 6", got)
	}

	_, _, err = Load(context.Background(), Options{Path: filepath.Join(dir, "missing.json")})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestComputeLayout(t *testing.T) {
	root, _, _ := Load(context.Background(), docOptions())
	l, err := ComputeLayout(context.Background(), root, docOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Nodes) != 5 {
		t.Errorf("nodes = %d, want 5 (root excluded)", len(l.Nodes))
	}
	// lib-util, lib-io, cmd-main; root links dropped
	if len(l.Links) != 3 {
		t.Errorf("links = %d, want 3", len(l.Links))
	}
	if l.Ticks == 0 {
		t.Error("layout did not record ticks")
	}
	if err := l.Validate(); err != nil {
		t.Error(err)
	}

	again, _ := ComputeLayout(context.Background(), root, docOptions())
	for i := range l.Nodes {
		if l.Nodes[i].X != again.Nodes[i].X || l.Nodes[i].Y != again.Nodes[i].Y {
			t.Fatalf("node %d moved between runs", i)
		}
	}
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), docOptions(FormatSVG, FormatHTML, FormatJSON, FormatDOT))
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.NodeCount != 5 || res.Stats.LinkCount != 3 {
		t.Errorf("stats = %+v", res.Stats)
	}
	checks := map[string]string{
		FormatSVG:  "<svg",
		FormatHTML: "<!DOCTYPE html>",
		FormatJSON: `"nodes"`,
		FormatDOT:  "graph G",
	}
	for format, want := range checks {
		if !bytes.Contains(res.Artifacts[format], []byte(want)) {
			t.Errorf("%s artifact missing %q", format, want)
		}
	}
	l, err := layout.Unmarshal(res.Artifacts[FormatJSON])
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Nodes) != len(res.Layout.Nodes) {
		t.Error("json artifact does not match result layout")
	}
}

func TestExecuteCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)
	defer r.Close()
	ctx := context.Background()

	first, err := r.Execute(ctx, docOptions(FormatSVG, FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Errorf("first run hit the cache: %+v", first.CacheInfo)
	}

	second, err := r.Execute(ctx, docOptions(FormatSVG, FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run missed the cache: %+v", second.CacheInfo)
	}
	if !bytes.Equal(first.Artifacts[FormatSVG], second.Artifacts[FormatSVG]) {
		t.Error("cached svg differs")
	}

	// A new format reuses the layout but renders.
	third, err := r.Execute(ctx, docOptions(FormatSVG, FormatDOT))
	if err != nil {
		t.Fatal(err)
	}
	if !third.CacheInfo.LayoutHit || third.CacheInfo.RenderHit {
		t.Errorf("partial hit = %+v", third.CacheInfo)
	}

	// Changed physics invalidates the layout.
	o := docOptions(FormatSVG)
	o.Charge = -30
	fourth, err := r.Execute(ctx, o)
	if err != nil {
		t.Fatal(err)
	}
	if fourth.CacheInfo.LayoutHit {
		t.Error("charge change should miss the layout cache")
	}

	o = docOptions(FormatSVG)
	o.Refresh = true
	fifth, _ := r.Execute(ctx, o)
	if fifth.CacheInfo.LayoutHit {
		t.Error("refresh should skip the layout cache")
	}
}

func TestRenderFromLayoutData(t *testing.T) {
	root, _, _ := Load(context.Background(), docOptions())
	l, _ := ComputeLayout(context.Background(), root, docOptions())
	data, _ := layout.Marshal(l)

	out, err := RenderFromLayoutData(context.Background(), data, Options{Formats: []string{FormatSVG}, Style: ".custom{}"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out[FormatSVG]), ".custom{}") {
		t.Error("custom style not embedded")
	}

	if _, err := RenderFromLayoutData(context.Background(), []byte("{"), Options{}); err == nil {
		t.Error("expected error for malformed layout")
	}
}

func TestRenderRaster(t *testing.T) {
	if !render.Available() {
		t.Skip(render.Converter + " not installed")
	}
	root, _, _ := Load(context.Background(), docOptions())
	l, _ := ComputeLayout(context.Background(), root, docOptions())
	out, err := RenderFromLayout(context.Background(), l, Options{Formats: []string{FormatPNG, FormatPDF}})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out[FormatPNG], []byte("\x89PNG")) {
		t.Error("png artifact lacks PNG signature")
	}
	if !bytes.HasPrefix(out[FormatPDF], []byte("%PDF")) {
		t.Error("pdf artifact lacks PDF header")
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	events []string
}

func (h *recordingHooks) OnLoadStart(context.Context, string) { h.events = append(h.events, "load") }
func (h *recordingHooks) OnLayoutStart(context.Context, int)  { h.events = append(h.events, "layout") }
func (h *recordingHooks) OnRenderStart(context.Context, []string) {
	h.events = append(h.events, "render")
}
func (h *recordingHooks) OnRenderComplete(_ context.Context, _ []string, _ time.Duration, err error) {
	if err == nil {
		h.events = append(h.events, "rendered")
	}
}

func TestExecuteHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetPipelineHooks(h)
	defer observability.Reset()

	if _, err := NewRunner(nil, nil, nil).Execute(context.Background(), docOptions()); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(h.events, ","); got != "load,layout,render,rendered" {
		t.Errorf("events = %s", got)
	}
}
