package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
)

// HTMLOption configures HTML output.
type HTMLOption func(*htmlRenderer)

type htmlRenderer struct {
	title string
	css   string
	live  string
	state viewState
}

// WithTitle sets the page title.
func WithTitle(title string) HTMLOption { return func(r *htmlRenderer) { r.title = title } }

// WithPageStyle replaces the embedded stylesheet.
func WithPageStyle(css string) HTMLOption { return func(r *htmlRenderer) { r.css = css } }

// WithLive connects the page to a live view served under base (for example
// "/views/<id>"): positions stream in over Server-Sent Events and pointer
// input is posted back.
func WithLive(base string) HTMLOption { return func(r *htmlRenderer) { r.live = base } }

// WithViewState carries the transform and selection of a view into the page.
func WithViewState(t forcetree.Transform, selected int) HTMLOption {
	return func(r *htmlRenderer) {
		r.state.Transform = t
		r.state.Selected = selected
	}
}

type pageGraph struct {
	ID        string        `json:"id"`
	Radius    float64       `json:"radius"`
	Nodes     []layout.Node `json:"nodes"`
	Links     []layout.Link `json:"links"`
	Selected  int           `json:"selected"`
	Transform pageTransform `json:"transform"`
	MinScale  float64       `json:"min_scale"`
	MaxScale  float64       `json:"max_scale"`
}

type pageTransform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// RenderHTML writes l as a self-contained interactive page.
func RenderHTML(l layout.Layout, opts ...HTMLOption) ([]byte, error) {
	r := htmlRenderer{css: DefaultCSS, state: defaultState()}
	for _, opt := range opts {
		opt(&r)
	}
	return r.render(l)
}

func (r htmlRenderer) render(l layout.Layout) ([]byte, error) {
	if r.title == "" {
		r.title = l.Root
	}
	g := pageGraph{
		ID:        r.state.ID,
		Radius:    l.Radius,
		Nodes:     l.Nodes,
		Links:     l.Links,
		Selected:  r.state.Selected,
		Transform: pageTransform{X: r.state.Transform.X, Y: r.state.Transform.Y, K: r.state.Transform.K},
		MinScale:  forcetree.MinScale,
		MaxScale:  forcetree.MaxScale,
	}
	if g.Nodes == nil {
		g.Nodes = []layout.Node{}
	}
	if g.Links == nil {
		g.Links = []layout.Link{}
	}
	graphJSON, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}

	data := struct {
		Title   string
		ViewBox string
		CSS     template.CSS
		Graph   template.JS
		Live    string
	}{
		Title:   r.title,
		ViewBox: l.ViewBox.String(),
		CSS:     template.CSS(r.css),
		Graph:   template.JS(graphJSON),
		Live:    r.live,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// HTML is a surface that keeps the last frame and writes it as a page.
type HTML struct {
	recorder
	opts []HTMLOption
}

var _ forcetree.Surface = (*HTML)(nil)

// NewHTML creates an HTML surface. opts apply to every [HTML.Bytes] call.
func NewHTML(opts ...HTMLOption) *HTML {
	return &HTML{recorder: newRecorder(), opts: opts}
}

// Bytes writes the current state as a page.
func (h *HTML) Bytes() ([]byte, error) {
	l, st, ok := h.snapshot()
	if !ok {
		return nil, fmt.Errorf("html surface: nothing mounted")
	}
	r := htmlRenderer{css: DefaultCSS, state: st}
	for _, opt := range h.opts {
		opt(&r)
	}
	return r.render(l)
}

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <style>
    body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; }
    svg { width: 100vw; height: 100vh; display: block; }
    .tooltip { position: absolute; top: 1rem; left: 1rem; padding: 0.5rem 0.75rem; background: #fff;
      border: 1px solid #e5e7eb; border-radius: 4px; box-shadow: 0 1px 3px rgba(0,0,0,0.1); pointer-events: none; }
    .tooltip h1 { font-size: 1rem; margin: 0 0 0.25rem; }
    .tooltip p { font-size: 0.8rem; margin: 0; color: #4b5563; }
    .hide { display: none; }
    {{.CSS}}
  </style>
</head>
<body>
  <svg viewBox="{{.ViewBox}}"><g id="graph"><g id="edges"></g><g id="nodes"></g></g></svg>
  <div class="tooltip hide"></div>
  <script>
  (function () {
    const graph = {{.Graph}};
    const live = {{.Live}};
    const ns = "http://www.w3.org/2000/svg";
    const svg = document.querySelector("svg");
    const root = document.getElementById("graph");
    const tooltip = document.querySelector(".tooltip");
    let t = graph.transform;
    let selected = graph.selected;
    const dragging = new Set();
    let suppressClick = -1;

    const lines = graph.links.map(l => {
      const el = document.createElementNS(ns, "line");
      if (l.class) el.setAttribute("class", l.class);
      document.getElementById("edges").appendChild(el);
      return el;
    });
    const circles = graph.nodes.map((n, i) => {
      const el = document.createElementNS(ns, "circle");
      if (n.type) el.setAttribute("class", n.type);
      el.setAttribute("r", graph.radius);
      const title = document.createElementNS(ns, "title");
      title.textContent = n.path;
      el.appendChild(title);
      el.addEventListener("mouseover", () => { show(i); post("hover", {node: i, enter: true}); });
      el.addEventListener("mouseout", () => { hide(i); post("hover", {node: i, enter: false}); });
      el.addEventListener("click", () => {
        if (suppressClick === i) return;
        select(i);
        post("click", {node: i});
      });
      el.addEventListener("pointerdown", e => dragStart(e, i));
      document.getElementById("nodes").appendChild(el);
      return el;
    });

    function esc(s) {
      return String(s).replace(/[&<>"']/g, c => ({"&": "&amp;", "<": "&lt;", ">": "&gt;", '"': "&quot;", "'": "&#39;"})[c]);
    }
    function heading(n) { return n.type ? n.label + " (" + n.type + ")" : n.label; }
    function show(i) {
      const n = graph.nodes[i];
      tooltip.innerHTML = "<h1>" + esc(heading(n)) + "</h1><p>" + esc(n.path) + "</p>";
      tooltip.classList.remove("hide");
    }
    function hide(i) { tooltip.classList.toggle("hide", selected !== i); }
    function select(i) {
      selected = i;
      circles.forEach((c, j) => c.classList.toggle("selected", j === i));
    }

    function draw() {
      graph.links.forEach((l, i) => {
        const s = graph.nodes[l.source], d = graph.nodes[l.target];
        lines[i].setAttribute("x1", s.x); lines[i].setAttribute("y1", s.y);
        lines[i].setAttribute("x2", d.x); lines[i].setAttribute("y2", d.y);
      });
      graph.nodes.forEach((n, i) => {
        circles[i].setAttribute("cx", n.x);
        circles[i].setAttribute("cy", n.y);
      });
    }
    function applyTransform() {
      root.setAttribute("transform", "translate(" + t.x + "," + t.y + ") scale(" + t.k + ")");
    }

    function viewPoint(e) {
      const p = svg.createSVGPoint();
      p.x = e.clientX; p.y = e.clientY;
      return p.matrixTransform(svg.getScreenCTM().inverse());
    }
    function graphPoint(e) {
      const p = viewPoint(e);
      return {x: (p.x - t.x) / t.k, y: (p.y - t.y) / t.k};
    }

    function dragStart(e, i) {
      e.stopPropagation();
      dragging.add(i);
      circles[i].setPointerCapture(e.pointerId);
      post("drag", {node: i, phase: "start"});
      let moved = false, done = false;
      const move = ev => {
        moved = true;
        const p = graphPoint(ev);
        graph.nodes[i].x = p.x; graph.nodes[i].y = p.y;
        draw();
        post("drag", {node: i, phase: "move", x: p.x, y: p.y});
      };
      const endEvents = ["pointerup", "pointercancel", "lostpointercapture"];
      const end = () => {
        if (done) return;
        done = true;
        dragging.delete(i);
        circles[i].removeEventListener("pointermove", move);
        endEvents.forEach(type => circles[i].removeEventListener(type, end));
        post("drag", {node: i, phase: "end"});
        // a drag that moved the node is not a click
        if (moved) {
          suppressClick = i;
          setTimeout(() => { if (suppressClick === i) suppressClick = -1; }, 0);
        }
      };
      circles[i].addEventListener("pointermove", move);
      endEvents.forEach(type => circles[i].addEventListener(type, end));
    }

    function clamp(k) { return Math.max(graph.min_scale, Math.min(graph.max_scale, k)); }
    svg.addEventListener("wheel", e => {
      e.preventDefault();
      const p = viewPoint(e);
      const k = clamp(t.k * Math.pow(2, -e.deltaY * 0.002));
      const gx = (p.x - t.x) / t.k, gy = (p.y - t.y) / t.k;
      t = {x: p.x - gx * k, y: p.y - gy * k, k: k};
      applyTransform();
      post("zoom", t);
    }, {passive: false});
    svg.addEventListener("pointerdown", e => {
      let last = viewPoint(e);
      const move = ev => {
        const p = viewPoint(ev);
        t = {x: t.x + p.x - last.x, y: t.y + p.y - last.y, k: t.k};
        last = p;
        applyTransform();
      };
      const end = () => {
        svg.removeEventListener("pointermove", move);
        svg.removeEventListener("pointerup", end);
        post("zoom", t);
      };
      svg.addEventListener("pointermove", move);
      svg.addEventListener("pointerup", end);
    });

    function post(kind, body) {
      if (!live) return;
      fetch(live + "/" + kind, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body)});
    }
    if (live) {
      const events = new EventSource(live + "/events");
      events.addEventListener("frame", e => {
        const f = JSON.parse(e.data);
        f.nodes.forEach((p, i) => {
          if (dragging.has(i)) return;
          graph.nodes[i].x = p[0]; graph.nodes[i].y = p[1];
        });
        draw();
      });
      events.addEventListener("transform", e => { t = JSON.parse(e.data); applyTransform(); });
      events.addEventListener("dispose", () => events.close());
    }

    if (selected >= 0) select(selected);
    applyTransform();
    draw();
  })();
  </script>
</body>
</html>
`
