package cli

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/forcetree/pkg/force"
	"github.com/matzehuels/forcetree/pkg/pipeline"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
)

// nudgeStep is how far one arrow key moves a dragged node, in view units.
const nudgeStep = 4.0

// zoomStep is the scale factor of one +/- key press.
const zoomStep = 1.25

var (
	nodePalette = []lipgloss.Color{colorCyan, colorGreen, colorYellow, colorBlue, colorRed, colorWhite}

	styleLink     = lipgloss.NewStyle().Foreground(colorDim)
	styleCursor   = lipgloss.NewStyle().Reverse(true)
	styleSelected = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
)

// =============================================================================
// Terminal surface
// =============================================================================

// terminalSurface keeps the latest frame of a view for the bubbletea
// program to draw. The simulation goroutine writes, the program reads; a
// one-slot notify channel wakes the program without ever blocking a tick.
type terminalSurface struct {
	mu        sync.Mutex
	scene     *forcetree.Scene
	frame     forcetree.Frame
	tooltip   *forcetree.Tooltip
	transform forcetree.Transform
	drag      forcetree.DragHandler
	pointer   forcetree.PointerHandler
	zoom      *forcetree.Zoom
	disposed  bool
	notify    chan struct{}
}

var _ forcetree.Surface = (*terminalSurface)(nil)

func newTerminalSurface() *terminalSurface {
	return &terminalSurface{
		frame:     forcetree.Frame{Selected: -1, Hovered: -1},
		transform: forcetree.Identity,
		notify:    make(chan struct{}, 1),
	}
}

// update applies fn under the lock and wakes the program.
func (s *terminalSurface) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	fn()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *terminalSurface) Mount(scene *forcetree.Scene) error {
	s.update(func() { s.scene = scene })
	return nil
}

func (s *terminalSurface) UpdatePositions(f forcetree.Frame) {
	s.update(func() { s.frame = f })
}

func (s *terminalSurface) ShowTooltip(t forcetree.Tooltip) {
	s.update(func() { s.tooltip = &t })
}

func (s *terminalSurface) HideTooltip() {
	s.update(func() { s.tooltip = nil })
}

func (s *terminalSurface) ApplyTransform(t forcetree.Transform) {
	s.update(func() { s.transform = t })
}

func (s *terminalSurface) BindDrag(h forcetree.DragHandler) {
	s.mu.Lock()
	s.drag = h
	s.mu.Unlock()
}

func (s *terminalSurface) BindPointer(h forcetree.PointerHandler) {
	s.mu.Lock()
	s.pointer = h
	s.mu.Unlock()
}

func (s *terminalSurface) BindZoom(z *forcetree.Zoom) {
	s.mu.Lock()
	s.zoom = z
	s.mu.Unlock()
}

// Dispose closes the notify channel, which ends the program.
func (s *terminalSurface) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.disposed {
		s.disposed = true
		close(s.notify)
	}
	return nil
}

type surfaceState struct {
	scene     *forcetree.Scene
	frame     forcetree.Frame
	tooltip   *forcetree.Tooltip
	transform forcetree.Transform
}

func (s *terminalSurface) state() surfaceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return surfaceState{scene: s.scene, frame: s.frame, tooltip: s.tooltip, transform: s.transform}
}

func (s *terminalSurface) handlers() (forcetree.DragHandler, forcetree.PointerHandler, *forcetree.Zoom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag, s.pointer, s.zoom
}

type redrawMsg struct{}

type disposedMsg struct{}

// waitForRedraw blocks until the surface changes or is disposed.
func waitForRedraw(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return disposedMsg{}
		}
		return redrawMsg{}
	}
}

// =============================================================================
// viewModel - keyboard interaction with a live view
// =============================================================================

// viewModel drives a view from the keyboard. The cursor stands in for the
// mouse pointer: tab moves it from node to node, arrows drag the node under
// it.
type viewModel struct {
	view     *forcetree.View
	surface  *terminalSurface
	cursor   int
	dragging bool
	cols     int
	rows     int
}

func newViewModel(v *forcetree.View, s *terminalSurface) viewModel {
	return viewModel{view: v, surface: s, cursor: -1, cols: 80, rows: 24}
}

func (m viewModel) Init() tea.Cmd {
	return waitForRedraw(m.surface.notify)
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
	case redrawMsg:
		return m, waitForRedraw(m.surface.notify)
	case disposedMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m viewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	_, pointer, zoom := m.surface.handlers()
	switch msg.String() {
	case "q", "ctrl+c":
		m.release()
		return m, tea.Quit
	case "tab":
		m.hover(1)
	case "shift+tab":
		m.hover(-1)
	case "enter":
		if m.cursor >= 0 {
			pointer.Click(m.cursor)
		}
	case "esc":
		m.view.ClearSelection()
	case "up", "k":
		m.nudge(0, -1)
	case "down", "j":
		m.nudge(0, 1)
	case "left", "h":
		m.nudge(-1, 0)
	case "right", "l":
		m.nudge(1, 0)
	case " ":
		m.release()
	case "+", "=":
		zoom.ScaleTo(zoom.Transform().K * zoomStep)
	case "-":
		zoom.ScaleTo(zoom.Transform().K / zoomStep)
	case "0":
		zoom.Reset()
	}
	return m, nil
}

// hover moves the cursor step nodes forward, leaving the old node and
// entering the new one.
func (m *viewModel) hover(step int) {
	_, pointer, _ := m.surface.handlers()
	n := len(m.view.Scene().Nodes)
	if n == 0 {
		return
	}
	m.release()
	if m.cursor >= 0 {
		pointer.PointerLeave(m.cursor)
	}
	switch {
	case m.cursor < 0 && step > 0:
		m.cursor = 0
	case m.cursor < 0:
		m.cursor = n - 1
	default:
		m.cursor = ((m.cursor+step)%n + n) % n
	}
	pointer.PointerEnter(m.cursor)
}

// nudge drags the cursor node by one step, starting a gesture when none is
// active. Steps are constant on screen, so they shrink in graph units as
// the view zooms in.
func (m *viewModel) nudge(dx, dy float64) {
	if m.cursor < 0 {
		return
	}
	drag, _, zoom := m.surface.handlers()
	if !m.dragging {
		drag.DragStart(m.cursor)
		m.dragging = true
	}
	sim := m.view.Simulation()
	x, y, ok := sim.Fixed(m.cursor)
	if !ok {
		p := sim.Position(m.cursor)
		x, y = p.X, p.Y
	}
	step := nudgeStep / zoom.Transform().K
	drag.Drag(m.cursor, x+dx*step, y+dy*step)
}

// release ends the drag gesture, if any.
func (m *viewModel) release() {
	if !m.dragging {
		return
	}
	drag, _, _ := m.surface.handlers()
	drag.DragEnd(m.cursor)
	m.dragging = false
}

func (m viewModel) View() string {
	st := m.surface.state()
	if st.scene == nil {
		return StyleDim.Render("mounting...")
	}

	header := StyleTitle.Render(appName+" · "+st.scene.Root) +
		StyleDim.Render(fmt.Sprintf("  %d nodes · %d links · alpha %.3f · zoom %.2fx",
			len(st.scene.Nodes), len(st.scene.Links), st.frame.Alpha, st.transform.K))

	info := StyleDim.Render("tab to pick a node")
	if t := st.tooltip; t != nil {
		info = StyleHighlight.Render(t.Heading()) + "  " + StyleDim.Render(t.Path)
	}
	if m.dragging {
		info += "  " + StyleWarning.Render("dragging")
	}
	help := StyleDim.Render("tab/shift+tab hover · enter select · esc clear · arrows drag · space drop · +/- zoom · 0 reset · q quit")

	rows := max(m.rows-4, 5)
	cols := max(m.cols, 10)
	return lipgloss.JoinVertical(lipgloss.Left, header, m.draw(st, cols, rows), info, help)
}

// draw rasterizes the frame onto a cols x rows character grid.
func (m viewModel) draw(st surfaceState, cols, rows int) string {
	c := newCanvas(cols, rows)
	vb := st.scene.ViewBox
	cell := func(p force.Point) (int, int) {
		q := st.transform.Apply(p)
		return int(math.Floor((q.X - vb.X) / vb.Width * float64(cols))),
			int(math.Floor((q.Y - vb.Y) / vb.Height * float64(rows)))
	}

	for _, seg := range st.frame.Links {
		x0, y0 := cell(force.Point{X: seg.X1, Y: seg.Y1})
		x1, y1 := cell(force.Point{X: seg.X2, Y: seg.Y2})
		c.line(x0, y0, x1, y1, '·', styleLink)
	}
	for i, p := range st.frame.Nodes {
		if i >= len(st.scene.Nodes) {
			break
		}
		x, y := cell(p)
		glyph, style := '●', typeStyle(st.scene.Nodes[i].Type)
		if i == st.frame.Selected {
			glyph, style = '◉', styleSelected
		}
		if i == m.cursor {
			style = style.Inherit(styleCursor)
		}
		c.set(x, y, glyph, style)
	}
	return c.String()
}

// typeStyle picks a stable palette color for a node type.
func typeStyle(typ string) lipgloss.Style {
	if typ == "" {
		return lipgloss.NewStyle().Foreground(colorGray)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(typ))
	return lipgloss.NewStyle().Foreground(nodePalette[h.Sum32()%uint32(len(nodePalette))])
}

type canvasCell struct {
	glyph rune
	style lipgloss.Style
}

type canvas struct {
	cols, rows int
	cells      []*canvasCell
}

func newCanvas(cols, rows int) *canvas {
	return &canvas{cols: cols, rows: rows, cells: make([]*canvasCell, cols*rows)}
}

// set draws glyph at (x, y); points outside the grid are clipped.
func (c *canvas) set(x, y int, glyph rune, style lipgloss.Style) {
	if x < 0 || y < 0 || x >= c.cols || y >= c.rows {
		return
	}
	c.cells[y*c.cols+x] = &canvasCell{glyph: glyph, style: style}
}

// line draws a straight line by stepping along its longer axis.
func (c *canvas) line(x0, y0, x1, y1 int, glyph rune, style lipgloss.Style) {
	dx, dy := x1-x0, y1-y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		c.set(x0, y0, glyph, style)
		return
	}
	for i := 0; i <= steps; i++ {
		x := x0 + int(math.Round(float64(dx*i)/float64(steps)))
		y := y0 + int(math.Round(float64(dy*i)/float64(steps)))
		c.set(x, y, glyph, style)
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.rows; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < c.cols; x++ {
			if cell := c.cells[y*c.cols+x]; cell != nil {
				b.WriteString(cell.style.Render(string(cell.glyph)))
			} else {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// =============================================================================
// view command
// =============================================================================

// viewCommand creates the view command, which runs a live view in the
// terminal.
func (c *CLI) viewCommand() *cobra.Command {
	var lf layoutFlags

	cmd := &cobra.Command{
		Use:   "view [ecosystem.json|ecosystem.toml]",
		Short: "Explore an ecosystem interactively in the terminal",
		Long: `Run the force simulation live in the terminal.

Keys:
  tab / shift+tab   hover the next / previous node
  enter             select the hovered node
  esc               clear the selection
  arrows, hjkl      drag the hovered node
  space             drop the dragged node
  + / -             zoom in / out
  0                 reset zoom
  q                 quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.pipelineOptions(cmd, &lf)
			if err != nil {
				return err
			}
			opts.Path = args[0]
			return c.runView(cmd.Context(), opts)
		},
	}
	lf.register(cmd)
	return cmd
}

func (c *CLI) runView(ctx context.Context, opts pipeline.Options) error {
	runner := pipeline.NewRunner(nil, nil, c.Logger)
	defer runner.Close()

	root, _, err := runner.Load(ctx, opts)
	if err != nil {
		return err
	}
	if err := opts.ValidateForLayout(); err != nil {
		return err
	}

	// The program owns the terminal until it exits.
	opts.Logger = log.New(io.Discard)
	surface := newTerminalSurface()
	v, err := forcetree.Render(ctx, root, surface, opts.RenderOptions()...)
	if err != nil {
		return err
	}
	defer v.Dispose()

	p := tea.NewProgram(newViewModel(v, surface), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("terminal view: %w", err)
	}

	l := v.Layout()
	printSuccess("Closed view of %s", root.Path())
	printStats(len(l.Nodes), len(l.Links), false)
	return nil
}
