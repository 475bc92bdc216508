package server

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcetree/pkg/errors"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
	"github.com/matzehuels/forcetree/pkg/render/forcetree/sink"
)

// liveView is a registered view and the stream surface it renders to.
type liveView struct {
	view    *forcetree.View
	stream  *sink.Stream
	source  string
	title   string
	created time.Time

	mu       sync.Mutex
	lastSeen time.Time
	once     sync.Once
}

func (lv *liveView) touch() {
	lv.mu.Lock()
	lv.lastSeen = time.Now()
	lv.mu.Unlock()
}

func (lv *liveView) idleSince() time.Time {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return lv.lastSeen
}

func (lv *liveView) dispose(logger *log.Logger) {
	lv.once.Do(func() {
		if err := lv.view.Dispose(); err != nil {
			logger.Warn("dispose view", "view", lv.view.ID(), "err", err)
		}
	})
}

// viewInfo is the JSON description of a live view.
type viewInfo struct {
	ID          string    `json:"id"`
	Root        string    `json:"root"`
	Source      string    `json:"source"`
	Nodes       int       `json:"nodes"`
	Links       int       `json:"links"`
	Alpha       float64   `json:"alpha"`
	Selected    int       `json:"selected"`
	Subscribers int       `json:"subscribers"`
	Created     time.Time `json:"created_at"`
	URL         string    `json:"url"`
	Events      string    `json:"events"`
}

func (lv *liveView) info() viewInfo {
	sc := lv.view.Scene()
	base := "/views/" + sc.ID
	return viewInfo{
		ID:          sc.ID,
		Root:        sc.Root,
		Source:      lv.source,
		Nodes:       len(sc.Nodes),
		Links:       len(sc.Links),
		Alpha:       lv.view.Simulation().Alpha(),
		Selected:    lv.view.Selected(),
		Subscribers: lv.stream.Subscribers(),
		Created:     lv.created,
		URL:         base,
		Events:      base + "/events",
	}
}

func (s *Server) addView(lv *liveView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.base.Err() != nil {
		return errors.New(errors.ErrCodeDisposed, "server is shutting down")
	}
	if len(s.views) >= s.opts.MaxViews {
		return errTooManyViews
	}
	s.views[lv.view.ID()] = lv
	return nil
}

func (s *Server) getView(id string) (*liveView, error) {
	s.mu.Lock()
	lv, ok := s.views[id]
	s.mu.Unlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeViewNotFound, "no live view %q", id)
	}
	lv.touch()
	return lv, nil
}

func (s *Server) removeView(id string) (*liveView, error) {
	s.mu.Lock()
	lv, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeViewNotFound, "no live view %q", id)
	}
	return lv, nil
}

func (s *Server) viewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

func (s *Server) listViews() []viewInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]viewInfo, 0, len(s.views))
	for _, lv := range s.views {
		out = append(out, lv.info())
	}
	return out
}

// idleViews unregisters and returns views without subscribers that were last
// used before now-idle.
func (s *Server) idleViews(now time.Time, idle time.Duration) []*liveView {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*liveView
	for id, lv := range s.views {
		if lv.stream.Subscribers() == 0 && now.Sub(lv.idleSince()) >= idle {
			delete(s.views, id)
			out = append(out, lv)
		}
	}
	return out
}
