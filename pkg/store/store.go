package store

import (
	"context"
	"errors"
	"time"

	"github.com/matzehuels/forcetree/pkg/layout"
)

// ErrNotFound is returned by Get and Delete for unknown ids.
var ErrNotFound = errors.New("layout not found")

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Record is one stored layout snapshot.
type Record struct {
	ID string `json:"id" bson:"_id"`
	// ViewID is the live view the snapshot was taken from, if any.
	ViewID string `json:"view_id,omitempty" bson:"view_id,omitempty"`
	// Source is the hash of the ecosystem document.
	Source    string        `json:"source" bson:"source"`
	Layout    layout.Layout `json:"layout" bson:"layout"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

// Summary is a Record without its layout, as returned by List.
type Summary struct {
	ID        string    `json:"id" bson:"_id"`
	ViewID    string    `json:"view_id,omitempty" bson:"view_id,omitempty"`
	Source    string    `json:"source" bson:"source"`
	Root      string    `json:"root" bson:"root"`
	Nodes     int       `json:"nodes" bson:"nodes"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

func (r Record) summary() Summary {
	return Summary{
		ID:        r.ID,
		ViewID:    r.ViewID,
		Source:    r.Source,
		Root:      r.Layout.Root,
		Nodes:     len(r.Layout.Nodes),
		CreatedAt: r.CreatedAt,
	}
}

// Store saves and retrieves layout snapshots.
type Store interface {
	// Save assigns an id and timestamp when missing and stores rec,
	// replacing any record with the same id.
	Save(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	// List returns summaries newest first.
	List(ctx context.Context, limit int) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}
