package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// Version is the current layout format version.
const Version = 1

// Layout is a settled snapshot of a rendered ecosystem.
type Layout struct {
	Version int     `json:"version" bson:"version"`
	Root    string  `json:"root" bson:"root"`
	ViewBox ViewBox `json:"view_box" bson:"view_box"`
	Radius  float64 `json:"radius" bson:"radius"`

	Nodes []Node `json:"nodes" bson:"nodes"`
	Links []Link `json:"links" bson:"links"`

	// Ticks is the number of simulation steps taken to settle.
	Ticks int `json:"ticks,omitempty" bson:"ticks,omitempty"`
}

// ViewBox is the SVG coordinate window, centered on the origin.
type ViewBox struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Centered returns a view box of the given size centered on the origin.
func Centered(width, height float64) ViewBox {
	return ViewBox{X: -width / 2, Y: -height / 2, Width: width, Height: height}
}

// String formats the view box as an SVG viewBox attribute.
func (v ViewBox) String() string {
	return fmt.Sprintf("%g %g %g %g", v.X, v.Y, v.Width, v.Height)
}

// Node is a positioned ecosystem node.
type Node struct {
	ID    string  `json:"id" bson:"id"`
	Label string  `json:"label" bson:"label"`
	Type  string  `json:"type,omitempty" bson:"type,omitempty"`
	Path  string  `json:"path" bson:"path"`
	Depth int     `json:"depth" bson:"depth"`
	X     float64 `json:"x" bson:"x"`
	Y     float64 `json:"y" bson:"y"`
}

// Link joins two nodes by index into Layout.Nodes. Class is the type of the
// source node.
type Link struct {
	Source int    `json:"source" bson:"source"`
	Target int    `json:"target" bson:"target"`
	Class  string `json:"class,omitempty" bson:"class,omitempty"`
}

// Validate checks that every link references an existing node.
func (l Layout) Validate() error {
	for i, lk := range l.Links {
		if lk.Source < 0 || lk.Source >= len(l.Nodes) || lk.Target < 0 || lk.Target >= len(l.Nodes) {
			return fmt.Errorf("link %d: %d-%d out of range (%d nodes)", i, lk.Source, lk.Target, len(l.Nodes))
		}
	}
	if l.ViewBox.Width <= 0 || l.ViewBox.Height <= 0 {
		return fmt.Errorf("view box must have a positive size")
	}
	return nil
}

// Marshal serializes a Layout to pretty-printed JSON.
func Marshal(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// Unmarshal deserializes and validates a JSON layout.
func Unmarshal(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if l.Version == 0 {
		l.Version = Version
	}
	if l.Version > Version {
		return Layout{}, fmt.Errorf("unsupported layout version %d", l.Version)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// WriteFile writes a Layout to a JSON file.
func WriteFile(l Layout, path string) error {
	data, err := Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile reads a Layout from a JSON file.
func ReadFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
