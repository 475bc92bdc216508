// Package layout defines the serialized form of a settled force-directed
// graph.
//
// A [Layout] is what the renderer produces once its simulation has cooled:
// the view box, the node radius, every rendered node with its position and
// the data needed to style and describe it, and every rendered link as a
// pair of node indices. Layouts carry both JSON and BSON tags so the same
// value can be written to a file, cached, returned from the HTTP API or
// stored in MongoDB.
//
//	l, err := layout.ReadFile("graph.json")
//	data, err := layout.Marshal(l)
package layout
