// Package ecosystem models the hierarchical data that forcetree visualizes.
//
// An ecosystem is a tree of entries (packages, modules, files, ...). Each
// entry has an identifier, an optional display name and a type that the
// renderers use as a CSS class. The input format is a nested [Data] record:
//
//	{
//	  "id": "root",
//	  "children": [
//	    {"id": "lib", "type": "library", "children": [{"id": "util", "type": "module"}]}
//	  ]
//	}
//
// [Build] turns a [Data] tree into a [Node] hierarchy annotated with depth
// and parent links. The hierarchy offers the traversal operations the
// renderer needs:
//
//   - [Node.Descendants]: every node, breadth-first, root first
//   - [Node.Links]: parent-child edges
//   - [Node.Ancestors]: the node and its ancestors up to the root
//   - [Node.Path]: the "/"-joined id chain from the root to the node
//
// # Validation
//
// Build fails fast on malformed input: empty or "/"-containing ids, nil
// children, types that cannot be used as class names, and cyclic ancestry
// all return an error with code INVALID_ECOSYSTEM. Nothing is skipped
// silently.
//
// # File Formats
//
// [ReadFile] and [WriteFile] support JSON (.json) and TOML (.toml). TOML
// documents use the same keys with [[children]] array tables.
package ecosystem
