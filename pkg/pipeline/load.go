package pipeline

import (
	"bytes"
	"context"

	"github.com/matzehuels/forcetree/pkg/cache"
	"github.com/matzehuels/forcetree/pkg/ecosystem"
	"github.com/matzehuels/forcetree/pkg/errors"
)

// Load reads the ecosystem named by opts and returns the node to render
// (the subtree at opts.Root, or the whole tree) together with the hash of
// the canonical JSON of the whole document.
func Load(ctx context.Context, opts Options) (*ecosystem.Node, string, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	var (
		root *ecosystem.Node
		err  error
	)
	if opts.Path != "" {
		root, err = ecosystem.ReadFile(opts.Path)
	} else {
		root, err = ecosystem.Read(bytes.NewReader(opts.Document), opts.DocumentFormat)
	}
	if err != nil {
		return nil, "", err
	}

	canonical, err := ecosystem.Marshal(root.Data)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeInternal, err, "hash ecosystem")
	}
	hash := cache.Hash(canonical)

	if opts.Root == "" || opts.Root == root.Path() {
		return root, hash, nil
	}
	sub, ok := root.Find(opts.Root)
	if !ok {
		return nil, "", errors.New(errors.ErrCodeNotFound, "no node at path %q", opts.Root)
	}
	return sub, hash, nil
}
