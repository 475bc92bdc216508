package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/render"
	"github.com/matzehuels/forcetree/pkg/render/forcetree/sink"
)

// RenderFromLayout renders l in every format of opts.Formats.
func RenderFromLayout(ctx context.Context, l layout.Layout, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var svg []byte
	svgOnce := func() []byte {
		if svg == nil {
			svg = sink.RenderSVG(l, svgOptions(opts)...)
		}
		return svg
	}

	for _, format := range opts.Formats {
		var (
			data []byte
			err  error
		)
		switch format {
		case FormatSVG:
			data = svgOnce()
		case FormatHTML:
			data, err = sink.RenderHTML(l, htmlOptions(opts)...)
		case FormatJSON:
			data, err = layout.Marshal(l)
		case FormatDOT:
			data = []byte(sink.ToDOT(l))
		case FormatGraphviz:
			data, err = sink.RenderGraphviz(ctx, sink.ToDOT(l))
		case FormatPNG:
			data, err = render.ToPNG(ctx, svgOnce(), opts.Scale)
		case FormatPDF:
			data, err = render.ToPDF(ctx, svgOnce())
		default:
			err = ValidateFormat(format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderFromLayoutData renders a serialized layout.
func RenderFromLayoutData(ctx context.Context, data []byte, opts Options) (map[string][]byte, error) {
	l, err := layout.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return RenderFromLayout(ctx, l, opts)
}

func svgOptions(opts Options) []sink.SVGOption {
	if opts.Style == "" {
		return nil
	}
	return []sink.SVGOption{sink.WithStyle(opts.Style)}
}

func htmlOptions(opts Options) []sink.HTMLOption {
	var out []sink.HTMLOption
	if opts.Title != "" {
		out = append(out, sink.WithTitle(opts.Title))
	}
	if opts.Style != "" {
		out = append(out, sink.WithPageStyle(opts.Style))
	}
	return out
}
