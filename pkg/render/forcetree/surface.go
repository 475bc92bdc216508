package forcetree

// DragHandler receives drag gestures. Coordinates are in graph space, i.e.
// already inverted through the current zoom transform.
type DragHandler interface {
	DragStart(node int)
	Drag(node int, x, y float64)
	DragEnd(node int)
}

// PointerHandler receives hover and click events.
type PointerHandler interface {
	PointerEnter(node int)
	PointerLeave(node int)
	Click(node int)
}

// Surface is where a view is drawn and where pointer input comes from.
//
// A view calls Mount once, then the Bind methods, then UpdatePositions for
// every frame. Surfaces deliver input by calling the bound handlers, from
// any goroutine. Dispose is called exactly once, after the last frame.
type Surface interface {
	Mount(scene *Scene) error
	UpdatePositions(f Frame)

	BindDrag(h DragHandler)
	BindPointer(h PointerHandler)
	BindZoom(z *Zoom)

	ShowTooltip(t Tooltip)
	HideTooltip()
	ApplyTransform(t Transform)

	Dispose() error
}
