package engine

import (
	"github.com/lixenwraith/powermode/render"
)

// Rect is an on-screen rectangle in surface cells
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Host is the terminal component the overlay decorates
// All methods are called on the scheduler goroutine
type Host interface {
	// Bounds returns the container's on-screen rect, false until laid out
	Bounds() (Rect, bool)

	// Viewport returns the full drawable size the surface must cover
	Viewport() (width, height int)

	// OnResize registers a viewport resize listener
	OnResize(fn func(width, height int)) (unsubscribe func())

	// Translate applies a transient container offset, (0, 0) restores it
	Translate(dx, dy float64)

	// Attach places the overlay surface above the terminal content
	Attach(s *render.Surface)

	// Detach removes a previously attached surface
	Detach(s *render.Surface)

	// CursorColor returns the terminal cursor color spec (name or hex)
	CursorColor() string
}
