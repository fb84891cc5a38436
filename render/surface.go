package render

// Pixel is one surface cell: straight (non-premultiplied) color plus coverage
type Pixel struct {
	Color RGB
	Alpha float64
}

// Surface is the overlay drawing target in host pixel units
// Content is not retained across frames by contract: owners clear and redraw every frame
type Surface struct {
	pixels []Pixel
	width  int
	height int
}

// NewSurface creates a transparent surface with the specified dimensions
func NewSurface(width, height int) *Surface {
	s := &Surface{}
	s.Resize(width, height)
	return s
}

// Size returns current dimensions
func (s *Surface) Size() (width, height int) {
	return s.width, s.height
}

// Resize adjusts surface dimensions, reallocates only if capacity insufficient
// Destructive: existing content is discarded
func (s *Surface) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	size := width * height
	if cap(s.pixels) < size {
		s.pixels = make([]Pixel, size)
	} else {
		s.pixels = s.pixels[:size]
	}
	s.width = width
	s.height = height
	s.Clear()
}

// Clear resets all pixels to transparent using exponential copy
func (s *Surface) Clear() {
	if len(s.pixels) == 0 {
		return
	}
	s.pixels[0] = Pixel{}
	for filled := 1; filled < len(s.pixels); filled *= 2 {
		copy(s.pixels[filled:], s.pixels[:filled])
	}
}

// inBounds returns true if in surface bounds
func (s *Surface) inBounds(x, y int) bool {
	return x >= 0 && x < s.width && y >= 0 && y < s.height
}

// At returns the pixel at (x, y), transparent when out of bounds
func (s *Surface) At(x, y int) Pixel {
	if !s.inBounds(x, y) {
		return Pixel{}
	}
	return s.pixels[y*s.width+x]
}

// FillRect composites color with alpha over a w*h rectangle anchored at (x, y)
// Source-over: out.a = a + dst.a*(1-a), out.c = (c*a + dst.c*dst.a*(1-a)) / out.a
func (s *Surface) FillRect(x, y, w, h int, c RGB, alpha float64) {
	if alpha <= 0 || w <= 0 || h <= 0 {
		return
	}
	if alpha > 1 {
		alpha = 1
	}

	// Clip to bounds
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, s.width), min(y+h, s.height)

	for py := y0; py < y1; py++ {
		row := py * s.width
		for px := x0; px < x1; px++ {
			dst := &s.pixels[row+px]
			*dst = over(*dst, c, alpha)
		}
	}
}

// over composites src with alpha onto dst
func over(dst Pixel, c RGB, alpha float64) Pixel {
	if dst.Alpha <= 0 || alpha >= 1 {
		return Pixel{Color: c, Alpha: alpha}
	}
	keep := dst.Alpha * (1 - alpha)
	outA := alpha + keep
	return Pixel{
		Color: RGB{
			R: clamp((float64(c.R)*alpha + float64(dst.Color.R)*keep) / outA),
			G: clamp((float64(c.G)*alpha + float64(dst.Color.G)*keep) / outA),
			B: clamp((float64(c.B)*alpha + float64(dst.Color.B)*keep) / outA),
		},
		Alpha: outA,
	}
}

// Each calls fn for every non-transparent pixel in row-major order
func (s *Surface) Each(fn func(x, y int, p Pixel)) {
	for i, p := range s.pixels {
		if p.Alpha <= 0 {
			continue
		}
		fn(i%s.width, i/s.width, p)
	}
}

// Composite blends a surface pixel over an opaque terminal color
func Composite(bg RGB, p Pixel) RGB {
	return Blend(bg, p.Color, p.Alpha)
}
