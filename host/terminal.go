// Package host implements the terminal the overlay decorates on top of tcell.
package host

import (
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/powermode/engine"
	"github.com/lixenwraith/powermode/render"
)

// Layout: one header row, the pad, one status row
const (
	headerRows = 1
	statusRows = 1

	// Surface pixels per cell; half-block glyphs give two rows per cell
	pixelsPerRow = 2

	toastDuration      = 2 * time.Second
	DefaultCursorColor = "white"
	upperHalfBlock     = '▀'
)

// Terminal colors
var (
	background = render.RGB{R: 0x12, G: 0x12, B: 0x1a}
	foreground = render.RGB{R: 0xd0, G: 0xd0, B: 0xd0}
	headerBg   = render.RGB{R: 0x2a, G: 0x2a, B: 0x3a}
	toastFg    = render.RGB{R: 0xff, G: 0xd7, B: 0x00}
)

// Option configures a Terminal
type Option func(*Terminal)

// WithCursorColor sets the reported cursor color spec
func WithCursorColor(spec string) Option {
	return func(t *Terminal) {
		t.cursorColor = spec
	}
}

// WithClock sets the time source used for toast expiry
func WithClock(c engine.Clock) Option {
	return func(t *Terminal) {
		t.clock = c
	}
}

// WithShell sets the shell name used in "command not found" output
func WithShell(name string) Option {
	return func(t *Terminal) {
		t.pad = NewPad(name)
	}
}

// Terminal is a tcell-backed engine.Host hosting a Pad
// Methods other than Notify run on the loop goroutine
type Terminal struct {
	screen      tcell.Screen
	pad         *Pad
	clock       engine.Clock
	cursorColor string
	title       string

	width, height    int
	offsetX, offsetY int // Shake translation in cells

	surfaces  []*render.Surface
	resizeFns map[uint64]func(width, height int)
	nextID    uint64

	onCursor func(engine.CursorEvent)
	onMutate func()
	onOutput func(string)
	status   func() string

	toastMu    sync.Mutex
	toast      string
	toastUntil time.Time
}

// NewTerminal wraps an initialized screen
func NewTerminal(screen tcell.Screen, opts ...Option) *Terminal {
	t := &Terminal{
		screen:      screen,
		pad:         NewPad("bash"),
		clock:       &engine.TimeProvider{},
		cursorColor: DefaultCursorColor,
		title:       "powermode",
		resizeFns:   make(map[uint64]func(width, height int)),
	}
	for _, opt := range opts {
		opt(t)
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcellColor(background)).Foreground(tcellColor(foreground)))
	t.layout()
	return t
}

// Pad returns the hosted text area
func (t *Terminal) Pad() *Pad {
	return t.pad
}

// OnCursorMove sets the push hook called whenever the cursor cell changes
func (t *Terminal) OnCursorMove(fn func(engine.CursorEvent)) {
	t.onCursor = fn
}

// OnMutate sets the hook called after any content change
func (t *Terminal) OnMutate(fn func()) {
	t.onMutate = fn
}

// OnOutput sets the hook receiving command output, used for wow detection
func (t *Terminal) OnOutput(fn func(string)) {
	t.onOutput = fn
}

// SetStatus sets the provider of the status row text
func (t *Terminal) SetStatus(fn func() string) {
	t.status = fn
}

// layout reads the screen size and resizes the pad
func (t *Terminal) layout() bool {
	w, h := t.screen.Size()
	changed := w != t.width || h != t.height
	t.width, t.height = w, h
	t.pad.Resize(w, max(h-headerRows-statusRows, 0))
	return changed
}

// Bounds implements engine.Host, the pad's rect in surface pixels
// The rect follows the current shake translation
func (t *Terminal) Bounds() (engine.Rect, bool) {
	rows := t.height - headerRows - statusRows
	if t.width <= 0 || rows <= 0 {
		return engine.Rect{}, false
	}
	return engine.Rect{
		X:      float64(t.offsetX),
		Y:      float64((headerRows + t.offsetY) * pixelsPerRow),
		Width:  float64(t.width),
		Height: float64(rows * pixelsPerRow),
	}, true
}

// Viewport implements engine.Host
func (t *Terminal) Viewport() (width, height int) {
	return t.width, t.height * pixelsPerRow
}

// OnResize implements engine.Host
func (t *Terminal) OnResize(fn func(width, height int)) func() {
	id := t.nextID
	t.nextID++
	t.resizeFns[id] = fn
	return func() {
		delete(t.resizeFns, id)
	}
}

// Translate implements engine.Host, offsets are rounded to whole cells
func (t *Terminal) Translate(dx, dy float64) {
	t.offsetX = int(math.Round(dx))
	t.offsetY = int(math.Round(dy / pixelsPerRow))
}

// Offset returns the current translation in cells
func (t *Terminal) Offset() (dx, dy int) {
	return t.offsetX, t.offsetY
}

// Attach implements engine.Host
func (t *Terminal) Attach(s *render.Surface) {
	if !slices.Contains(t.surfaces, s) {
		t.surfaces = append(t.surfaces, s)
	}
}

// Detach implements engine.Host
func (t *Terminal) Detach(s *render.Surface) {
	t.surfaces = slices.DeleteFunc(t.surfaces, func(o *render.Surface) bool { return o == s })
}

// CursorColor implements engine.Host
func (t *Terminal) CursorColor() string {
	return t.cursorColor
}

// CursorPosition returns the cursor relative to the pad origin in surface pixels
// The point is the cell's horizontal start and vertical center
func (t *Terminal) CursorPosition() (engine.CursorEvent, bool) {
	col, row, ok := t.pad.Cursor()
	if !ok {
		return engine.CursorEvent{}, false
	}
	return engine.CursorEvent{X: float64(col), Y: float64(row*pixelsPerRow + 1)}, true
}

// Notify implements notify.Notifier by showing a transient toast in the status row
func (t *Terminal) Notify(title, body string) {
	msg := title
	if body != "" {
		msg += ": " + body
	}
	t.toastMu.Lock()
	t.toast = msg
	t.toastUntil = t.clock.Now().Add(toastDuration)
	t.toastMu.Unlock()
}

// Toast returns the active toast text, empty once expired
func (t *Terminal) Toast() string {
	t.toastMu.Lock()
	defer t.toastMu.Unlock()
	if t.toast != "" && !t.clock.Now().Before(t.toastUntil) {
		t.toast = ""
	}
	return t.toast
}

// HandleEvent processes one tcell event, returns false when the user quits
func (t *Terminal) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return t.handleKey(ev)
	case *tcell.EventResize:
		t.screen.Sync()
		if t.layout() {
			w, h := t.Viewport()
			for _, id := range slices.Sorted(maps.Keys(t.resizeFns)) {
				t.resizeFns[id](w, h)
			}
		}
		t.mutated(false)
	}
	return true
}

func (t *Terminal) handleKey(ev *tcell.EventKey) bool {
	moved := false
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRune:
		t.pad.Insert(ev.Rune())
		moved = true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		moved = t.pad.Backspace()
	case tcell.KeyLeft:
		moved = t.pad.MoveCursor(-1)
	case tcell.KeyRight:
		moved = t.pad.MoveCursor(1)
	case tcell.KeyHome:
		moved = t.pad.MoveCursor(-len(t.pad.input))
	case tcell.KeyEnd:
		moved = t.pad.MoveCursor(len(t.pad.input))
	case tcell.KeyCtrlL:
		t.pad.Clear()
		moved = true
	case tcell.KeyEnter:
		out := t.pad.Enter()
		if out != "" && t.onOutput != nil {
			t.onOutput(out)
		}
		moved = true
	default:
		return true
	}
	t.mutated(moved)
	return true
}

// mutated fires the observe hook always and the push hook on cursor moves
func (t *Terminal) mutated(moved bool) {
	if t.onMutate != nil {
		t.onMutate()
	}
	if moved && t.onCursor != nil {
		if ev, ok := t.CursorPosition(); ok {
			t.onCursor(ev)
		}
	}
}

// Draw renders the header, pad, status row and attached overlays, then shows the screen
func (t *Terminal) Draw() {
	base := tcell.StyleDefault.Background(tcellColor(background)).Foreground(tcellColor(foreground))
	t.screen.Fill(' ', base)

	header := tcell.StyleDefault.Background(tcellColor(headerBg)).Foreground(tcellColor(foreground)).Bold(true)
	t.fillRow(0, header)
	t.drawText(1, 0, t.title, header)

	// Pad content follows the shake offset, header and status stay put
	for i, line := range t.pad.View() {
		y := headerRows + i + t.offsetY
		if y < headerRows || y >= t.height-statusRows {
			continue
		}
		t.drawText(t.offsetX, y, line, base)
	}

	t.drawStatus(base)
	t.drawOverlays()

	if col, row, ok := t.pad.Cursor(); ok {
		t.screen.ShowCursor(col+t.offsetX, headerRows+row+t.offsetY)
	} else {
		t.screen.HideCursor()
	}
	t.screen.Show()
}

func (t *Terminal) drawStatus(base tcell.Style) {
	y := t.height - 1
	if y < headerRows {
		return
	}
	if toast := t.Toast(); toast != "" {
		t.drawText(1, y, toast, base.Foreground(tcellColor(toastFg)).Bold(true))
		return
	}
	if t.status != nil {
		t.drawText(1, y, t.status(), base.Dim(true))
	}
}

func (t *Terminal) fillRow(y int, style tcell.Style) {
	for x := 0; x < t.width; x++ {
		t.screen.SetContent(x, y, ' ', nil, style)
	}
}

func (t *Terminal) drawText(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		if x >= t.width {
			return
		}
		if x >= 0 {
			t.screen.SetContent(x, y, r, nil, style)
		}
		x++
	}
}

// drawOverlays composites every attached surface over the cells
// Each cell covers two surface rows: blank cells become a half-block with the top
// pixel as foreground and the bottom pixel as background, text cells keep their
// glyph and take the averaged tint as background
func (t *Terminal) drawOverlays() {
	for _, s := range t.surfaces {
		sw, sh := s.Size()
		for cy := 0; cy < t.height; cy++ {
			top := cy * pixelsPerRow
			if top >= sh {
				break
			}
			for cx := 0; cx < t.width && cx < sw; cx++ {
				hi := s.At(cx, top)
				lo := s.At(cx, top+1)
				if hi.Alpha <= 0 && lo.Alpha <= 0 {
					continue
				}
				t.compositeCell(cx, cy, hi, lo)
			}
		}
	}
}

func (t *Terminal) compositeCell(x, y int, hi, lo render.Pixel) {
	mainc, comb, style, _ := t.screen.GetContent(x, y)
	_, bg, _ := style.Decompose()
	under := fromTcell(bg, background)

	if mainc == ' ' || mainc == upperHalfBlock || mainc == 0 {
		top, bottom := under, under
		if mainc == upperHalfBlock {
			fg, _, _ := style.Decompose()
			top = fromTcell(fg, under)
		}
		top = render.Composite(top, hi)
		bottom = render.Composite(bottom, lo)
		t.screen.SetContent(x, y, upperHalfBlock, nil, style.Foreground(tcellColor(top)).Background(tcellColor(bottom)))
		return
	}

	tint := render.Composite(render.Composite(under, hi), lo)
	t.screen.SetContent(x, y, mainc, comb, style.Background(tcellColor(tint)))
}

func tcellColor(c render.RGB) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// fromTcell converts a cell color, falling back when it is the terminal default
func fromTcell(c tcell.Color, fallback render.RGB) render.RGB {
	if c == tcell.ColorDefault || !c.Valid() {
		return fallback
	}
	r, g, b := c.RGB()
	return render.RGB{R: uint8(r), G: uint8(g), B: uint8(b)}
}
