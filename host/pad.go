package host

import (
	"strings"
	"unicode/utf8"
)

// Prompt precedes the editable input line
const Prompt = "$ "

// maxScrollback bounds retained output lines
const maxScrollback = 1000

// Pad is a minimal shell-like text area: scrollback plus one input line
// Not safe for concurrent use; owned by the loop goroutine
type Pad struct {
	lines  []string
	input  []rune
	cursor int // Rune index into input
	width  int
	height int
	shell  string
}

// NewPad creates a pad reporting unknown commands as the named shell
func NewPad(shell string) *Pad {
	if shell == "" {
		shell = "bash"
	}
	return &Pad{shell: shell}
}

// Resize sets the visible area in cells
func (p *Pad) Resize(width, height int) {
	p.width = max(width, 0)
	p.height = max(height, 0)
}

// Insert types r at the cursor
func (p *Pad) Insert(r rune) {
	p.input = append(p.input, 0)
	copy(p.input[p.cursor+1:], p.input[p.cursor:])
	p.input[p.cursor] = r
	p.cursor++
}

// Backspace deletes the rune before the cursor, returns false at line start
func (p *Pad) Backspace() bool {
	if p.cursor == 0 {
		return false
	}
	p.input = append(p.input[:p.cursor-1], p.input[p.cursor:]...)
	p.cursor--
	return true
}

// MoveCursor shifts the cursor by delta runes within the input, returns false if it did not move
func (p *Pad) MoveCursor(delta int) bool {
	next := min(max(p.cursor+delta, 0), len(p.input))
	if next == p.cursor {
		return false
	}
	p.cursor = next
	return true
}

// Input returns the current input line
func (p *Pad) Input() string {
	return string(p.input)
}

// Enter submits the input line, returns the output the command produced
func (p *Pad) Enter() string {
	line := string(p.input)
	p.input = p.input[:0]
	p.cursor = 0

	p.append(Prompt + line)
	out := p.run(strings.TrimSpace(line))
	if out != "" {
		for _, l := range strings.Split(out, "\n") {
			p.append(l)
		}
	}
	return out
}

// run executes the built-in command set
func (p *Pad) run(line string) string {
	if line == "" {
		return ""
	}
	name, args, _ := strings.Cut(line, " ")
	switch name {
	case "clear":
		p.Clear()
		return ""
	case "echo":
		return strings.TrimSpace(args)
	default:
		return p.shell + ": " + name + ": command not found"
	}
}

// Clear drops the scrollback, keeping the input line
func (p *Pad) Clear() {
	p.lines = p.lines[:0]
}

func (p *Pad) append(line string) {
	p.lines = append(p.lines, line)
	if over := len(p.lines) - maxScrollback; over > 0 {
		p.lines = append(p.lines[:0], p.lines[over:]...)
	}
}

// View returns the visible rows, the last one being the prompt line
func (p *Pad) View() []string {
	if p.height == 0 {
		return nil
	}
	rows := append(append([]string(nil), p.lines...), Prompt+string(p.input))
	if len(rows) > p.height {
		rows = rows[len(rows)-p.height:]
	}
	return rows
}

// Cursor returns the cursor cell relative to the pad origin
// The prompt line wraps nothing; columns past the width clamp to the last cell
func (p *Pad) Cursor() (col, row int, ok bool) {
	if p.width == 0 || p.height == 0 {
		return 0, 0, false
	}
	col = utf8.RuneCountInString(Prompt) + p.cursor
	if col >= p.width {
		col = p.width - 1
	}
	row = min(len(p.lines), p.height-1)
	return col, row, true
}
