// Package notify delivers user-facing notifications to one or more sinks.
package notify

import (
	"errors"
	"log"
	"os/exec"
	"runtime"
	"sync"
)

// ErrNoBackend is returned when no desktop notification tool is installed
var ErrNoBackend = errors.New("no notification backend")

// Notifier delivers a notification, implementations must not block for long
type Notifier interface {
	Notify(title, body string)
}

// Func adapts a function to Notifier
type Func func(title, body string)

// Notify implements Notifier
func (f Func) Notify(title, body string) {
	f(title, body)
}

// Multi fans a notification out to every non-nil notifier in order
type Multi []Notifier

// Notify implements Notifier
func (m Multi) Notify(title, body string) {
	for _, n := range m {
		if n != nil {
			n.Notify(title, body)
		}
	}
}

// Backend describes an external notification command
type Backend struct {
	Name string
	Path string
	Args func(title, body string) []string
}

// DetectBackend searches for a desktop notification tool
// Priority: notify-send (Linux/BSD) > osascript (macOS)
func DetectBackend() (*Backend, error) {
	if path, err := exec.LookPath("notify-send"); err == nil {
		return &Backend{
			Name: "notify-send",
			Path: path,
			Args: func(title, body string) []string {
				args := []string{"--app-name=powermode", title}
				if body != "" {
					args = append(args, body)
				}
				return args
			},
		}, nil
	}

	if runtime.GOOS == "darwin" {
		if path, err := exec.LookPath("osascript"); err == nil {
			return &Backend{
				Name: "osascript",
				Path: path,
				Args: func(title, body string) []string {
					return []string{"-e", "display notification " + appleQuote(body) + " with title " + appleQuote(title)}
				},
			}, nil
		}
	}

	return nil, ErrNoBackend
}

// appleQuote renders s as an AppleScript string literal
func appleQuote(s string) string {
	out := make([]rune, 0, len(s)+2)
	out = append(out, '"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '"'))
}

// Desktop sends notifications through the OS notification daemon
// Commands run in the background; failures are logged, never returned
type Desktop struct {
	backend *Backend
	run     func(path string, args []string) error
	wg      sync.WaitGroup
}

// NewDesktop detects a backend, returns ErrNoBackend if none is available
func NewDesktop() (*Desktop, error) {
	b, err := DetectBackend()
	if err != nil {
		return nil, err
	}
	return &Desktop{backend: b, run: runCommand}, nil
}

func runCommand(path string, args []string) error {
	return exec.Command(path, args...).Run()
}

// Notify implements Notifier
func (d *Desktop) Notify(title, body string) {
	args := d.backend.Args(title, body)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.run(d.backend.Path, args); err != nil {
			log.Printf("[notify] %s failed: %v", d.backend.Name, err)
		}
	}()
}

// Wait blocks until in-flight notifications finish
func (d *Desktop) Wait() {
	d.wg.Wait()
}
