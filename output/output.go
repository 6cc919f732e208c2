// Package output holds the capability through which a finished command reports back
// to its host, plus the panel renderer used when no handler is supplied.
package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrorHeading prefixes failure text in the panel
const ErrorHeading = "Error\n-----\n"

// Deliverer receives the terminal output of a command exactly once
type Deliverer interface {
	Deliver(output string, isError bool)
}

// DelivererFunc adapts a function to Deliverer
type DelivererFunc func(output string, isError bool)

// Deliver implements Deliverer
func (f DelivererFunc) Deliver(output string, isError bool) {
	f(output, isError)
}

// Panel renders output into a writer, the way an output panel would show it
type Panel struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPanel creates a Panel writing to w
func NewPanel(w io.Writer) *Panel {
	return &Panel{w: w}
}

// Deliver implements Deliverer. Whitespace-only content is not shown.
func (p *Panel) Deliver(output string, isError bool) {
	if isError {
		output = ErrorHeading + output
	}
	p.Show(output)
}

// Show writes contents unless they are blank
func (p *Panel) Show(contents string) {
	if strings.TrimRight(contents, " \t\r\n") == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, contents)
	if !strings.HasSuffix(contents, "\n") {
		fmt.Fprintln(p.w)
	}
}

// Route sends failures to the panel and successful output to handler.
// With a nil handler everything goes to the panel.
func Route(panel *Panel, handler Deliverer) Deliverer {
	return DelivererFunc(func(output string, isError bool) {
		if isError || handler == nil {
			panel.Deliver(output, isError)
			return
		}
		handler.Deliver(output, false)
	})
}
