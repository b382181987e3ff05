// Package receiver provides receivers for statuslog: console, rotating
// files, HTTP endpoints, and an in-memory recorder.
package receiver

import (
	"context"
	"io"
	"sync"

	"github.com/lixenwraith/statuslog"
	"github.com/lixenwraith/statuslog/formatter"
)

// Console writes results and status lines to a writer, one per line
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	f    *formatter.Formatter
	name string
}

// NewConsole creates a console receiver formatting output as format
// ("txt", "json", or "raw")
func NewConsole(w io.Writer, format string) *Console {
	return &Console{
		w: w,
		f: formatter.New().Type(format),
	}
}

// Init implements statuslog.Receiver, writing the buffered lines
func (c *Console) Init(name string, lines []statuslog.StatusLine) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
	_ = c.LogStatus(context.Background(), lines)
}

// LogString implements statuslog.Receiver
func (c *Console) LogString(_ context.Context, text string) error {
	return c.write(statuslog.CategoryEvent, text)
}

// LogSnapshot implements statuslog.SnapshotReceiver
func (c *Console) LogSnapshot(_ context.Context, text string) error {
	return c.write(statuslog.CategorySnapshot, text)
}

// LogStatus implements statuslog.Receiver
func (c *Console) LogStatus(_ context.Context, lines []statuslog.StatusLine) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range lines {
		data := c.f.FormatStatus(0, line.Time, line.Severity.String(), line.Location(), line.Message)
		if err := c.writeLine(data); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) write(category, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLine(c.f.FormatString(category, text))
}

// writeLine writes data, terminating raw output with a newline
func (c *Console) writeLine(data []byte) error {
	if c.f.Kind() == "raw" {
		data = append(data, '\n')
	}
	_, err := c.w.Write(data)
	return err
}
