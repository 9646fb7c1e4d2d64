package report

import (
	"io"
	"sync"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

type consoleSink struct {
	lock sync.Mutex
	w    io.Writer
}

// NewConsoleSink writes colored, human-readable lines to w.
func NewConsoleSink(w io.Writer) Sink {
	return &consoleSink{w: w}
}

func (c *consoleSink) Log(msg string)     { c.print(nil, "", msg) }
func (c *consoleSink) Info(msg string)    { c.print(infoColor, "[INFO] ", msg) }
func (c *consoleSink) Warn(msg string)    { c.print(warningColor, "[WARNING] ", msg) }
func (c *consoleSink) Success(msg string) { c.print(successColor, "[SUCCESS] ", msg) }
func (c *consoleSink) Error(msg string)   { c.print(errorColor, "[ERROR] ", msg) }

func (c *consoleSink) print(col *color.Color, prefix, msg string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if col == nil {
		_, _ = io.WriteString(c.w, msg+"\n")
		return
	}
	_, _ = col.Fprintf(c.w, "%s%s\n", prefix, msg)
}
