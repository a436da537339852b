// Package colorstr wraps text in ANSI color escapes for terminal output.
package colorstr

import (
	"sync"

	"github.com/fatih/color"
)

const (
	RED     = "\033[31m"
	GREEN   = "\033[32m"
	YELLOW  = "\033[33m"
	BLUE    = "\033[34m"
	FUCHSIA = "\033[35m"
	CYAN    = "\033[36m"
	WHITE   = "\033[37m"
	RESET   = "\033[0m"
)

var (
	mu      sync.RWMutex
	palette = map[color.Attribute]*color.Color{}
	enabled = true
)

func init() {
	for _, attr := range []color.Attribute{
		color.FgRed, color.FgGreen, color.FgYellow, color.FgBlue,
		color.FgMagenta, color.FgCyan, color.FgWhite,
	} {
		c := color.New(attr)
		// Force decoration regardless of what fatih/color detects on stdout.
		c.EnableColor()
		palette[attr] = c
	}
}

// SetEnabled toggles decoration for every color. Disabled colors return the
// input unchanged.
func SetEnabled(on bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
	for _, c := range palette {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// Enabled reports whether decoration is on.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func paint(attr color.Attribute, s string) string {
	mu.RLock()
	defer mu.RUnlock()
	return palette[attr].Sprint(s)
}

func Red(s string) string     { return paint(color.FgRed, s) }
func Green(s string) string   { return paint(color.FgGreen, s) }
func Yellow(s string) string  { return paint(color.FgYellow, s) }
func Blue(s string) string    { return paint(color.FgBlue, s) }
func Fuchsia(s string) string { return paint(color.FgMagenta, s) }
func Cyan(s string) string    { return paint(color.FgCyan, s) }
func White(s string) string   { return paint(color.FgWhite, s) }
