package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorGray    = "\033[90m"
)

var (
	consoleMu sync.Mutex
	console   io.Writer = os.Stdout
	noColor   bool
)

// SetConsole redirects console lines (tests, --quiet) and toggles colour.
func SetConsole(w io.Writer, color bool) {
	consoleMu.Lock()
	defer consoleMu.Unlock()
	console = w
	noColor = !color
}

func TimeHM() string {
	return time.Now().Format("15:04")
}

func Colorize(s string, color string) string {
	if color == "" || noColor {
		return s
	}
	return color + s + ColorReset
}

// Line prints a single console line prefixed with HH:MM. Lines from
// concurrent workers never interleave.
func Line(label string, labelColor string, msg string) {
	consoleMu.Lock()
	defer consoleMu.Unlock()
	if label != "" {
		fmt.Fprintf(console, "%s %s %s\n", TimeHM(), Colorize(label, labelColor), msg)
		return
	}
	fmt.Fprintf(console, "%s %s\n", TimeHM(), msg)
}

func Linef(label string, labelColor string, format string, args ...any) {
	Line(label, labelColor, fmt.Sprintf(format, args...))
}
