// Package logger prints tagged, optionally colored console log lines.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

var (
	mu    sync.Mutex
	debug bool
)

// SetLevel switches debug output on for "debug" and off for anything else.
func SetLevel(level string) {
	mu.Lock()
	debug = strings.EqualFold(strings.TrimSpace(level), "debug")
	mu.Unlock()
}

func colorEnabled() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(color, s string) string {
	if !colorEnabled() {
		return s
	}
	return color + s + reset
}

func line(color, level, tag, msg string) {
	mu.Lock()
	defer mu.Unlock()
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(os.Stdout, "%s %s %s %s\n",
		paint(dim, ts),
		paint(color, fmt.Sprintf("%-4s", level)),
		paint(bold, fmt.Sprintf("[%s]", tag)),
		msg,
	)
}

// Debug logs only when the level is "debug".
func Debug(tag, msg string) {
	mu.Lock()
	on := debug
	mu.Unlock()
	if on {
		line(dim, "DBG", tag, msg)
	}
}

func Info(tag, msg string) {
	line(cyan, "INF", tag, msg)
}

func Success(tag, msg string) {
	line(green, "OK", tag, msg)
}

func Warn(tag, msg string) {
	line(yellow, "WRN", tag, msg)
}

func Error(tag, msg string) {
	line(red, "ERR", tag, msg)
}

// Banner prints the startup banner.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	title := fmt.Sprintf("  LP Analyzer %s  ", version)
	rule := strings.Repeat("=", len(title))
	fmt.Fprintln(os.Stdout, paint(cyan, rule))
	fmt.Fprintln(os.Stdout, paint(bold, title))
	fmt.Fprintln(os.Stdout, paint(cyan, rule))
}

// Section prints a section heading.
func Section(title string) {
	fmt.Fprintf(os.Stdout, "\n%s\n", paint(bold, "--- "+title+" ---"))
}

// Stats prints one "key: value" line.
func Stats(key string, value interface{}) {
	fmt.Fprintf(os.Stdout, "  %s %v\n", paint(dim, key+":"), value)
}

// Server announces the listening address.
func Server(addr string) {
	line(green, "OK", "Server", fmt.Sprintf("Listening on http://%s", addr))
}
