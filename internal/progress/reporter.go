package progress

import (
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives progress for batch jobs such as artifact classification.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// NewReporter picks a reporter for the current environment: nothing when
// quiet, log lines under CI, and a progress bar otherwise.
func NewReporter(description string, quiet bool) Reporter {
	if quiet {
		return Nop{}
	}
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &LogReporter{description: description}
	}
	return &TerminalReporter{description: description}
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(int)          {}
func (Nop) Update(int, string) {}
func (Nop) Finish()            {}

// TerminalReporter draws a progress bar on stderr.
type TerminalReporter struct {
	description string
	bar         *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(r.description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar == nil {
		return
	}
	if message != "" {
		r.bar.Describe(message)
	}
	_ = r.bar.Set(current)
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// LogReporter emits one structured log line per update, for CI logs.
type LogReporter struct {
	description string
	total       int
}

func (r *LogReporter) Start(total int) {
	r.total = total
	slog.Info(r.description+" started", "total", total)
}

func (r *LogReporter) Update(current int, message string) {
	slog.Info(r.description, "current", current, "total", r.total, "item", message)
}

func (r *LogReporter) Finish() {
	slog.Info(r.description+" finished", "total", r.total)
}
