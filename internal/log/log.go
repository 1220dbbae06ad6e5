// Package log provides structured, colored logging for the NFB ledger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const consoleTime = "15:04:05"

// Logger is the process-wide root logger.
var Logger zerolog.Logger

// Component loggers. They are rebuilt from Logger on every Init.
var (
	Registry zerolog.Logger
	Sales    zerolog.Logger
	Ledger   zerolog.Logger
	RPC      zerolog.Logger
	Storage  zerolog.Logger
	Node     zerolog.Logger
	Keys     zerolog.Logger
)

// logFile is the file opened by the last Init, if any.
var logFile *os.File

func init() {
	setRoot(NewConsoleLogger(os.Stdout, "info"))
}

// Init configures the root logger. Console output is colored unless
// jsonOutput is set. A non-empty file additionally receives every record
// as JSON.
func Init(level string, jsonOutput bool, file string) error {
	var console io.Writer = os.Stdout
	if !jsonOutput {
		console = consoleWriter(os.Stdout)
	}

	var f *os.File
	if file != "" {
		var err error
		f, err = os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		console = zerolog.MultiLevelWriter(console, f)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f

	setRoot(build(console, level))
	return nil
}

// NewConsoleLogger returns a colored human-readable logger writing to w.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return build(consoleWriter(w), level)
}

// NewJSONLogger returns a logger writing one JSON object per record to w.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return build(w, level)
}

// WithComponent returns a child of the root logger tagged with name.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTime}
}

func build(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func setRoot(l zerolog.Logger) {
	Logger = l
	Registry = WithComponent("registry")
	Sales = WithComponent("sales")
	Ledger = WithComponent("ledger")
	RPC = WithComponent("rpc")
	Storage = WithComponent("storage")
	Node = WithComponent("node")
	Keys = WithComponent("keys")
}

// BadgerLogger adapts a zerolog logger to badger's Logger interface.
// Badger's info chatter is demoted to debug.
type BadgerLogger struct {
	L zerolog.Logger
}

func (b BadgerLogger) Errorf(format string, args ...interface{}) {
	b.L.Error().Msg(trimMsg(format, args))
}

func (b BadgerLogger) Warningf(format string, args ...interface{}) {
	b.L.Warn().Msg(trimMsg(format, args))
}

func (b BadgerLogger) Infof(format string, args ...interface{}) {
	b.L.Debug().Msg(trimMsg(format, args))
}

func (b BadgerLogger) Debugf(format string, args ...interface{}) {
	b.L.Debug().Msg(trimMsg(format, args))
}

func trimMsg(format string, args []interface{}) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
