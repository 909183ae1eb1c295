// Package logging builds the go-kit loggers used by the mockhost binary.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-stack/stack"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Config selects where log lines go and which levels are kept.
type Config struct {
	// Level is one of debug, info, warn, error or none. Anything else means info.
	Level string
	// File is the path of a rotated log file. Empty logs to Output.
	File string
	// Output is used when File is empty. Defaults to os.Stdout.
	Output io.Writer
}

// New returns a logfmt Logger for cfg. The returned closer releases the log
// file, if any.
func New(cfg Config) (log.Logger, io.Closer) {
	var (
		wr     io.Writer
		closer io.Closer = nopCloser{}
	)

	switch {
	case cfg.File != "":
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    64, // megabytes
			MaxBackups: 10,
			MaxAge:     7, // days
			Compress:   true,
		}
		wr, closer = lj, lj
	case cfg.Output != nil:
		wr = cfg.Output
	default:
		wr = os.Stdout
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(wr))
	logger = log.With(logger,
		"time", log.DefaultTimestampUTC,
		"app", "mockhost",
		"caller", log.Valuer(func() interface{} {
			return pkgCaller{stack.Caller(5)}
		}),
	)

	return level.NewFilter(logger, Allow(cfg.Level)), closer
}

// Allow maps a level name to a go-kit level filter.
func Allow(name string) level.Option {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return level.AllowDebug()
	case "warn", "warning":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	case "none":
		return level.AllowNone()
	default:
		return level.AllowInfo()
	}
}

// pkgCaller prints the caller with its package path, trimmed to the module.
type pkgCaller struct {
	c stack.Call
}

func (pc pkgCaller) String() string {
	caller := fmt.Sprintf("%+v", pc.c)
	return strings.TrimPrefix(caller, "github.com/imzeyn/mockhost/")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
