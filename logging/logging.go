// Package logging wires the standard library's log package to an optional
// rotating file sink, following the GlobalLogConfig pattern from
// salmon_config.go: an empty filename keeps output on stdout, a non-empty
// one redirects it through gopkg.in/natefinch/lumberjack.v2.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yomorun/yomo/config"
)

// Setup configures the standard logger's output according to cfg. It
// returns the writer in use, mainly so callers with their own loggers (e.g.
// a subprocess's piped stdout) can share the same sink.
func Setup(cfg *config.LogConfig) io.Writer {
	if cfg == nil || cfg.Filename == "" {
		log.SetOutput(os.Stdout)
		return os.Stdout
	}

	w := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	log.SetOutput(w)
	return w
}
