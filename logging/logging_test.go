package logging

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/yomorun/yomo/config"
)

func TestSetupNilConfigUsesStdout(t *testing.T) {
	w := Setup(nil)
	if w != os.Stdout {
		t.Fatalf("got writer %v, want os.Stdout", w)
	}
}

func TestSetupEmptyFilenameUsesStdout(t *testing.T) {
	w := Setup(&config.LogConfig{})
	if w != os.Stdout {
		t.Fatalf("got writer %v, want os.Stdout", w)
	}
}

func TestSetupWithFilenameWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "yomo.log")

	w := Setup(&config.LogConfig{Filename: path, MaxSize: 1})
	log.Println("hello from test")
	if closer, ok := w.(interface{ Close() error }); ok {
		closer.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty after a log.Println call")
	}

	// Restore stdout logging so later tests in other packages aren't
	// surprised by a redirected global logger.
	Setup(nil)
}
