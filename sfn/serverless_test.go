package sfn

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReadAddressLine(t *testing.T) {
	r, w := os.Pipe()
	defer r.Close()

	go func() {
		w.WriteString("127.0.0.1:4242\n")
		w.Close()
	}()

	addr, err := readAddressLine(bufio.NewReader(r), time.Second)
	if err != nil {
		t.Fatalf("readAddressLine: %v", err)
	}
	if addr != "127.0.0.1:4242" {
		t.Fatalf("got %q, want %q", addr, "127.0.0.1:4242")
	}
}

func TestReadAddressLineEmptyLineIsAnError(t *testing.T) {
	r, w := os.Pipe()
	defer r.Close()

	go func() {
		w.WriteString("\n")
		w.Close()
	}()

	if _, err := readAddressLine(bufio.NewReader(r), time.Second); err == nil {
		t.Fatal("expected error for an empty address line")
	}
}

func TestReadAddressLineTimesOut(t *testing.T) {
	r, w := os.Pipe()
	defer r.Close()
	defer w.Close()

	if _, err := readAddressLine(bufio.NewReader(r), 50*time.Millisecond); err == nil {
		t.Fatal("expected a timeout error when nothing is written")
	}
}

func TestPrepareScratchDirUsesDefaultGoModWhenNoneShipped(t *testing.T) {
	serverlessDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(serverlessDir, "app.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write app.go: %v", err)
	}

	scratch := t.TempDir()
	if err := placeHarnessFiles(scratch, serverlessDir); err != nil {
		t.Fatalf("placeHarnessFiles: %v", err)
	}

	mainSrc, err := os.ReadFile(filepath.Join(scratch, "main.go"))
	if err != nil {
		t.Fatalf("read main.go: %v", err)
	}
	if !strings.Contains(string(mainSrc), "func main()") {
		t.Fatal("written main.go does not look like the harness template")
	}

	modSrc, err := os.ReadFile(filepath.Join(scratch, "go.mod"))
	if err != nil {
		t.Fatalf("read go.mod: %v", err)
	}
	if !strings.Contains(string(modSrc), "module yomo-serverless") {
		t.Fatalf("go.mod was not the default template: %s", modSrc)
	}

	if _, err := os.Stat(filepath.Join(scratch, "app.go")); err != nil {
		t.Fatalf("app.go was not copied into the scratch dir: %v", err)
	}
}

func TestPrepareScratchDirCopiesShippedGoMod(t *testing.T) {
	serverlessDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(serverlessDir, "app.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write app.go: %v", err)
	}
	customMod := "module my-custom-handler\n\ngo 1.24\n"
	if err := os.WriteFile(filepath.Join(serverlessDir, "go.mod"), []byte(customMod), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}

	scratch := t.TempDir()
	if err := placeHarnessFiles(scratch, serverlessDir); err != nil {
		t.Fatalf("placeHarnessFiles: %v", err)
	}

	modSrc, err := os.ReadFile(filepath.Join(scratch, "go.mod"))
	if err != nil {
		t.Fatalf("read go.mod: %v", err)
	}
	if !strings.Contains(string(modSrc), "my-custom-handler") {
		t.Fatalf("go.mod was not copied from the serverless dir: %s", modSrc)
	}
}
