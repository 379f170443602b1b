package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingWriter_CreateAndWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.log")

	rw, err := NewRotatingWriter(path, 1, 3, 30)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	line := `{"level":"INFO","msg":"request","status":200}` + "\n"
	n, err := rw.Write([]byte(line))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(line) {
		t.Fatalf("Write returned %d, want %d", n, len(line))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != line {
		t.Fatalf("file content = %q", string(data))
	}
}

func TestRotatingWriter_RotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.log")

	rw, err := NewRotatingWriter(path, 0, 3, 30)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	rw.maxBytes = 100
	defer rw.Close()

	data := strings.Repeat("x", 60)
	rw.Write([]byte(data))
	rw.Write([]byte(data)) // second write crosses the limit

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	rotated := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "gateway-") && strings.HasSuffix(e.Name(), ".log") {
			rotated++
		}
	}
	if rotated < 1 {
		t.Errorf("expected at least 1 rotated file, got %d", rotated)
	}
}

func TestRotatingWriter_MaxBackupsEnforced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.log")

	rw, err := NewRotatingWriter(path, 0, 2, 30)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	rw.maxBytes = 50
	defer rw.Close()

	data := strings.Repeat("y", 40)
	for i := 0; i < 5; i++ {
		rw.Write([]byte(data))
	}

	// Cleanup normally runs async after rotate; call it directly so the
	// assertion is deterministic.
	rw.cleanup()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	rotated := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "gateway-") && strings.HasSuffix(e.Name(), ".log") {
			rotated++
		}
	}
	if rotated > 2 {
		t.Errorf("expected at most 2 rotated files, got %d", rotated)
	}
}

func TestRotatingWriter_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "var", "log", "gateway.log")

	rw, err := NewRotatingWriter(path, 1, 3, 30)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	rw.Write([]byte("boot\n"))

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}
