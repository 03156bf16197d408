package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileWriterWritesAndCreatesDirs(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "call-1.wav")
	w := New(Config{})

	if err := w.Write(context.Background(), "file://"+target, []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("file contents = %q, want %q", got, "hello")
	}
}

func TestUnsupportedSchemeRejected(t *testing.T) {
	w := New(Config{})
	if err := w.Write(context.Background(), "ftp://example.com/x.wav", []byte("x")); err == nil {
		t.Fatal("Write with unsupported scheme should fail")
	}
}

func TestParseS3URI(t *testing.T) {
	loc, err := parseS3URI("s3://sentiric/recordings/call-1.wav")
	if err != nil {
		t.Fatalf("parseS3URI: %v", err)
	}
	if loc.bucket != "sentiric" || loc.key != "recordings/call-1.wav" {
		t.Fatalf("parseS3URI = %+v", loc)
	}

	if _, err := parseS3URI("s3://missing-key"); err == nil {
		t.Fatal("parseS3URI with no key should fail")
	}
}
