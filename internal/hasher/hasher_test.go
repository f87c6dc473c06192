package hasher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.bin")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestSHA256File_KnownDigest(t *testing.T) {
	// echo -n "hello world" | sha256sum
	path := writeTemp(t, []byte("hello world"))

	got, err := SHA256File(context.Background(), path)
	if err != nil {
		t.Fatalf("SHA256File() error = %v", err)
	}

	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Errorf("SHA256File() = %s, want %s", got, want)
	}
	if len(got) != 64 {
		t.Errorf("digest length = %d, want 64", len(got))
	}
}

func TestSHA256File_Deterministic(t *testing.T) {
	path := writeTemp(t, []byte("same bytes every time"))

	first, err := SHA256File(context.Background(), path)
	if err != nil {
		t.Fatalf("SHA256File() error = %v", err)
	}
	second, err := SHA256File(context.Background(), path)
	if err != nil {
		t.Fatalf("SHA256File() error = %v", err)
	}

	if first != second {
		t.Errorf("hashing the same bytes twice gave %s and %s", first, second)
	}
}

func TestSHA256File_SingleByteChange(t *testing.T) {
	a, err := SHA256File(context.Background(), writeTemp(t, []byte("content a")))
	if err != nil {
		t.Fatalf("SHA256File() error = %v", err)
	}
	b, err := SHA256File(context.Background(), writeTemp(t, []byte("content b")))
	if err != nil {
		t.Fatalf("SHA256File() error = %v", err)
	}

	if a == b {
		t.Error("digests of different content should differ")
	}
}

func TestSHA256File_Cancelled(t *testing.T) {
	path := writeTemp(t, []byte("anything"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := SHA256File(ctx, path); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestSHA256File_MissingFile(t *testing.T) {
	if _, err := SHA256File(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}
