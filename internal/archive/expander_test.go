package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

// buildZip writes a zip with the given member names into a temp dir and
// returns its path.
func buildZip(t *testing.T, members map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "drop.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create zip: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range members {
		member, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to add member %s: %v", name, err)
		}
		if _, err := member.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write member %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to finish zip: %v", err)
	}
	return path
}

func TestExtract_FiltersMetadataArtifacts(t *testing.T) {
	zipPath := buildZip(t, map[string]string{
		"report.pdf":            "pdf bytes",
		"notes/summary.txt":     "summary",
		"._report.pdf":          "resource fork",
		"__MACOSX/report.pdf":   "finder junk",
		"notes/._summary.txt":   "resource fork",
		".DS_Store":             "finder junk",
		"nested/deep/photo.png": "image bytes",
	})

	dir, files, err := Extract(zipPath)
	if dir != "" {
		defer os.RemoveAll(dir)
	}
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("got %d eligible files, want 3: %v", len(files), files)
	}

	bases := make(map[string]bool)
	for _, f := range files {
		bases[filepath.Base(f)] = true
		if _, err := os.Stat(f); err != nil {
			t.Errorf("listed file %s not on disk: %v", f, err)
		}
	}
	for _, want := range []string{"report.pdf", "summary.txt", "photo.png"} {
		if !bases[want] {
			t.Errorf("expected %s in extracted set %v", want, files)
		}
	}
}

func TestExtract_MemberContentPreserved(t *testing.T) {
	zipPath := buildZip(t, map[string]string{"doc.txt": "exact content"})

	dir, files, err := Extract(zipPath)
	if dir != "" {
		defer os.RemoveAll(dir)
	}
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("failed to read member: %v", err)
	}
	if string(data) != "exact content" {
		t.Errorf("member content = %q, want %q", data, "exact content")
	}
}

func TestExtract_FreshDirectoryPerCall(t *testing.T) {
	zipPath := buildZip(t, map[string]string{"a.txt": "a"})

	first, _, err := Extract(zipPath)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	defer os.RemoveAll(first)

	second, _, err := Extract(zipPath)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	defer os.RemoveAll(second)

	if first == second {
		t.Errorf("both calls extracted into %s", first)
	}
}

func TestExtract_RejectsEscapingMembers(t *testing.T) {
	zipPath := buildZip(t, map[string]string{"../escape.txt": "nope"})

	dir, _, err := Extract(zipPath)
	if dir != "" {
		defer os.RemoveAll(dir)
	}
	if err == nil {
		t.Error("expected error for path-traversal member")
	}
}

func TestExtract_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.zip")
	if err := os.WriteFile(path, []byte("not an archive"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Extract(path); err == nil {
		t.Error("expected error for corrupt archive")
	}
}

func TestIgnored(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.pdf", false},
		{"dir/file.txt", false},
		{"._resource", true},
		{"dir/._resource", true},
		{"__MACOSX/file.txt", true},
		{"a/__MACOSX/b.txt", true},
		{".DS_Store", true},
		{".hidden", true},
	}

	for _, tt := range tests {
		if got := Ignored(tt.name); got != tt.want {
			t.Errorf("Ignored(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
