// Package archive unpacks zip containers dropped into the intake
// directory.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extract unpacks the zip at zipPath into a fresh uniquely named
// temporary directory and returns the directory together with the
// eligible member files, recursively enumerated. Platform metadata
// artifacts (dotfiles, "._"-prefixed resource forks, anything under
// "__MACOSX") are filtered out.
//
// The caller owns the returned directory and must remove it when done,
// success or failure.
func Extract(zipPath string) (dir string, files []string, err error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer reader.Close()

	dir, err = os.MkdirTemp("", "vault-archive-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	for _, member := range reader.File {
		if member.FileInfo().IsDir() {
			continue
		}
		if Ignored(member.Name) {
			continue
		}

		dest, err := secureJoin(dir, member.Name)
		if err != nil {
			return dir, nil, err
		}
		if err := extractMember(member, dest); err != nil {
			return dir, nil, err
		}
		files = append(files, dest)
	}

	return dir, files, nil
}

// Ignored reports whether a zip member name is a platform metadata
// artifact rather than real content.
func Ignored(name string) bool {
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == "__MACOSX" {
			return true
		}
		if strings.HasPrefix(part, "._") {
			return true
		}
	}
	return strings.HasPrefix(filepath.Base(name), ".")
}

// secureJoin resolves a member name under dir, rejecting entries that
// would escape it.
func secureJoin(dir, name string) (string, error) {
	dest := filepath.Join(dir, filepath.FromSlash(name))
	if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive member %q escapes extraction directory", name)
	}
	return dest, nil
}

func extractMember(member *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create member directory: %w", err)
	}

	src, err := member.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive member %s: %w", member.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create member file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to extract archive member %s: %w", member.Name, err)
	}
	return nil
}
