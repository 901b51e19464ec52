package adapter

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	m "evogen.dev/pkg/evogen/internal/model"
)

func TestLocalSourceFSAdapter_Walk(t *testing.T) {
	t.Run("non recursive skips nested files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "triangle.yaml"), "class: Triangle\n")

		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		writeTestFile(t, filepath.Join(nestedDir, "stack.yaml"), "class: Stack\n")

		var visited []string
		err := adapter.Walk(m.Path(root), false, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}

		for _, forbidden := range []string{nestedDir, filepath.Join(nestedDir, "stack.yaml")} {
			if containsPath(visited, forbidden) {
				t.Fatalf("Walk() unexpectedly visited %s when recursive is false", forbidden)
			}
		}

		if !containsPath(visited, filepath.Join(root, "triangle.yaml")) {
			t.Fatalf("Walk() did not visit top-level file")
		}
	})

	t.Run("recursive visits nested files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "triangle.yaml"), "class: Triangle\n")

		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		child := filepath.Join(nestedDir, "stack.yaml")
		writeTestFile(t, child, "class: Stack\n")

		var visited []string
		err := adapter.Walk(m.Path(root), true, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}

		if !containsPath(visited, child) {
			t.Fatalf("Walk() did not visit nested file when recursive")
		}
	})
}

func TestLocalSourceFSAdapter_FindFiles(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "b.yaml"), "class: B\n")
	writeTestFile(t, filepath.Join(root, "a.YML"), "class: A\n")
	writeTestFile(t, filepath.Join(root, "notes.txt"), "ignored\n")

	nestedDir := filepath.Join(root, "nested")
	mustMkdir(t, nestedDir)
	writeTestFile(t, filepath.Join(nestedDir, "c.yaml"), "class: C\n")

	got, err := adapter.FindFiles(m.Path(root), false, ".yaml", ".yml")
	if err != nil {
		t.Fatalf("FindFiles() error = %v", err)
	}

	want := []m.Path{m.Path(filepath.Join(root, "a.YML")), m.Path(filepath.Join(root, "b.yaml"))}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("FindFiles() = %v, want %v", got, want)
	}

	got, err = adapter.FindFiles(m.Path(root), true, ".yaml", ".yml")
	if err != nil {
		t.Fatalf("FindFiles() error = %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("FindFiles() recursive found %d files, want 3", len(got))
	}

	single := m.Path(filepath.Join(root, "notes.txt"))

	got, err = adapter.FindFiles(single, false, ".yaml")
	if err != nil {
		t.Fatalf("FindFiles() error = %v", err)
	}

	if len(got) != 1 || got[0] != single {
		t.Fatalf("FindFiles() on a file = %v, want [%s]", got, single)
	}

	if _, err := adapter.FindFiles(m.Path(filepath.Join(root, "missing")), false, ".yaml"); err == nil {
		t.Fatalf("FindFiles() expected error for missing root")
	}
}

func TestLocalSourceFSAdapter_ReadFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "triangle.yaml")
	content := "class: Triangle\n" + "methods: []\n"
	writeTestFile(t, path, content)

	got, err := adapter.ReadFile(m.Path(path))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if string(got) != content {
		t.Fatalf("ReadFile() = %q, want %q", string(got), content)
	}
}

func TestLocalSourceFSAdapter_HashFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "triangle.yaml")
	content := []byte("class: Triangle\nmethods: []\n")
	writeTestBytes(t, path, content)

	expected := fmt.Sprintf("%x", sha256.Sum256(content))

	hash, err := adapter.HashFile(m.Path(path))
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}

	if hash != expected {
		t.Fatalf("HashFile() = %s, want %s", hash, expected)
	}
}

func TestLocalSourceFSAdapter_FileInfo(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "triangle.yaml")
	writeTestFile(t, path, "class: Triangle\n")

	info, err := adapter.FileInfo(m.Path(path))
	if err != nil {
		t.Fatalf("FileInfo() error = %v", err)
	}

	if info.IsDir() {
		t.Fatalf("FileInfo() reported file as directory")
	}

	dirInfo, err := adapter.FileInfo(m.Path(root))
	if err != nil {
		t.Fatalf("FileInfo() error = %v", err)
	}

	if !dirInfo.IsDir() {
		t.Fatalf("FileInfo() reported directory as file")
	}
}

func TestLocalSourceFSAdapter_WriteFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "reports", "run", "report.json")

	if err := adapter.WriteFile(m.Path(path), []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("WriteFile() did not create nested file: %v", err)
	}

	if string(got) != "{}" {
		t.Fatalf("WriteFile() wrote %q, want %q", got, "{}")
	}
}

func TestLocalSourceFSAdapter_PathHelpers(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	base := m.Path("/tmp/project")
	target := m.Path("/tmp/project/targets/triangle.yaml")

	rel, err := adapter.RelPath(base, target)
	if err != nil {
		t.Fatalf("RelPath() error = %v", err)
	}

	if string(rel) != filepath.Join("targets", "triangle.yaml") {
		t.Fatalf("RelPath() = %s, want %s", rel, filepath.Join("targets", "triangle.yaml"))
	}

	joined := adapter.JoinPath("/tmp", "project", "targets", "triangle.yaml")
	if string(joined) != filepath.Join("/tmp", "project", "targets", "triangle.yaml") {
		t.Fatalf("JoinPath() = %s, want %s", joined, filepath.Join("/tmp", "project", "targets", "triangle.yaml"))
	}
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	writeTestBytes(t, path, []byte(contents))
}

func writeTestBytes(t *testing.T, path string, contents []byte) {
	t.Helper()
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("failed to create dir %s: %v", path, err)
	}
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}

	return false
}
