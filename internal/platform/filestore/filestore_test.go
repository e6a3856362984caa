package filestore

import (
	"io"
	"strings"
	"testing"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	disk, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("create disk store: %v", err)
	}
	return map[string]Store{
		"disk":   disk,
		"memory": NewMemoryStore(),
	}
}

func TestStore_SaveAndOpen(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			info, err := s.Save("records.csv", strings.NewReader("a,b\n1,2\n"))
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if info.Size != 8 {
				t.Errorf("expected size 8, got %d", info.Size)
			}

			r, err := s.Open("records.csv")
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer r.Close()
			data, _ := io.ReadAll(r)
			if string(data) != "a,b\n1,2\n" {
				t.Errorf("unexpected content: %q", data)
			}
		})
	}
}

func TestStore_OpenMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Open("nope.csv"); err != ErrFileNotFound {
				t.Errorf("expected ErrFileNotFound, got %v", err)
			}
			if s.Exists("nope.csv") {
				t.Error("expected Exists to be false")
			}
		})
	}
}

func TestStore_SanitizesPathTraversal(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Save("../../etc/passwd", strings.NewReader("x")); err != nil {
				t.Fatalf("save: %v", err)
			}
			// Stored under the base name only.
			if !s.Exists("passwd") {
				t.Error("expected file stored under base name")
			}
			info, err := s.Stat("passwd")
			if err != nil {
				t.Fatalf("stat: %v", err)
			}
			if strings.Contains(info.Name, "..") {
				t.Errorf("name not sanitized: %s", info.Name)
			}
		})
	}
}
