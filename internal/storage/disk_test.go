package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "space.snap")
	writeFile(t, snapshot, 5)

	models := filepath.Join(dir, "models")
	if err := os.Mkdir(models, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(models, "a.bin"), 2)
	writeFile(t, filepath.Join(models, "b.txt"), 1)

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{snapshot}, 5},
		{"directory", []string{models}, 3},
		{"file and directory", []string{snapshot, models}, 8},
		{"missing path skipped", []string{snapshot, filepath.Join(dir, "absent"), models}, 8},
		{"empty path skipped", []string{"", snapshot}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}

func TestDiskUsageBytes_Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.db")
	writeFile(t, path, 10)
	writeFile(t, path+"-wal", 4)

	got, err := DiskUsageBytes(DatabaseFiles(path)...)
	if err != nil {
		t.Fatal(err)
	}
	if got != 14 {
		t.Errorf("got %d bytes, want 14", got)
	}
}
