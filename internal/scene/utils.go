package scene

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FindLatest ищет самый свежий файл сцены в папке dir.
func FindLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read scenes directory: %w", err)
	}

	var scenes []fs.FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		// файл мог исчезнуть после ReadDir
		info, err := entry.Info()
		if err != nil {
			continue
		}
		scenes = append(scenes, info)
	}

	if len(scenes) == 0 {
		return "", fmt.Errorf("no scene files found in %s", dir)
	}

	newest := slices.MaxFunc(scenes, func(a, b fs.FileInfo) int {
		return a.ModTime().Compare(b.ModTime())
	})
	return filepath.Join(dir, newest.Name()), nil
}
