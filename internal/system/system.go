// Package system содержит вспомогательные функции уровня процесса: поиск фона,
// общий пул буферов и отчет о запуске.
package system

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ImageExtensions перечисляет форматы фона, которые умеет загрузчик.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp", ".pdf"}

// FindLatestImage разбирает аргумент фона: файл возвращается как есть,
// для папки ищется самое свежее изображение в ней.
func FindLatestImage(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return path, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}

	var images []fs.FileInfo
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		if info, err := e.Info(); err == nil {
			images = append(images, info)
		}
	}
	if len(images) == 0 {
		return "", fmt.Errorf("в папке %s не найдено изображений", path)
	}

	newest := slices.MaxFunc(images, func(a, b fs.FileInfo) int {
		return a.ModTime().Compare(b.ModTime())
	})
	return filepath.Join(path, newest.Name()), nil
}

// IsImage проверяет, что расширение name есть в ImageExtensions.
func IsImage(name string) bool {
	return slices.Contains(ImageExtensions, strings.ToLower(filepath.Ext(name)))
}
