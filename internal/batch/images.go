package batch

import (
	"bufio"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/image/bmp"
)

// imageExtensions is matched case-sensitively against file extensions.
var imageExtensions = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".bmp":  "bmp",
}

// ListImages returns the qualifying image files directly inside dir, sorted by name.
// Symlinks to regular files are included. Subdirectories are not descended into.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if _, ok := imageExtensions[filepath.Ext(e.Name())]; !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if isRegularFile(path, e) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// isRegularFile reports whether e is a regular file, following symlinks.
// Dangling links are not.
func isRegularFile(path string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DecodeFile reads an image and reports the format it should be written back in.
func DecodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	if want, ok := imageExtensions[filepath.Ext(path)]; ok {
		format = want
	}
	return img, format, nil
}

// EncodeFile writes img to path in the given format.
func EncodeFile(path string, img image.Image, format string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	switch format {
	case "jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "bmp":
		err = bmp.Encode(w, img)
	default:
		err = png.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return w.Flush()
}
