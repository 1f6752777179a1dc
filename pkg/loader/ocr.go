package loader

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// TesseractOCR renders a single page with poppler's pdftoppm and reads it
// back with tesseract. Both tools must be on PATH; when they are not, every
// call fails with ErrOCRUnavailable and the caller skips the page.
type TesseractOCR struct {
	DPI int
}

func (t TesseractOCR) Page(path string, page int) (string, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return "", ErrOCRUnavailable
	}
	if _, err := exec.LookPath("tesseract"); err != nil {
		return "", ErrOCRUnavailable
	}

	dpi := t.DPI
	if dpi == 0 {
		dpi = 300
	}

	dir, err := os.MkdirTemp("", "ragchat-ocr-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	n := strconv.Itoa(page)
	if out, err := exec.Command("pdftoppm",
		"-f", n, "-l", n, "-r", strconv.Itoa(dpi), "-png", path, prefix).CombinedOutput(); err != nil {
		return "", fmt.Errorf("render page %d: %v: %s", page, err, out)
	}

	// pdftoppm pads the page number in the output name depending on the
	// page count, so glob instead of guessing.
	images, _ := filepath.Glob(prefix + "-*.png")
	if len(images) == 0 {
		return "", fmt.Errorf("no image rendered for page %d", page)
	}

	out, err := exec.Command("tesseract", images[0], "stdout").Output()
	if err != nil {
		return "", fmt.Errorf("ocr page %d: %w", page, err)
	}
	return string(out), nil
}
