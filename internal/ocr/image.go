package ocr

import (
	"context"
	"strconv"
)

type tesseractRecognizer struct {
	runner      Runner
	bin         string
	psm         int
	oem         int
	tessdataDir string
}

func (t *tesseractRecognizer) args(path, lang string) []string {
	args := []string{path, "stdout", "-l", lang}
	if t.psm > 0 {
		args = append(args, "--psm", strconv.Itoa(t.psm))
	}
	if t.oem > 0 {
		args = append(args, "--oem", strconv.Itoa(t.oem))
	}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	return args
}

// Recognize runs tesseract <file> stdout -l <lang>.
func (t *tesseractRecognizer) Recognize(ctx context.Context, path, lang string) (string, error) {
	out, errb, err := t.runner.Run(ctx, t.bin, t.args(path, lang)...)
	if err != nil {
		return "", commandError("tesseract", err, errb)
	}
	// minor cleanup of obvious line noise
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
