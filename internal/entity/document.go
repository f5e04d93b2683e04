package entity

import (
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Document is an input file accepted for processing.
type Document struct {
	Path string
	Kind constants.DocumentKind
}

// NewDocument checks that path exists, then that its extension is supported.
func NewDocument(path string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, common.NotFoundError(path)
	}
	ext := filepath.Ext(path)
	kind := constants.MapExtToKind(ext)
	if kind == "" || info.IsDir() {
		return Document{}, common.UnsupportedFormatError(ext)
	}
	return Document{Path: path, Kind: kind}, nil
}

// Stem is the file name without directory or extension.
func (d Document) Stem() string {
	base := filepath.Base(d.Path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// ExtractedText is the output of text acquisition for one document.
type ExtractedText struct {
	Text     string
	Length   int // characters, not bytes
	Method   constants.ExtractionMethod
	Pages    int
	Language string
	Duration time.Duration
}

func NewExtractedText(text string, method constants.ExtractionMethod) ExtractedText {
	return ExtractedText{
		Text:   text,
		Length: utf8.RuneCountInString(text),
		Method: method,
	}
}
