package extract

import (
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatText  Format = "text"
	FormatPDF   Format = "pdf"
	FormatWord  Format = "word"
	FormatImage Format = "image"
)

type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeOCR    Outcome = "ok-via-ocr"
	OutcomeFailed Outcome = "failed"
)

// ParseFormat accepts the canonical tags plus the upload-form aliases
// ("txt", "docx").
func ParseFormat(tag string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "text", "txt":
		return FormatText, nil
	case "pdf":
		return FormatPDF, nil
	case "word", "docx":
		return FormatWord, nil
	case "image":
		return FormatImage, nil
	}
	return "", &UnsupportedFormatError{Format: tag}
}

var extFormats = map[string]Format{
	".txt":  FormatText,
	".md":   FormatText,
	".pdf":  FormatPDF,
	".docx": FormatWord,
	".png":  FormatImage,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".tif":  FormatImage,
	".tiff": FormatImage,
	".bmp":  FormatImage,
}

// FormatFromFilename detects the format from the file extension.
func FormatFromFilename(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if f, ok := extFormats[ext]; ok {
		return f, nil
	}
	return "", &UnsupportedFormatError{Format: ext}
}
