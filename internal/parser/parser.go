package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/qbank/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ErrorKind classifies a decode failure for API and CLI callers.
type ErrorKind string

const (
	KindUnsupportedType ErrorKind = "unsupported_type"
	KindTooLarge        ErrorKind = "too_large"
	KindDecodeFailed    ErrorKind = "decode_failed"
)

// DecodeError is returned by Decode when a document cannot be turned into
// raw text.
type DecodeError struct {
	Kind     ErrorKind
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s: %v", e.Filename, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// KindOf reports the decode failure kind of err, or "" if err is not a
// DecodeError.
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Options controls Decode.
type Options struct {
	MaxBytes          int64 // 0 means unlimited
	FallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Decode validates and parses an uploaded document. Every failure is a
// *DecodeError.
func Decode(data []byte, filename string, opts Options) (*doctree.DocTree, error) {
	if opts.MaxBytes > 0 && int64(len(data)) > opts.MaxBytes {
		return nil, &DecodeError{
			Kind:     KindTooLarge,
			Filename: filename,
			Err:      fmt.Errorf("file is %d bytes, limit is %d", len(data), opts.MaxBytes),
		}
	}

	p, err := ForFile(filename)
	if err != nil {
		return nil, &DecodeError{Kind: KindUnsupportedType, Filename: filename, Err: err}
	}
	if pp, ok := p.(*PDFParser); ok {
		pp.FallbackPdftotext = opts.FallbackPdftotext
	}

	tree, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, &DecodeError{Kind: KindDecodeFailed, Filename: filename, Err: err}
	}
	return tree, nil
}

// DecodeText is Decode followed by DocTree.Text.
func DecodeText(data []byte, filename string, opts Options) (string, error) {
	tree, err := Decode(data, filename, opts)
	if err != nil {
		return "", err
	}
	return tree.Text(), nil
}
