// Package validation checks the input documents and the output destination
// given on the command line before any document is processed.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits on what is accepted as input.
const (
	// MaxFileSize is the maximum allowed input size (256 MB).
	MaxFileSize = 256 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrNotRegular       = errors.New("not a regular file")
	ErrFileTooLarge     = errors.New("file too large")
	ErrNotDocument      = errors.New("not an XML document")
	ErrMultipleOutputs  = errors.New("output file given for multiple inputs")
	ErrDuplicateOutput  = errors.New("inputs map to the same output")
)

// StdoutPath is the output argument that selects standard output.
const StdoutPath = "-"

// ValidatePath performs path validation without requiring a base directory.
// It checks length limits and invalid characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// ValidateFilename checks that a filename is a single path element.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}

	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}

	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}

	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidFilename)
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}

	return nil
}

// ValidateInput checks that path names a regular, readable file of
// acceptable size whose content looks like XML, possibly compressed.
func ValidateInput(path string) (FileType, error) {
	if err := ValidatePath(path); err != nil {
		return FileTypeUnknown, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return FileTypeUnknown, err
	}
	if !info.Mode().IsRegular() {
		return FileTypeUnknown, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	if info.Size() > MaxFileSize {
		return FileTypeUnknown, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return FileTypeUnknown, err
	}
	defer f.Close()

	return ValidateFileType(f, filepath.Base(path))
}

// OutputMode says where annotated documents are written.
type OutputMode int

const (
	// OutputInPlace overwrites each source document.
	OutputInPlace OutputMode = iota
	// OutputStdout streams every document to standard output.
	OutputStdout
	// OutputDirectory writes DIR/<basename> for each input.
	OutputDirectory
	// OutputFile writes the single input to the given path.
	OutputFile
)

func (m OutputMode) String() string {
	switch m {
	case OutputStdout:
		return "stdout"
	case OutputDirectory:
		return "directory"
	case OutputFile:
		return "file"
	default:
		return "in-place"
	}
}

// ValidateOutput decides how output is written for the given number of
// inputs. An empty output overwrites the sources. An existing directory
// receives one file per input. Any other path is a file and is only
// accepted for a single input.
func ValidateOutput(output string, inputs int) (OutputMode, error) {
	switch output {
	case "":
		return OutputInPlace, nil
	case StdoutPath:
		return OutputStdout, nil
	}

	if err := ValidatePath(output); err != nil {
		return OutputInPlace, err
	}

	info, err := os.Stat(output)
	if err == nil && info.IsDir() {
		return OutputDirectory, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return OutputInPlace, err
	}
	if inputs > 1 {
		return OutputInPlace, fmt.Errorf("%w: %s", ErrMultipleOutputs, output)
	}
	return OutputFile, nil
}

// OutputPath returns the destination of input under mode. It returns the
// empty string for OutputStdout.
func OutputPath(mode OutputMode, output, input string) string {
	switch mode {
	case OutputStdout:
		return ""
	case OutputDirectory:
		return filepath.Join(output, filepath.Base(input))
	case OutputFile:
		return output
	default:
		return input
	}
}

// ValidateDestinations resolves the destination of every input and rejects
// two inputs that would be written to the same place.
func ValidateDestinations(mode OutputMode, output string, inputs []string) ([]string, error) {
	dests := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, input := range inputs {
		dest := OutputPath(mode, output, input)
		dests[i] = dest
		if dest == "" {
			continue
		}
		if mode == OutputDirectory {
			if err := ValidateFilename(filepath.Base(input)); err != nil {
				return nil, err
			}
		}
		key := filepath.Clean(dest)
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateOutput, prev, input)
		}
		seen[key] = input
	}
	return dests, nil
}

// FileType represents a detected input file type.
type FileType string

const (
	FileTypeGzip FileType = "gzip"
	FileTypeXZ   FileType = "xz"
	FileTypeXML  FileType = "xml"

	// Formats that are rejected as input.
	FileTypeZip    FileType = "zip"
	FileTypeTar    FileType = "tar"
	FileTypeSQLite FileType = "sqlite"

	FileTypeUnknown FileType = "unknown"
)

// magicBytes defines magic byte signatures for file type detection.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
	offset   int
}{
	{FileTypeTar, []byte("ustar"), 257},
	{FileTypeGzip, []byte{0x1f, 0x8b}, 0},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}, 0},
	{FileTypeZip, []byte{0x50, 0x4b, 0x03, 0x04}, 0},
	{FileTypeSQLite, []byte("SQLite format 3"), 0},
}

// ValidateFileType reads the header of a document and reports whether it
// can be loaded. Compressed content is accepted whatever the extension;
// uncompressed content must look like XML.
func ValidateFileType(reader io.Reader, filename string) (FileType, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	switch detected := detectFileTypeFromMagic(buf); detected {
	case FileTypeGzip, FileTypeXZ:
		return detected, nil
	case FileTypeUnknown:
	default:
		return detected, fmt.Errorf("%w: %s is %s", ErrNotDocument, filename, detected)
	}

	if !isLikelyText(buf) || !looksLikeXML(buf) {
		return FileTypeUnknown, fmt.Errorf("%w: %s", ErrNotDocument, filename)
	}
	return FileTypeXML, nil
}

// detectFileTypeFromMagic detects file type from magic bytes.
func detectFileTypeFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if sig.offset+len(sig.magic) <= len(buf) {
			if bytes.Equal(buf[sig.offset:sig.offset+len(sig.magic)], sig.magic) {
				return sig.fileType
			}
		}
	}
	return FileTypeUnknown
}

// looksLikeXML reports whether the first non-blank character opens a tag.
func looksLikeXML(buf []byte) bool {
	buf = bytes.TrimPrefix(buf, []byte("\xef\xbb\xbf"))
	buf = bytes.TrimLeft(buf, " \t\r\n")
	return len(buf) > 0 && buf[0] == '<'
}

// isLikelyText checks if the buffer contains likely text content.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}

	// Null bytes are a strong indicator of binary content
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// UTF-8 lead and continuation bytes are neutral
	}

	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
