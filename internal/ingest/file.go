package ingest

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/edsrzf/mmap-go"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

const fallbackCharset = "windows-1252"

// ReadFile returns the contents of path. Regular files are memory mapped
// and copied out so the mapping can be released immediately.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if !info.Mode().IsRegular() {
		return io.ReadAll(f)
	}
	if info.Size() == 0 {
		return []byte{}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	defer m.Unmap()

	data := make([]byte, len(m))
	copy(data, m)
	return data, nil
}

// LoadFile reads path and converts it to UTF-8
func LoadFile(path string) ([]byte, string, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return ToUTF8(data)
}

// ToUTF8 decodes data from its detected charset. Valid UTF-8 is returned
// as is. Text whose charset cannot be identified is read as windows-1252.
func ToUTF8(data []byte) ([]byte, string, error) {
	if utf8.Valid(data) {
		return data, "utf-8", nil
	}

	name := DetectCharset(data)
	enc, err := htmlindex.Get(name)
	if err != nil {
		name = fallbackCharset
		if enc, err = htmlindex.Get(name); err != nil {
			return nil, "", err
		}
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, name, fmt.Errorf("decode %s: %w", name, err)
	}
	return out, name, nil
}

// DetectCharset guesses the charset of data, lower-cased
func DetectCharset(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil || result.Charset == "" {
		return fallbackCharset
	}
	return strings.ToLower(result.Charset)
}
