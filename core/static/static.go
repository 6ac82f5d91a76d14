// Package static serves files from a fixed route→file table.
package static

import (
	"io/fs"
	"path"
	"strings"
)

// Provider returns the contents and MIME type of a logical file path.
type Provider interface {
	Lookup(name string) ([]byte, string, bool)
}

// FS reads files from an fs.FS such as os.DirFS or an embed.FS.
type FS struct {
	fsys fs.FS
}

// NewFS wraps fsys.
func NewFS(fsys fs.FS) *FS {
	return &FS{fsys: fsys}
}

// Lookup reads name relative to the root of the file system. Leading slashes
// are ignored; names escaping the root or naming a directory are not found.
func (f *FS) Lookup(name string) ([]byte, string, bool) {
	name = strings.TrimLeft(name, "/")
	if name == "" || !fs.ValidPath(name) {
		return nil, "", false
	}

	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		return nil, "", false
	}
	return data, MIMEType(name), true
}

// Map is an in-memory Provider keyed by file name.
type Map map[string][]byte

func (m Map) Lookup(name string) ([]byte, string, bool) {
	data, ok := m[strings.TrimLeft(name, "/")]
	if !ok {
		return nil, "", false
	}
	return data, MIMEType(name), true
}

var mimeTypes = map[string]string{
	"html":  "text/html",
	"css":   "text/css",
	"js":    "application/javascript",
	"png":   "image/png",
	"jpg":   "image/jpeg",
	"jpeg":  "image/jpeg",
	"gif":   "image/gif",
	"svg":   "image/svg+xml",
	"ico":   "image/x-icon",
	"json":  "application/json",
	"woff":  "font/woff",
	"woff2": "font/woff2",
}

// DefaultMIMEType is used for unknown extensions.
const DefaultMIMEType = "application/octet-stream"

// MIMEType guesses a content type from the file extension, case-insensitively.
func MIMEType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	return DefaultMIMEType
}
