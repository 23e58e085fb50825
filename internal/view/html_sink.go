package view

import (
	"embed"
	"html/template"
	"io"
	"os"
	"path/filepath"
)

//go:embed templates/tree.html
var content embed.FS

var treeTpl = template.Must(template.New("tree.html").ParseFS(content, "templates/tree.html"))

type page struct {
	Tree
	Refresh int
}

// WriteHTML renders t as a standalone HTML document. refresh > 0 adds a meta
// refresh of that many seconds.
func WriteHTML(w io.Writer, t Tree, refresh int) error {
	return treeTpl.Execute(w, page{Tree: t, Refresh: refresh})
}

// HTMLSink rewrites an HTML document on disk for every tree.
type HTMLSink struct {
	path    string
	refresh int
}

// NewHTMLSink creates an HTMLSink writing to path.
func NewHTMLSink(path string, refresh int) *HTMLSink {
	return &HTMLSink{path: path, refresh: refresh}
}

// Render implements Sink. The file is replaced atomically so readers never
// observe a half-written document.
func (s *HTMLSink) Render(t Tree) error {
	dir := filepath.Dir(s.path)
	f, err := os.CreateTemp(dir, ".cpuload-*.html")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := WriteHTML(f, t, s.refresh); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.path)
}
