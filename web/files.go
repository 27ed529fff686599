package web

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// ClientPath is where the built-in JavaScript client is served.
const ClientPath = "/dawscript/dawscript.js"

//go:embed static
var static embed.FS

var bodyTag = regexp.MustCompile(`(?i)<body[^>]*>`)

// fileHandler serves htdocs and the embedded client. HTML pages get the
// client script tag inserted right after their <body> tag.
type fileHandler struct {
	htdocs string
	client http.Handler
}

func newFileHandler(htdocs string) *fileHandler {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return &fileHandler{
		htdocs: htdocs,
		client: http.StripPrefix("/dawscript/", http.FileServer(http.FS(sub))),
	}
}

func (h *fileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := path.Clean("/" + r.URL.Path)
	if strings.HasPrefix(p, "/dawscript/") {
		h.client.ServeHTTP(w, r)
		return
	}
	if h.htdocs == "" {
		http.Error(w, "File Not Found", http.StatusNotFound)
		return
	}

	name := filepath.Join(h.htdocs, filepath.FromSlash(p))
	if fi, err := os.Stat(name); err == nil && fi.IsDir() {
		name = filepath.Join(name, "index.html")
	}
	if _, err := os.Stat(name); err != nil {
		http.Error(w, "File Not Found", http.StatusNotFound)
		return
	}

	if !strings.EqualFold(filepath.Ext(name), ".html") {
		http.ServeFile(w, r, name)
		return
	}
	page, err := os.ReadFile(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(injectClient(page))
}

// injectClient inserts the client script tag after the first <body> tag.
func injectClient(page []byte) []byte {
	loc := bodyTag.FindIndex(page)
	if loc == nil {
		return page
	}
	tag := []byte("\n<script src=\"" + ClientPath + "\"></script>")
	var buf bytes.Buffer
	buf.Grow(len(page) + len(tag))
	buf.Write(page[:loc[1]])
	buf.Write(tag)
	buf.Write(page[loc[1]:])
	return buf.Bytes()
}
