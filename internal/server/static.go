package server

import (
	"bytes"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ScriptPath is where the live-reload client is served.
const ScriptPath = "/__livereload.js"

var scriptTag = []byte(`<script src="` + ScriptPath + `"></script>`)

// Static serves files from layered roots: the first root containing the
// requested path wins. HTML pages get the live-reload client injected.
type Static struct {
	Roots []string
}

func (s Static) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	urlPath := path.Clean("/" + r.URL.Path)
	file, info, ok := s.resolve(urlPath)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if info.IsDir() {
		// Directory requests without a trailing slash break relative links.
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		file = filepath.Join(file, "index.html")
		if info, ok = stat(file); !ok || info.IsDir() {
			http.NotFound(w, r)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-cache")
	if isHTML(file) {
		serveHTML(w, r, file)
		return
	}

	f, err := os.Open(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	if mime.TypeByExtension(filepath.Ext(file)) == "" {
		if mt, err := mimetype.DetectFile(file); err == nil {
			w.Header().Set("Content-Type", mt.String())
		}
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// resolve finds urlPath in the first root that has it. A directory only
// counts when it holds an index page, so later roots can still serve it.
func (s Static) resolve(urlPath string) (string, os.FileInfo, bool) {
	for _, root := range s.Roots {
		file := filepath.Join(root, filepath.FromSlash(urlPath))
		info, ok := stat(file)
		if !ok {
			continue
		}
		if info.IsDir() {
			if _, ok := stat(filepath.Join(file, "index.html")); !ok {
				continue
			}
		}
		return file, info, true
	}
	return "", nil, false
}

func stat(file string) (os.FileInfo, bool) {
	info, err := os.Stat(file)
	return info, err == nil
}

func isHTML(file string) bool {
	ext := strings.ToLower(filepath.Ext(file))
	return ext == ".html" || ext == ".htm"
}

func serveHTML(w http.ResponseWriter, r *http.Request, file string) {
	data, err := os.ReadFile(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	body := InjectScript(data)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

// InjectScript inserts the live-reload script before the last </body>, or
// appends it when the page has none.
func InjectScript(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(append([]byte{}, page...), scriptTag...)
	}
	out := make([]byte, 0, len(page)+len(scriptTag))
	out = append(out, page[:idx]...)
	out = append(out, scriptTag...)
	out = append(out, page[idx:]...)
	return out
}
