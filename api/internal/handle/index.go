package handle

import (
	"embed"
	"html/template"
	"log"
	"net/http"
)

//go:embed web/index.html
var webFS embed.FS

var indexTmpl = template.Must(template.ParseFS(webFS, "web/index.html"))

type indexData struct {
	Model    string
	MaxBytes int64
}

// Index serves the upload page. Anything other than "/" is a 404.
func (h *Handle) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, indexData{Model: h.opt.Model, MaxBytes: h.opt.MaxUploadBytes}); err != nil {
		log.Printf("index: render: %v", err)
	}
}
