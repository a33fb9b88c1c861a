// Package web embeds the static chat widget (dist/) and serves it under a
// path prefix.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

// WidgetPrefix is the mount point of the widget.
const WidgetPrefix = "/widget/"

//go:embed all:dist
var distFS embed.FS

// WidgetHandler returns an http.Handler that serves the embedded widget.
// Paths that don't match a file fall back to index.html.
func WidgetHandler() http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	serve := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		if f, err := subFS.Open(path); err == nil {
			if closeErr := f.Close(); closeErr != nil {
				slog.Debug("web: failed to close embedded file", "path", path, "error", closeErr)
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
	return http.StripPrefix(strings.TrimSuffix(WidgetPrefix, "/"), serve)
}
