package web

import (
	_ "embed"
	"net/http"

	"github.com/swaggest/swgui/v5emb"
)

//go:embed docs/openapi.yaml
var openAPISpec []byte

const (
	docsPath = "/docs/"
	specPath = "/docs/openapi.yaml"
)

// mountDocs serves the OpenAPI document and a Swagger UI over it.
func (s *Server) mountDocs() {
	s.router.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openAPISpec)
	})
	s.router.Handle(docsPath+"*", v5emb.New("Employee Records API", specPath, docsPath))
	s.router.Handle("/docs", http.RedirectHandler(docsPath, http.StatusMovedPermanently))
}
