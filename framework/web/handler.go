// Package web is an HTTP collaborator over the container facade: it exposes
// the registry and context state for inspection and resolves ready beans
// for request handlers. It consumes only the public retrieval API — no
// resolution or weaving logic lives here.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-spring/framework/container"
)

// NewHandler mounts the inspection endpoints over ctx:
//
//	GET /health        → {"data": {"status": "...", ...}}
//	GET /beans         → {"data": [{name, scope, lazy, type}, ...]}
//	GET /beans/{name}  → one definition, 404 when absent
func NewHandler(ctx *container.ApplicationContext) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		res := NewResponse(w)
		status := "starting"
		switch {
		case ctx.Closed():
			status = "closed"
		case ctx.Refreshed():
			status = "up"
		}
		res.Success(envelope{
			"status":   status,
			"beans":    len(ctx.BeanNames()),
			"profiles": ctx.Environment().ActiveProfiles(),
		})
	})

	r.Get("/beans", func(w http.ResponseWriter, req *http.Request) {
		res := NewResponse(w)
		names := ctx.BeanNames()
		beans := make([]envelope, 0, len(names))
		for _, name := range names {
			def, err := ctx.Definition(name)
			if err != nil {
				continue
			}
			beans = append(beans, describe(def))
		}
		res.Success(beans)
	})

	r.Get("/beans/{name}", func(w http.ResponseWriter, req *http.Request) {
		res := NewResponse(w)
		def, err := ctx.Definition(chi.URLParam(req, "name"))
		if err != nil {
			res.Error(http.StatusNotFound, err.Error())
			return
		}
		res.Success(describe(def))
	})

	return r
}

func describe(def *container.Definition) envelope {
	return envelope{
		"name":  def.Name(),
		"scope": string(def.Scope()),
		"lazy":  def.IsLazy(),
		"type":  def.Type().String(),
	}
}
