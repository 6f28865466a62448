package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/library-catalog/pkg/response"
)

const APIPrefix = "/api"

// Module is a feature area that mounts its routes on the /api group.
type Module interface {
	Register(api *gin.RouterGroup)
}

type Registry struct {
	Engine     *gin.Engine
	API        *gin.RouterGroup
	modules    []Module
	registered bool
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group(APIPrefix)}
}

func (r *Registry) Add(mods ...Module) {
	r.modules = append(r.modules, mods...)
}

// RegisterAll mounts the added modules and installs JSON 404/405 fallbacks.
// It returns the routes now served under /api; calling it twice is a no-op.
func (r *Registry) RegisterAll() []gin.RouteInfo {
	if !r.registered {
		r.registered = true
		for _, m := range r.modules {
			m.Register(r.API)
		}
		r.Engine.HandleMethodNotAllowed = true
		r.Engine.NoRoute(func(c *gin.Context) {
			response.Error[any](c, http.StatusNotFound, "route not found", gin.H{"path": c.Request.URL.Path})
		})
		r.Engine.NoMethod(func(c *gin.Context) {
			response.Error[any](c, http.StatusMethodNotAllowed, "method not allowed", gin.H{"method": c.Request.Method})
		})
	}
	var out []gin.RouteInfo
	for _, ri := range r.Engine.Routes() {
		if strings.HasPrefix(ri.Path, APIPrefix+"/") {
			out = append(out, ri)
		}
	}
	return out
}
