package server

import (
	"sort"
	"strings"
)

// systemPaths are listed after the API routes.
var systemPaths = map[string]bool{
	"/health": true,
	"/info":   true,
}

// Route describes a registered route.
type Route struct {
	Method  string
	Path    string
	Handler string
	System  bool
}

// Routes returns the registered routes, API routes first, each group
// sorted by path and method.
func (s *Server) Routes() []Route {
	infos := s.engine.Routes()
	routes := make([]Route, 0, len(infos))
	for _, r := range infos {
		routes = append(routes, Route{
			Method:  r.Method,
			Path:    r.Path,
			Handler: handlerName(r.Handler),
			System:  systemPaths[r.Path],
		})
	}
	sort.Slice(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		if a.System != b.System {
			return !a.System
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return methodOrder(a.Method) < methodOrder(b.Method)
	})
	return routes
}

// handlerName shortens Gin's handler names:
//
//	github.com/kbukum/flowtorch/server.(*handlers).transpile-fm -> handlers.transpile
//	github.com/kbukum/flowtorch/server/endpoint.Health.func1     -> endpoint.Health
func handlerName(full string) string {
	name := strings.TrimSuffix(full, "-fm")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)

	parts := strings.Split(name, ".")
	for len(parts) > 1 && strings.HasPrefix(parts[len(parts)-1], "func") {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 2 {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

func methodOrder(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	default:
		return 2
	}
}
