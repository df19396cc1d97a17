package server

import (
	"cmp"
	"context"
	"slices"

	"github.com/kbukum/demandflow/component"
)

const componentName = "status-server"

var _ component.Component = (*ServerComponent)(nil)
var _ component.Describable = (*ServerComponent)(nil)
var _ component.RouteProvider = (*ServerComponent)(nil)

// ServerComponent registers the status server with the component registry
// and lists its routes in the startup summary.
type ServerComponent struct {
	server *Server
}

func NewComponent(s *Server) *ServerComponent {
	return &ServerComponent{server: s}
}

func (sc *ServerComponent) Server() *Server { return sc.server }

func (sc *ServerComponent) Name() string { return componentName }

// Start refuses an invalid config before binding.
func (sc *ServerComponent) Start(ctx context.Context) error {
	if err := sc.server.config.Validate(); err != nil {
		return err
	}
	return sc.server.Start(ctx)
}

func (sc *ServerComponent) Stop(ctx context.Context) error {
	return sc.server.Stop(ctx)
}

// Health reports whether the listener is bound.
func (sc *ServerComponent) Health(context.Context) component.Health {
	h := component.Health{Name: componentName, Status: component.StatusHealthy}
	if !sc.server.Running() {
		h.Status, h.Message = component.StatusUnhealthy, "not listening"
	}
	return h
}

func (sc *ServerComponent) Describe() component.Description {
	return component.Description{
		Name:    "Status Server",
		Type:    "server",
		Details: sc.server.Addr(),
		Port:    sc.server.config.Port,
	}
}

// Routes lists the mounted routes for the startup summary, ordered by path
// and then by method.
func (sc *ServerComponent) Routes() []component.Route {
	routes := make([]component.Route, 0, 4)
	for _, r := range sc.server.engine.Routes() {
		routes = append(routes, component.Route{Method: r.Method, Path: r.Path, Handler: formatHandlerName(r.Handler)})
	}
	slices.SortFunc(routes, func(a, b component.Route) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(methodOrder(a.Method), methodOrder(b.Method)))
	})
	return routes
}
