package mlapi

// Group is a collection of routes under a shared prefix with shared middleware and tags.
type Group struct {
	router     *Router
	prefix     string
	middleware []Middleware
	tags       []string
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithGroupTags adds default tags to all routes registered on the group.
func WithGroupTags(tags ...string) GroupOption {
	return func(g *Group) {
		g.tags = append(g.tags, tags...)
	}
}

// WithGroupMiddleware adds middleware to the group.
func WithGroupMiddleware(mw ...Middleware) GroupOption {
	return func(g *Group) {
		g.middleware = append(g.middleware, mw...)
	}
}

// Group creates a new route group with the given prefix and options.
func (r *Router) Group(prefix string, opts ...GroupOption) *Group {
	g := &Group{
		router: r,
		prefix: prefix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Group creates a nested group whose prefix, tags and middleware extend
// this group's.
func (g *Group) Group(prefix string, opts ...GroupOption) *Group {
	child := &Group{
		router:     g.router,
		prefix:     g.prefix + "/" + prefix,
		middleware: append([]Middleware(nil), g.middleware...),
		tags:       append([]string(nil), g.tags...),
	}
	for _, opt := range opts {
		opt(child)
	}
	return child
}

// addRoute implements Registrar for Group.
func (g *Group) addRoute(ri routeInfo) {
	ri.pattern = normalizePath(g.prefix + "/" + ri.pattern)
	ri.tags = append(append([]string(nil), g.tags...), ri.tags...)
	g.router.addRoute(ri)
}

func (g *Group) getValidator() Validator { return g.router.validator }

func (g *Group) getErrorHandler() ErrorHandler { return g.router.errorHandler }

func (g *Group) routeMiddleware() []Middleware { return g.middleware }
