package fieldmap

import lru "github.com/hashicorp/golang-lru/v2"

// Registry memoizes which Map backs a given name, avoiding repeated
// table construction when the same map is used across many concurrent
// requests. The maps themselves are cheap to build, but qualifiers and
// computed functions close over shared state (e.g. the translation
// cache) that benefits from being constructed once.
type Registry struct {
	cache *lru.Cache[string, Map]
	build map[string]func() Map
}

func NewRegistry(build map[string]func() Map) *Registry {
	cache, err := lru.New[string, Map](32)
	if err != nil {
		// 32 is a constant positive size; lru.New only errors on size<=0.
		panic(err)
	}
	return &Registry{cache: cache, build: build}
}

// Get returns the named map, building and caching it on first use.
func (r *Registry) Get(name string) (Map, bool) {
	if m, ok := r.cache.Get(name); ok {
		return m, true
	}
	builder, ok := r.build[name]
	if !ok {
		return Map{}, false
	}
	m := builder()
	r.cache.Add(name, m)
	return m, true
}
