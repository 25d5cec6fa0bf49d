package renderer

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spaghettifunk/reactor/engine/core"
	"github.com/spaghettifunk/reactor/engine/renderer/metadata"
	"github.com/spaghettifunk/reactor/engine/renderer/vulkan"
)

// Renderer is the front-end the engine talks to. It keeps track of the
// geometries it created so they can be released on shutdown.
type Renderer struct {
	backend    RendererBackend
	logger     core.Logger
	geometries map[string]*metadata.Geometry
	frames     uint64
}

func New(backend RendererBackend, logger core.Logger) *Renderer {
	return &Renderer{
		backend:    backend,
		logger:     logger,
		geometries: make(map[string]*metadata.Geometry),
	}
}

// NewVulkan builds a renderer on the Vulkan backend.
func NewVulkan(window vulkan.Window, logger core.Logger, loader vulkan.ShaderLoader, overlay vulkan.UIOverlay, cfg vulkan.RendererConfig) *Renderer {
	backend := vulkan.New(window, core.ComponentLogger(logger, Vulkan.String()), loader, overlay, cfg)
	return New(backend, logger)
}

func (r *Renderer) Initialize() error {
	if err := r.backend.Initialize(); err != nil {
		r.logger.Errorf("renderer backend failed to initialize: %s", err)
		return err
	}
	r.logger.Infof("renderer initialized")
	return nil
}

func (r *Renderer) DrawFrame(packet *metadata.RenderPacket) error {
	if err := r.backend.DrawFrame(packet); err != nil {
		r.logger.Errorf("frame %d failed: %s", r.frames, err)
		return err
	}
	r.frames++
	return nil
}

// CreateGeometry validates and uploads a geometry. Names must be unique.
func (r *Renderer) CreateGeometry(name string, vertices []metadata.Vertex, indices []uint32) (*metadata.Geometry, error) {
	if _, ok := r.geometries[name]; ok {
		return nil, fmt.Errorf("geometry %q already exists", name)
	}
	cfg, err := metadata.NewGeometryConfig(name, vertices, indices)
	if err != nil {
		return nil, err
	}
	g, err := r.backend.CreateGeometry(cfg)
	if err != nil {
		return nil, fmt.Errorf("create geometry %q: %w", name, err)
	}
	r.geometries[name] = g
	return g, nil
}

func (r *Renderer) Geometry(name string) (*metadata.Geometry, bool) {
	g, ok := r.geometries[name]
	return g, ok
}

func (r *Renderer) DestroyGeometry(g *metadata.Geometry) error {
	if err := r.backend.DestroyGeometry(g); err != nil {
		return err
	}
	delete(r.geometries, g.Name)
	return nil
}

// ReloadShaders forwards the set of changed shader files once.
func (r *Renderer) ReloadShaders(changed []string) error {
	if len(changed) == 0 {
		return nil
	}
	unique := slices.Clone(changed)
	slices.Sort(unique)
	unique = slices.Compact(unique)
	r.logger.Infof("reloading shaders: %v", unique)
	return r.backend.ReloadShaders(unique)
}

// Shutdown releases every geometry still alive, then the backend.
func (r *Renderer) Shutdown() error {
	names := make([]string, 0, len(r.geometries))
	for name := range r.geometries {
		names = append(names, name)
	}
	slices.Sort(names)

	var errs []error
	for _, name := range names {
		if err := r.DestroyGeometry(r.geometries[name]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.backend.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("renderer shutdown: %w", errors.Join(errs...))
	}
	return nil
}
