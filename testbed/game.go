package testbed

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/reactor/engine"
	"github.com/spaghettifunk/reactor/engine/core"
	"github.com/spaghettifunk/reactor/engine/renderer"
	"github.com/spaghettifunk/reactor/engine/renderer/components"
	"github.com/spaghettifunk/reactor/engine/renderer/metadata"
)

const (
	orbitSpeed float32 = 60  // degrees per second
	moveSpeed  float32 = 4
	spinSpeed  float32 = 0.5 // radians per second
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	WorldCamera *components.Camera
	Sun         *components.DirectionalLight

	plane *metadata.Geometry
	cube  *metadata.Geometry

	cubeAngle float32
	held      map[core.KeyCode]bool
	logger    core.Logger
}

func NewTestGame(logger core.Logger) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{
				WorldCamera: components.NewCamera(16.0 / 9.0),
				Sun:         components.NewDirectionalLight(),
				held:        make(map[core.KeyCode]bool),
				logger:      logger,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnOnKey = tg.OnKey
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(r *renderer.Renderer) error {
	state := g.state()
	state.logger.Debugf("TestGame Initialize fn....")

	vertices, indices := metadata.GeneratePlane(10, 20)
	plane, err := r.CreateGeometry("ground", vertices, indices)
	if err != nil {
		return err
	}
	state.plane = plane

	vertices, indices = metadata.GenerateUnitCube()
	cube, err := r.CreateGeometry("cube", vertices, indices)
	if err != nil {
		return err
	}
	state.cube = cube

	state.WorldCamera.LookAt(mgl32.Vec3{4, 3, 6}, mgl32.Vec3{0, 0.5, 0}, mgl32.Vec3{0, 1, 0})
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	dt := float32(deltaTime)

	if state.held[core.KEY_A] || state.held[core.KEY_LEFT] {
		state.WorldCamera.Rotate(orbitSpeed*dt, 0, 0)
	}
	if state.held[core.KEY_D] || state.held[core.KEY_RIGHT] {
		state.WorldCamera.Rotate(-orbitSpeed*dt, 0, 0)
	}
	if state.held[core.KEY_W] || state.held[core.KEY_UP] {
		state.WorldCamera.Move(forward(state.WorldCamera).Mul(moveSpeed * dt))
	}
	if state.held[core.KEY_S] || state.held[core.KEY_DOWN] {
		state.WorldCamera.Move(forward(state.WorldCamera).Mul(-moveSpeed * dt))
	}
	if state.held[core.KEY_Q] {
		state.Sun.Orbit(orbitSpeed * dt)
	}
	if state.held[core.KEY_E] {
		state.Sun.Orbit(-orbitSpeed * dt)
	}

	state.cubeAngle += spinSpeed * dt
	return nil
}

// forward is the camera's view direction flattened onto the ground.
func forward(c *components.Camera) mgl32.Vec3 {
	dir := c.Target().Sub(c.Position())
	dir[1] = 0
	if dir.Len() == 0 {
		return mgl32.Vec3{}
	}
	return dir.Normalize()
}

func (g *TestGame) Render(packet *metadata.RenderPacket, deltaTime float64) error {
	state := g.state()

	packet.View = state.WorldCamera.View()
	packet.Projection = state.WorldCamera.Projection()
	packet.Light = state.Sun.Data()

	packet.Geometries = append(packet.Geometries,
		metadata.GeometryRenderData{
			Model:    mgl32.Ident4(),
			Geometry: state.plane,
		},
		metadata.GeometryRenderData{
			Model:    mgl32.Translate3D(0, 0.5, 0).Mul4(mgl32.HomogRotate3DY(state.cubeAngle)),
			Geometry: state.cube,
		},
	)
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	g.state().WorldCamera.SetAspect(width, height)
	return nil
}

func (g *TestGame) OnKey(event core.KeyEvent) {
	state := g.state()
	state.held[event.Key] = event.Pressed
	if event.Pressed && event.Key == core.KEY_R {
		state.WorldCamera.Reset(state.WorldCamera.Aspect())
		state.WorldCamera.LookAt(mgl32.Vec3{4, 3, 6}, mgl32.Vec3{0, 0.5, 0}, mgl32.Vec3{0, 1, 0})
	}
}

func (g *TestGame) Shutdown(r *renderer.Renderer) error {
	state := g.state()
	for _, geom := range []*metadata.Geometry{state.cube, state.plane} {
		if geom == nil {
			continue
		}
		if err := r.DestroyGeometry(geom); err != nil {
			return err
		}
	}
	state.cube, state.plane = nil, nil
	return nil
}
