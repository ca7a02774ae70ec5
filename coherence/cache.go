package coherence

import "github.com/wjymzh/3dgs-webgpu/engine/renderer"

// Cache tracks the validity of the render-cache texture: an Rgba8Unorm viewport-sized
// target the splat pass renders into each frame and the blit pass composites to the
// screen. The texture itself lives in the renderer backend; this type owns only the
// size/validity bookkeeping so the decision logic stays testable off-GPU.
type Cache struct {
	width  int
	height int
	valid  bool
}

// Resize records a viewport size change. Returns true if the size actually changed, in
// which case the cached image is invalidated and the GPU texture must be recreated.
func (c *Cache) Resize(width, height int) bool {
	if width == c.width && height == c.height {
		return false
	}
	c.width = width
	c.height = height
	c.valid = false
	return true
}

// Ensure sizes the backend cache texture to the viewport and reconciles validity: a
// recreated texture (first frame, resize, or format mismatch recovery) always invalidates.
// Returns true if the texture was recreated.
func (c *Cache) Ensure(r renderer.Renderer, width, height int) bool {
	recreated := r.EnsureRenderCache(width, height)
	if recreated {
		c.valid = false
	}
	c.Resize(width, height)
	return recreated
}

// Invalidate marks the cached image stale (data update, transform change).
func (c *Cache) Invalidate() { c.valid = false }

// MarkValid records that a complete frame has been rendered into the cache.
func (c *Cache) MarkValid() { c.valid = true }

// Valid reports whether the cached image may be blitted in lieu of re-rendering.
func (c *Cache) Valid() bool { return c.valid }

// Size returns the last viewport size the cache was sized to.
func (c *Cache) Size() (width, height int) { return c.width, c.height }
