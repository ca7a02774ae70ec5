package gpu

import "errors"

// ErrResourceExhausted is returned when an entity's requested splat capacity would exceed
// a configured device budget — the ResourceExhaustion kind from §7.
var ErrResourceExhausted = errors.New("gpu: resource exhausted")

// ErrUnknownEntity is returned by any per-entity operation given a key that was never
// passed to AllocateEntity, or was already released.
var ErrUnknownEntity = errors.New("gpu: unknown entity")
