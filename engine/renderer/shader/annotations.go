// annotations.go defines the annotation types, argument constants, and parser for the
// Oxy WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @oxy: that drive automatic struct injection, bind group declaration, and resource
// provider registration. The parsed results are stored as Annotation values; the
// PreProcessor turns them into WGSL and records group and provider annotations in its
// declarations list.
//
// The syntax of each annotation type is documented on its AnnotationType constant below.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
// Each type corresponds to a distinct pre-processor action and produces different
// fields on the resulting Annotation struct.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// into the shader at the annotation site. The struct source is embedded from the
	// corresponding Go GPU type's .wgsl asset file. This annotation does not produce
	// a declaration and is consumed entirely during pre-processing.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include camera
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// and appends an Annotation to the PreProcessor's declarations list. The declaration
	// carries the group index, binding index, and the struct type argument.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 0 storage_uniform camera camera
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider registers a resource provider identity for a group and binding
	// without generating any WGSL output. The WGSL binding declaration remains hand-written
	// in the shader source directly below the annotation. This is used for bindings that
	// contain raw WGSL types (textures, samplers, flat arrays of primitives) which have no
	// corresponding registered struct in the pre-processor's struct registry.
	//
	// An optional binding role can be appended after the provider identity to declare the
	// semantic purpose of an individual binding within a multi-binding provider group.
	// The role is recorded in the declaration's Args after the identity.
	//
	// Syntax:
	//   //@oxy:provider <group> <binding> <provider_identity>
	//   //@oxy:provider <group> <binding> <provider_identity> <binding_role>
	//
	// Examples:
	//   //@oxy:provider 2 0 pick_mask pick_mask
	//   //@oxy:provider 1 0 splat_store
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
// It carries the annotation type, its arguments, the source line number, and optional
// group/binding indices. Annotations of type AnnotationTypeBindingGroup and
// AnnotationTypeProvider are appended to the PreProcessor's declarations list.
type Annotation struct {
	// Type identifies which annotation was parsed (include, group, or provider).
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type key (e.g. "camera")
	//   - group:    [0] = address space, [1] = var name, [2] = WGSL type key
	//   - provider: [0] = provider identity (e.g. "splat_store", "visible_indices"), [1] = binding role (optional, e.g. "pick_mask")
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source where this annotation
	// was found. Used for error reporting.
	Line int

	// Group is the @group index for group and provider annotations. Nil for include annotations.
	Group *int

	// Binding is the @binding index for group and provider annotations. Nil for include annotations.
	Binding *int
}

// AnnotationArg is a typed string constant used as an argument in annotations.
// Arguments fall into three categories: struct type keys (used with include and group),
// address space identifiers (used with group), and provider identity keys (used with provider).
type AnnotationArg string

// ── Struct type arguments ──────────────────────────────────────────────────────
// These identify registered WGSL struct types. They can appear in @oxy:include annotations
// (to inject the struct source) and in @oxy:group annotations (as the type field, optionally
// wrapped in array<>). Each maps to a Go GPU type with an embedded .wgsl asset file.

const (
	// AnnotationArgCamera identifies the CameraUniform struct (view-projection matrix and
	// camera world position) shared by the cull, rasterizer, and picker shaders.
	// Source: common/assets/camera_uniform.wgsl
	AnnotationArgCamera AnnotationArg = "camera"

	// AnnotationArgSplat identifies the Splat storage-buffer element consumed by the
	// cull pass and the rasterizer's vertex shader.
	// Source: splat/assets/splat.wgsl
	AnnotationArgSplat AnnotationArg = "splat"

	// AnnotationArgCullUniforms identifies the EntityParams struct as read by the cull compute
	// shader (point_count, surface size, frustum_dilation, alpha_cull_threshold). Resolves to
	// the same underlying struct as AnnotationArgRasterUniforms — one EntityParams record per
	// entity, synchronised by the GPU resource manager.
	// Source: common/assets/entity_params.wgsl
	AnnotationArgCullUniforms AnnotationArg = "cull_uniforms"

	// AnnotationArgIndirectArgs identifies the IndirectArgs struct matching WebGPU's DrawIndirect
	// layout (vertex_count, instance_count, first_vertex, first_instance). Written atomically by
	// the cull pass and read by the rasterizer's indirect draw and the sorter's dispatch sizing.
	// Source: common/assets/indirect_args.wgsl
	AnnotationArgIndirectArgs AnnotationArg = "indirect_args"

	// AnnotationArgSortUniforms identifies the SortUniforms struct (pass index, shift amount)
	// read by the radix sort's upsweep/spine/downsweep compute shaders.
	// Source: common/assets/sort_uniforms.wgsl
	AnnotationArgSortUniforms AnnotationArg = "sort_uniforms"

	// AnnotationArgRasterUniforms identifies the EntityParams struct as read by the rasterizer's
	// vertex and fragment shaders (splat_scale, sh_degree, vis_mode, edit colors, tint). Resolves
	// to the same underlying struct as AnnotationArgCullUniforms.
	// Source: common/assets/entity_params.wgsl
	AnnotationArgRasterUniforms AnnotationArg = "raster_uniforms"

	// AnnotationArgPickUniforms identifies the PickUniforms struct (pick mode, rect/sphere/box
	// parameters) read by the GPU picker's compute shader.
	// Source: common/assets/pick_uniforms.wgsl
	AnnotationArgPickUniforms AnnotationArg = "pick_uniforms"

	// AnnotationArgTransform identifies the Transform struct (the entity's 4x4 model matrix)
	// rewritten by the GPU resource manager on every transform change and read by the cull
	// pass and the rasterizer's vertex shader.
	// Source: common/assets/entity_transform.wgsl
	AnnotationArgTransform AnnotationArg = "transform"
)

// ── Address space arguments ────────────────────────────────────────────────────
// These specify the WGSL variable address space in @oxy:group annotations.
// They map to WGSL var<> declarations.

const (
	// annotationArgStorageTypeUniform maps to var<uniform> in WGSL.
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"

	// annotationArgStorageTypeRead maps to var<storage, read> in WGSL.
	annotationArgStorageTypeRead AnnotationArg = "storage_read"

	// annotationArgStorageTypeReadWrite maps to var<storage, read_write> in WGSL.
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// ── Provider identity arguments ────────────────────────────────────────────────
// These identify which resource provider owns a bind group. Used in @oxy:provider
// annotations; parseAnnotation rejects identities outside validProviderIdentities.

const (
	// AnnotationArgSplatStore identifies the splat storage-buffer provider (position, rotation,
	// scale, opacity, and SH coefficient arrays) read by the cull and rasterizer shaders.
	AnnotationArgSplatStore AnnotationArg = "splat_store"

	// AnnotationArgVisibleIndices identifies the visible-index storage buffer written by the cull
	// pass's atomic compaction and read by the sorter and rasterizer.
	AnnotationArgVisibleIndices AnnotationArg = "visible_indices"

	// AnnotationArgSortKeys identifies the radix sorter's depth-key storage buffers (ping-pong pair).
	AnnotationArgSortKeys AnnotationArg = "sort_keys"

	// AnnotationArgSortHistogram identifies the radix sorter's global and per-partition histogram buffers.
	AnnotationArgSortHistogram AnnotationArg = "sort_histogram"

	// AnnotationArgPickMask identifies the optional selection-mask texture and sampler consumed by
	// the GPU picker's mask mode (§4.7).
	AnnotationArgPickMask AnnotationArg = "pick_mask"

	// AnnotationArgPickResults identifies the picker's per-splat result storage buffer.
	AnnotationArgPickResults AnnotationArg = "pick_results"

	// AnnotationArgRenderCache identifies the temporal-coherence controller's cached Rgba8Unorm
	// render-target texture blitted on skip_render frames.
	AnnotationArgRenderCache AnnotationArg = "render_cache"
)

// validStructTypes lists all AnnotationArg values that are accepted as struct type
// arguments in @oxy:include and @oxy:group annotations. Each entry must have a
// corresponding registryEntry in the PreProcessor's structRegistry.
var validStructTypes = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgSplat,
	AnnotationArgCullUniforms,
	AnnotationArgIndirectArgs,
	AnnotationArgSortUniforms,
	AnnotationArgRasterUniforms,
	AnnotationArgPickUniforms,
	AnnotationArgTransform,
}

// validAddressSpaces lists all AnnotationArg values that are accepted as address
// space arguments in @oxy:group annotations. Each maps to a WGSL var<> declaration.
var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

// validProviderIdentities lists all AnnotationArg values that are accepted as
// provider identity arguments in @oxy:provider annotations. Each maps to a resource
// provider used during draw call and compute setup wiring.
var validProviderIdentities = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgSplatStore,
	AnnotationArgVisibleIndices,
	AnnotationArgSortKeys,
	AnnotationArgSortHistogram,
	AnnotationArgPickMask,
	AnnotationArgPickResults,
	AnnotationArgRenderCache,
}

// validBindingRoles lists all AnnotationArg values that are accepted as binding
// role qualifiers in @oxy:provider annotations. Currently only the picker's mask mode
// needs to distinguish a texture binding from its paired sampler within one provider group.
var validBindingRoles = []AnnotationArg{
	AnnotationArgPickMask,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix. Returns
// a populated Annotation for valid annotations, or an error describing the problem for
// malformed annotations with correct prefix but invalid syntax or unknown arguments.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires exactly five arguments (group number, binding number, address space, variable name, struct type)", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation: %v", lineNum, args[1], err)
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation: %v", lineNum, args[2], err)
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		typeArg := args[5]
		if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
			inner = strings.TrimSuffix(inner, ">")
			if !slices.Contains(validStructTypes, AnnotationArg(inner)) {
				return nil, fmt.Errorf("line %d: unknown array element type %q in @oxy group annotation", lineNum, inner)
			}
		} else {
			if !slices.Contains(validStructTypes, AnnotationArg(typeArg)) {
				return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, typeArg)
			}
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	case string(AnnotationTypeProvider):
		if len(args) < 4 || len(args) > 5 {
			return nil, fmt.Errorf("line %d: @oxy provider annotation requires three or four arguments (group, binding, provider identity[, binding role])", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q: %v", lineNum, args[1], err)
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy provider annotation: %v", lineNum, args[2], err)
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider identity %q in @oxy provider annotation", lineNum, args[3])
		}
		providerArgs := []AnnotationArg{AnnotationArg(args[3])}
		if len(args) == 5 {
			if !slices.Contains(validBindingRoles, AnnotationArg(args[4])) {
				return nil, fmt.Errorf("line %d: unknown binding role %q in @oxy provider annotation", lineNum, args[4])
			}
			providerArgs = append(providerArgs, AnnotationArg(args[4]))
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    providerArgs,
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
