// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import _ "embed"

//go:embed shaders/refine.wgsl
var refineShaderSource string

// Kernel entry points, in dispatch order. The order is a correctness
// requirement: each pass reads accumulators the previous pass finalized.
var passEntryPoints = [4]string{
	"refine_topology",
	"face_points",
	"edge_points",
	"vertex_points",
}

// workgroupSize must match @workgroup_size in refine.wgsl.
const workgroupSize = 256
