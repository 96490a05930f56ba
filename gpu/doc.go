// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpu refines meshes with compute shaders via gogpu/wgpu.
//
// The four subdivision passes run as WGSL kernels encoded back to back in a
// single command submission; the implicit storage-buffer barriers between
// compute passes provide the inter-pass ordering the scheme requires. Mesh
// levels are uploaded as flat storage buffers in exactly the layout
// subdiv.Mesh uses, refined on the device, and read back.
//
// The package is optional: the CPU refiner in the root package produces
// identical results. Build with the nogpu tag to drop the Vulkan dependency.
package gpu
