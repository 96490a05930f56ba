// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import "errors"

// Package errors.
var (
	// ErrNoGPU is returned when no usable GPU adapter is available.
	ErrNoGPU = errors.New("gpu: no GPU adapter available")

	// ErrClosed is returned when Refine is called on a closed refiner.
	ErrClosed = errors.New("gpu: refiner is closed")

	// ErrBadProvider is returned when a device provider does not expose
	// HAL device handles.
	ErrBadProvider = errors.New("gpu: provider does not expose HAL types")
)
