// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build nogpu

package gpu

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/subdiv"
)

// Refiner is a stub for nogpu builds. New always fails; callers fall back
// to the CPU refiner.
type Refiner struct{}

func New() (*Refiner, error) { return nil, ErrNoGPU }

func (r *Refiner) SetDeviceProvider(provider gpucontext.DeviceProvider) error { return ErrNoGPU }

func (r *Refiner) Ready() bool { return false }

func (r *Refiner) Close() {}

func (r *Refiner) Refine(src *subdiv.Mesh) (*subdiv.Mesh, error) { return nil, ErrClosed }

func (r *Refiner) RefineTo(src *subdiv.Mesh, depth int) (*subdiv.Mesh, error) {
	return nil, ErrClosed
}
