package renderer

import (
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/compiler"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

// headlessObjectFactory instantiates materials without a GPU device. Packages are decoded and
// reflected exactly as on a device, so it doubles as offline validation.
type headlessObjectFactory struct {
	targets compiler.TargetAPI
}

var _ ObjectFactory = &headlessObjectFactory{}

// NewHeadlessObjectFactory creates an ObjectFactory that creates no GPU objects.
//
// Parameters:
//   - targets: the target APIs packages are compiled for, TargetAPIWebGPU when zero
//
// Returns:
//   - ObjectFactory: the factory
func NewHeadlessObjectFactory(targets compiler.TargetAPI) ObjectFactory {
	if targets == 0 {
		targets = compiler.TargetAPIWebGPU
	}
	return &headlessObjectFactory{targets: targets}
}

func (f *headlessObjectFactory) Instantiate(pkg compiler.Package) (material.Material, error) {
	d, err := decodePackage(pkg)
	if err != nil {
		return nil, err
	}
	return d.newMaterial(d.newPipeline(wgpu.FrontFaceCCW)), nil
}

func (f *headlessObjectFactory) Destroy(m material.Material) {
	m.Release()
}

func (f *headlessObjectFactory) TargetAPI() compiler.TargetAPI {
	return f.targets
}
