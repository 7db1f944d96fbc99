package renderer

import "github.com/cogentcore/webgpu/wgpu"

// WGPUObjectFactoryBuilderOption is a functional option applied to a factory during construction
// via NewWGPUObjectFactory.
type WGPUObjectFactoryBuilderOption func(*wgpuObjectFactory)

// WithColorFormat sets the format of the color attachment render pipelines draw into.
// When not specified, the default is BGRA8UnormSrgb.
//
// Parameters:
//   - format: the color target format, usually the surface format
//
// Returns:
//   - WGPUObjectFactoryBuilderOption: a function that applies the color format option to a factory
func WithColorFormat(format wgpu.TextureFormat) WGPUObjectFactoryBuilderOption {
	return func(f *wgpuObjectFactory) {
		f.colorFormat = format
	}
}

// WithDepthFormat sets the format of the depth attachment. When not specified, the default is
// Depth24Plus.
//
// Parameters:
//   - format: the depth target format
//
// Returns:
//   - WGPUObjectFactoryBuilderOption: a function that applies the depth format option to a factory
func WithDepthFormat(format wgpu.TextureFormat) WGPUObjectFactoryBuilderOption {
	return func(f *wgpuObjectFactory) {
		f.depthFormat = format
	}
}

// WithMSAA sets the multisample anti-aliasing sample count of created render pipelines.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - WGPUObjectFactoryBuilderOption: a function that applies the MSAA option to a factory
func WithMSAA(count MSAASampleCount) WGPUObjectFactoryBuilderOption {
	return func(f *wgpuObjectFactory) {
		f.sampleCount = count
	}
}

// WithFrontFace sets the winding order treated as front facing.
//
// Parameters:
//   - face: the front face winding
//
// Returns:
//   - WGPUObjectFactoryBuilderOption: a function that applies the front face option to a factory
func WithFrontFace(face wgpu.FrontFace) WGPUObjectFactoryBuilderOption {
	return func(f *wgpuObjectFactory) {
		f.frontFace = face
	}
}
