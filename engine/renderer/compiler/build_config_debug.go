//go:build oxydebug

package compiler

// debugBuild forces unoptimized shaders with debug info in every build.
const debugBuild = true
