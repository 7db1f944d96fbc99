//go:build !oxydebug

package compiler

const debugBuild = false
