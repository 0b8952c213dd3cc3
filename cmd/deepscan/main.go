// Package main provides the entry point for the deepscan CLI.
//
// deepscan asks third-party deepfake detection vendors whether an image is
// authentic and reports one normalized verdict.
//
// Usage:
//
//	deepscan serve
//	deepscan detect <image...>
//	deepscan describe <image>
//	deepscan history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
