// Package main provides the hpickle CLI for inspecting pickled containers.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
