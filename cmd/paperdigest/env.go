package main

import (
	"io"
	"os"
)

// Environment holds injectable I/O for testability.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

// DefaultEnv returns the process streams.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
	}
}
