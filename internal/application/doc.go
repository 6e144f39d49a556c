// Package application provides application initialization and dependency wiring.
// It encapsulates the creation of the environment reader, path resolver and
// configuration store from tool settings, and renders results, keeping the
// main package focused on CLI parsing and orchestration.
package application
