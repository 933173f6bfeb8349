// Package cli constructs the vendman command-line interface, wiring the Cobra command hierarchy,
// the configuration loader and structured logging. Execute runs the default command set.
package cli
