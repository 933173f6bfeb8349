// Package vendoring implements the vendman workflows (init, vend, update, list, remove and clean)
// on top of the manifest store and a source-control provider, and exposes them as Cobra commands.
package vendoring
