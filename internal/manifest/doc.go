// Package manifest defines the persisted dependency declarations of a vendman root and the store
// that reads, writes and locks them.
//
// A manifest maps dependency names to one of two variants: TrackingDependency follows the upstream
// default branch and PinnedDependency follows an explicit branch. The on-disk encoding is chosen by
// the manifest file extension (TOML, YAML or JSON); all encodings share one schema:
//
//	version = "0.1.0"
//
//	[dependencies.tool.tracking]
//	source = "https://example.com/org/tool.git"
//
//	[dependencies.lib.pinned]
//	source = "https://example.com/org/lib.git"
//	branch = "dev"
package manifest
