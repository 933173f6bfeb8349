// Package scm defines the source-control contract the vendoring engine depends on and the typed
// errors every provider reports.
package scm

import "context"

// DefaultRemoteName is the remote name used when none is configured.
const DefaultRemoteName = "origin"

// RepositoryHandle identifies an opened working copy.
type RepositoryHandle interface {
	// Path returns the working copy directory.
	Path() string
}

// Head describes what a working copy currently has checked out. Reference is the short branch
// name, or "HEAD" when Detached is true.
type Head struct {
	Reference string
	Commit    string
	Detached  bool
}

// Provider performs the source-control operations needed to vend and synchronize dependencies.
type Provider interface {
	// Clone copies locator into destination and records it under remoteName. A non-empty
	// initialReference selects the branch to check out; otherwise the remote default branch is used.
	Clone(executionContext context.Context, locator string, destination string, remoteName string, initialReference string) (RepositoryHandle, error)
	// Open attaches to an existing working copy.
	Open(executionContext context.Context, path string) (RepositoryHandle, error)
	// Fetch updates remote-tracking references; an empty references list fetches everything.
	Fetch(executionContext context.Context, handle RepositoryHandle, remoteName string, references []string) error
	// CheckoutHead points local branch at remoteName/branch and checks it out. A working tree with
	// local modifications is refused with KindDirtyWorkingTree.
	CheckoutHead(executionContext context.Context, handle RepositoryHandle, remoteName string, branch string) error
	// CurrentHead reports the checked-out reference and commit.
	CurrentHead(executionContext context.Context, handle RepositoryHandle) (Head, error)
}

// WorkingCopy is the RepositoryHandle used by providers that only need a directory.
type WorkingCopy struct {
	Directory string
}

// Path returns the working copy directory.
func (workingCopy WorkingCopy) Path() string {
	return workingCopy.Directory
}
