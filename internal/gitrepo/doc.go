// Package gitrepo parses dependency locators and implements the source-control provider on top of
// the git executable.
package gitrepo
