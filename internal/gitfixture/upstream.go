// Package gitfixture builds throwaway upstream repositories for tests that vend real clones.
package gitfixture

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

const (
	gitExecutableNameConstant     = "git"
	missingGitSkipMessageConstant = "git executable not available"
	authorNameConstant            = "vendman fixture"
	authorEmailConstant           = "fixture@vendman.invalid"
	commitMessagePrefixConstant   = "update "
	fixtureFilePermissions        = 0o644
)

// RequireGit skips the test when no git executable is on PATH. Cloning from a local path needs
// git-upload-pack even through go-git.
func RequireGit(testInstance testing.TB) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath(gitExecutableNameConstant); lookupError != nil {
		testInstance.Skip(missingGitSkipMessageConstant)
	}
}

// Upstream is a non-bare repository acting as a dependency source.
type Upstream struct {
	Path          string
	DefaultBranch string

	testInstance testing.TB
	repository   *git.Repository
}

// NewUpstream initializes a repository with one commit on its default branch.
func NewUpstream(testInstance testing.TB) *Upstream {
	testInstance.Helper()
	upstreamPath := filepath.Join(testInstance.TempDir(), "upstream")
	repository, initError := git.PlainInit(upstreamPath, false)
	require.NoError(testInstance, initError)

	upstream := &Upstream{Path: upstreamPath, testInstance: testInstance, repository: repository}
	upstream.commit("README.md", "initial\n")

	headReference, headError := repository.Head()
	require.NoError(testInstance, headError)
	upstream.DefaultBranch = headReference.Name().Short()
	return upstream
}

// NewEmptyUpstream initializes a repository without any commits.
func NewEmptyUpstream(testInstance testing.TB) *Upstream {
	testInstance.Helper()
	upstreamPath := filepath.Join(testInstance.TempDir(), "empty")
	repository, initError := git.PlainInit(upstreamPath, false)
	require.NoError(testInstance, initError)
	return &Upstream{Path: upstreamPath, testInstance: testInstance, repository: repository}
}

// Commit records fileName with contents on the default branch and returns the new commit hash.
func (upstream *Upstream) Commit(fileName string, contents string) string {
	upstream.testInstance.Helper()
	return upstream.commit(fileName, contents)
}

// CreateBranch starts branchName at the current default branch tip.
func (upstream *Upstream) CreateBranch(branchName string) {
	upstream.testInstance.Helper()
	headReference, headError := upstream.repository.Head()
	require.NoError(upstream.testInstance, headError)
	branchReference := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branchName), headReference.Hash())
	require.NoError(upstream.testInstance, upstream.repository.Storer.SetReference(branchReference))
}

// CommitOnBranch records fileName on branchName and leaves the default branch checked out, so
// fresh clones keep following the default branch.
func (upstream *Upstream) CommitOnBranch(branchName string, fileName string, contents string) string {
	upstream.testInstance.Helper()
	upstream.checkout(branchName)
	commitHash := upstream.commit(fileName, contents)
	upstream.checkout(upstream.DefaultBranch)
	return commitHash
}

// DeleteBranch removes branchName from the upstream.
func (upstream *Upstream) DeleteBranch(branchName string) {
	upstream.testInstance.Helper()
	require.NoError(upstream.testInstance, upstream.repository.Storer.RemoveReference(plumbing.NewBranchReferenceName(branchName)))
}

// Tip returns the commit hash branchName points at.
func (upstream *Upstream) Tip(branchName string) string {
	upstream.testInstance.Helper()
	branchReference, referenceError := upstream.repository.Reference(plumbing.NewBranchReferenceName(branchName), true)
	require.NoError(upstream.testInstance, referenceError)
	return branchReference.Hash().String()
}

func (upstream *Upstream) checkout(branchName string) {
	worktree, worktreeError := upstream.repository.Worktree()
	require.NoError(upstream.testInstance, worktreeError)
	require.NoError(upstream.testInstance, worktree.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branchName)}))
}

func (upstream *Upstream) commit(fileName string, contents string) string {
	worktree, worktreeError := upstream.repository.Worktree()
	require.NoError(upstream.testInstance, worktreeError)

	require.NoError(upstream.testInstance, os.WriteFile(filepath.Join(upstream.Path, fileName), []byte(contents), fixtureFilePermissions))
	_, addError := worktree.Add(fileName)
	require.NoError(upstream.testInstance, addError)

	commitHash, commitError := worktree.Commit(commitMessagePrefixConstant+fileName, &git.CommitOptions{
		Author: &object.Signature{Name: authorNameConstant, Email: authorEmailConstant, When: time.Now()},
	})
	require.NoError(upstream.testInstance, commitError)
	return commitHash.String()
}
