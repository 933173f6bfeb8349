package gogit_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/vendman/internal/gitfixture"
	"github.com/temirov/vendman/internal/gogit"
	"github.com/temirov/vendman/internal/scm"
)

const testPinnedBranchConstant = "dev"

func TestProviderCloneFollowsRequestedBranch(testInstance *testing.T) {
	gitfixture.RequireGit(testInstance)
	upstream := gitfixture.NewUpstream(testInstance)
	upstream.CreateBranch(testPinnedBranchConstant)
	devTip := upstream.CommitOnBranch(testPinnedBranchConstant, "dev.txt", "dev\n")

	testCases := []struct {
		name              string
		initialReference  string
		expectedReference string
		expectedCommit    string
	}{
		{
			name:              "default branch",
			expectedReference: upstream.DefaultBranch,
			expectedCommit:    upstream.Tip(upstream.DefaultBranch),
		},
		{
			name:              "pinned branch",
			initialReference:  testPinnedBranchConstant,
			expectedReference: testPinnedBranchConstant,
			expectedCommit:    devTip,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			provider := gogit.NewProvider(nil)
			destination := filepath.Join(testInstance.TempDir(), "clone")

			handle, cloneError := provider.Clone(context.Background(), upstream.Path, destination, scm.DefaultRemoteName, testCase.initialReference)
			require.NoError(testInstance, cloneError)
			require.Equal(testInstance, destination, handle.Path())

			head, headError := provider.CurrentHead(context.Background(), handle)
			require.NoError(testInstance, headError)
			require.Equal(testInstance, scm.Head{Reference: testCase.expectedReference, Commit: testCase.expectedCommit}, head)
		})
	}
}

func TestProviderFetchAndCheckoutPinnedBranch(testInstance *testing.T) {
	gitfixture.RequireGit(testInstance)
	upstream := gitfixture.NewUpstream(testInstance)
	upstream.CreateBranch(testPinnedBranchConstant)

	provider := gogit.NewProvider(nil)
	destination := filepath.Join(testInstance.TempDir(), "clone")
	_, cloneError := provider.Clone(context.Background(), upstream.Path, destination, scm.DefaultRemoteName, testPinnedBranchConstant)
	require.NoError(testInstance, cloneError)

	newTip := upstream.CommitOnBranch(testPinnedBranchConstant, "dev.txt", "second\n")

	handle, openError := provider.Open(context.Background(), destination)
	require.NoError(testInstance, openError)
	require.NoError(testInstance, provider.Fetch(context.Background(), handle, scm.DefaultRemoteName, []string{testPinnedBranchConstant}))
	require.NoError(testInstance, provider.CheckoutHead(context.Background(), handle, scm.DefaultRemoteName, testPinnedBranchConstant))

	head, headError := provider.CurrentHead(context.Background(), handle)
	require.NoError(testInstance, headError)
	require.Equal(testInstance, scm.Head{Reference: testPinnedBranchConstant, Commit: newTip}, head)

	contents, readError := os.ReadFile(filepath.Join(destination, "dev.txt"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "second\n", string(contents))

	require.NoError(testInstance, provider.Fetch(context.Background(), handle, scm.DefaultRemoteName, nil))
}

func TestProviderRefusesDirtyCheckout(testInstance *testing.T) {
	gitfixture.RequireGit(testInstance)
	upstream := gitfixture.NewUpstream(testInstance)

	provider := gogit.NewProvider(nil)
	destination := filepath.Join(testInstance.TempDir(), "clone")
	handle, cloneError := provider.Clone(context.Background(), upstream.Path, destination, scm.DefaultRemoteName, "")
	require.NoError(testInstance, cloneError)

	require.NoError(testInstance, os.WriteFile(filepath.Join(destination, "untracked.txt"), []byte("scratch\n"), 0o644))
	require.NoError(testInstance, provider.CheckoutHead(context.Background(), handle, scm.DefaultRemoteName, upstream.DefaultBranch))

	require.NoError(testInstance, os.WriteFile(filepath.Join(destination, "README.md"), []byte("local edit\n"), 0o644))
	checkoutError := provider.CheckoutHead(context.Background(), handle, scm.DefaultRemoteName, upstream.DefaultBranch)
	require.Equal(testInstance, scm.KindDirtyWorkingTree, scm.KindOf(checkoutError))
}

func TestProviderReportsMissingRepositories(testInstance *testing.T) {
	provider := gogit.NewProvider(nil)

	_, openError := provider.Open(context.Background(), testInstance.TempDir())
	require.Equal(testInstance, scm.KindRepositoryMissing, scm.KindOf(openError))
}

func TestProviderReportsUnknownBranch(testInstance *testing.T) {
	gitfixture.RequireGit(testInstance)
	upstream := gitfixture.NewUpstream(testInstance)

	provider := gogit.NewProvider(nil)
	destination := filepath.Join(testInstance.TempDir(), "clone")
	handle, cloneError := provider.Clone(context.Background(), upstream.Path, destination, scm.DefaultRemoteName, "")
	require.NoError(testInstance, cloneError)

	checkoutError := provider.CheckoutHead(context.Background(), handle, scm.DefaultRemoteName, "missing")
	require.Equal(testInstance, scm.KindInvalidReference, scm.KindOf(checkoutError))
}
