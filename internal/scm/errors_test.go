package scm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/vendman/internal/scm"
)

func TestProviderErrorClassification(testInstance *testing.T) {
	testCases := []struct {
		name         string
		err          error
		expectedKind scm.ErrorKind
	}{
		{
			name:         "explicit kind",
			err:          scm.NewProviderError(scm.KindAuthFailed, scm.OperationClone, "/tmp/tool", errors.New("denied")),
			expectedKind: scm.KindAuthFailed,
		},
		{
			name:         "deadline overrides kind",
			err:          scm.NewProviderError(scm.KindNetworkError, scm.OperationFetch, "/tmp/tool", context.DeadlineExceeded),
			expectedKind: scm.KindTimeout,
		},
		{
			name:         "wrapped provider error",
			err:          fmt.Errorf("update tool: %w", scm.NewProviderError(scm.KindDirtyWorkingTree, scm.OperationCheckout, "/tmp/tool", nil)),
			expectedKind: scm.KindDirtyWorkingTree,
		},
		{
			name:         "bare deadline",
			err:          context.DeadlineExceeded,
			expectedKind: scm.KindTimeout,
		},
		{
			name:         "foreign error",
			err:          errors.New("boom"),
			expectedKind: scm.KindUnknown,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedKind, scm.KindOf(testCase.err))
		})
	}
}

func TestProviderErrorMessage(testInstance *testing.T) {
	withoutCause := scm.NewProviderError(scm.KindDirtyWorkingTree, scm.OperationCheckout, "/tmp/tool", nil)
	require.Equal(testInstance, "checkout /tmp/tool: working tree has local changes", withoutCause.Error())

	cause := errors.New("exit status 128")
	withCause := scm.NewProviderError(scm.KindRemoteNotFound, scm.OperationFetch, "/tmp/tool", cause)
	require.Equal(testInstance, "fetch /tmp/tool: remote not found: exit status 128", withCause.Error())
	require.ErrorIs(testInstance, withCause, cause)
}
