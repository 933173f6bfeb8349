package gitrepo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/vendman/internal/gitrepo"
	"github.com/temirov/vendman/internal/manifest"
)

func TestDeriveDependencyName(testInstance *testing.T) {
	testCases := []struct {
		name         string
		locator      string
		expectedName string
	}{
		{name: "https with suffix", locator: "https://example.com/org/repo.git", expectedName: "repo"},
		{name: "https without suffix", locator: "https://example.com/org/repo", expectedName: "repo"},
		{name: "https trailing slash", locator: "https://example.com/org/repo.git/", expectedName: "repo"},
		{name: "scp style", locator: "git@example.com:org/repo", expectedName: "repo"},
		{name: "ssh url", locator: "ssh://git@example.com:2222/org/repo.git", expectedName: "repo"},
		{name: "absolute path trailing slash", locator: "/srv/git/repo/", expectedName: "repo"},
		{name: "relative path", locator: "../mirrors/tool.git", expectedName: "tool"},
		{name: "file url", locator: "file:///srv/git/lib", expectedName: "lib"},
		{name: "dotted name", locator: "https://example.com/org/repo.v2.git", expectedName: "repo.v2"},
		{name: "surrounding whitespace", locator: "  https://example.com/org/repo.git  ", expectedName: "repo"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			derivedName, deriveError := gitrepo.DeriveDependencyName(testCase.locator)
			require.NoError(testInstance, deriveError)
			require.Equal(testInstance, testCase.expectedName, derivedName)
		})
	}
}

func TestParseLocatorRejectsUnnameableLocators(testInstance *testing.T) {
	testCases := []struct {
		name    string
		locator string
	}{
		{name: "empty", locator: ""},
		{name: "blank", locator: "   "},
		{name: "current directory", locator: "."},
		{name: "parent directory", locator: ".."},
		{name: "current directory with separator", locator: "./"},
		{name: "parent directory with separator", locator: "../"},
		{name: "nested parent directory", locator: "mirrors/.."},
		{name: "suffix only", locator: "https://example.com/org/.git"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, parseError := gitrepo.ParseLocator(testCase.locator)
			require.ErrorIs(testInstance, parseError, gitrepo.ErrInvalidLocator)
		})
	}
}

func TestParseLocatorKeepsOriginal(testInstance *testing.T) {
	parsedLocator, parseError := gitrepo.ParseLocator("https://example.com/org/repo.git")
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, "https://example.com/org/repo.git", parsedLocator.Original)
	require.Equal(testInstance, "https", parsedLocator.Protocol)
	require.Equal(testInstance, "example.com", parsedLocator.Host)

	_, invalidNameError := gitrepo.ParseLocator("..")
	require.ErrorIs(testInstance, invalidNameError, manifest.ErrInvalidDependencyName)
}

func TestParseLocatorRecordsLocalPathsAbsolute(testInstance *testing.T) {
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	testCases := []struct {
		name             string
		locator          string
		expectedOriginal string
		expectedName     string
	}{
		{
			name:             "relative path",
			locator:          "../mirrors/tool.git",
			expectedOriginal: filepath.Join(filepath.Dir(workingDirectory), "mirrors", "tool.git"),
			expectedName:     "tool",
		},
		{
			name:             "absolute path",
			locator:          "/srv/git/repo/",
			expectedOriginal: "/srv/git/repo",
			expectedName:     "repo",
		},
		{
			name:             "file url kept verbatim",
			locator:          "file:///srv/git/lib",
			expectedOriginal: "file:///srv/git/lib",
			expectedName:     "lib",
		},
		{
			name:             "scp style kept verbatim",
			locator:          "git@example.com:org/repo",
			expectedOriginal: "git@example.com:org/repo",
			expectedName:     "repo",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			parsedLocator, parseError := gitrepo.ParseLocator(testCase.locator)
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedOriginal, parsedLocator.Original)
			require.Equal(testInstance, testCase.expectedName, parsedLocator.Name)
		})
	}
}
