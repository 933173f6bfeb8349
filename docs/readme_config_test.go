package docs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/vendman/cmd/cli"
	"github.com/temirov/vendman/internal/manifest"
)

const (
	readmeFileNameConstant           = "README.md"
	yamlFenceStartConstant           = "```yaml"
	tomlFenceStartConstant           = "```toml"
	fenceEndConstant                 = "```"
	configHeaderMarkerConstant       = "# config.yaml"
	parentDirectoryReferenceConstant = ".."
	missingSnippetMessageTemplate    = "README is missing a %s block"
	missingEndFenceMessageConstant   = "README example missing fence end"
)

func readReadme(testInstance *testing.T) string {
	testInstance.Helper()
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	contentBytes, readError := os.ReadFile(filepath.Join(workingDirectory, parentDirectoryReferenceConstant, readmeFileNameConstant))
	require.NoError(testInstance, readError)
	return string(contentBytes)
}

func extractFencedBlock(testInstance *testing.T, contentText string, fenceStart string) string {
	testInstance.Helper()
	fenceStartIndex := strings.Index(contentText, fenceStart)
	require.NotEqualf(testInstance, -1, fenceStartIndex, missingSnippetMessageTemplate, fenceStart)

	remainingText := contentText[fenceStartIndex+len(fenceStart):]
	fenceEndIndex := strings.Index(remainingText, fenceEndConstant)
	require.NotEqual(testInstance, -1, fenceEndIndex, missingEndFenceMessageConstant)
	return strings.TrimSpace(remainingText[:fenceEndIndex])
}

func TestReadmeConfigurationMatchesEmbeddedDefaults(testInstance *testing.T) {
	snippetContent := extractFencedBlock(testInstance, readReadme(testInstance), yamlFenceStartConstant)
	require.True(testInstance, strings.HasPrefix(snippetContent, configHeaderMarkerConstant))

	var readmeConfiguration map[string]any
	require.NoError(testInstance, yaml.Unmarshal([]byte(snippetContent), &readmeConfiguration))

	embeddedContent, configurationType := cli.EmbeddedDefaultConfiguration()
	require.Equal(testInstance, "yaml", configurationType)
	var embeddedConfiguration map[string]any
	require.NoError(testInstance, yaml.Unmarshal(embeddedContent, &embeddedConfiguration))

	require.Equal(testInstance, embeddedConfiguration, readmeConfiguration)
}

func TestReadmeManifestExampleLoads(testInstance *testing.T) {
	snippetContent := extractFencedBlock(testInstance, readReadme(testInstance), tomlFenceStartConstant)

	rootDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(rootDirectory, manifest.DefaultManifestFileName), []byte(snippetContent), 0o644))

	store, storeError := manifest.NewStore(manifest.StoreConfiguration{RootDirectory: rootDirectory})
	require.NoError(testInstance, storeError)

	loaded, loadError := store.Load()
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, manifest.CurrentSchemaVersion, loaded.Version)
	require.Equal(testInstance, []string{"library", "tool"}, loaded.Names())

	library, _ := loaded.Lookup("library")
	require.Equal(testInstance, manifest.PinnedDependency{Location: "git@github.com:org/library.git", Branch: "release"}, library)
	tool, _ := loaded.Lookup("tool")
	require.Equal(testInstance, manifest.TrackingDependency{Location: "https://github.com/org/tool.git"}, tool)
}
