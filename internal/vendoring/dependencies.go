package vendoring

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/vendman/internal/execshell"
	"github.com/temirov/vendman/internal/filesystem"
	"github.com/temirov/vendman/internal/gitrepo"
	"github.com/temirov/vendman/internal/gogit"
	"github.com/temirov/vendman/internal/manifest"
	"github.com/temirov/vendman/internal/scm"
	"github.com/temirov/vendman/internal/ui"
	pathutils "github.com/temirov/vendman/internal/utils/path"
)

const (
	unknownProviderTemplateConstant = "%w: %q (expected %s or %s)"
	rootResolutionTemplateConstant  = "unable to resolve vendman root: %w"
)

var rootDirectoryExpander = pathutils.NewHomeExpander()

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing filesystem.FileSystem) filesystem.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default. Human
// readable logging renders command lifecycle events through the console event logger.
func ResolveGitExecutor(existing gitrepo.GitExecutor, logger *zap.Logger, humanReadable bool) (gitrepo.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	if humanReadable {
		return execshell.NewShellExecutorWithObserver(logger, commandRunner, ui.NewConsoleCommandEventLogger(logger))
	}
	return execshell.NewShellExecutor(logger, commandRunner)
}

// ResolveProvider returns the provided source control provider or constructs the one named by
// providerName. The git executor is only consulted for the shell provider.
func ResolveProvider(existing scm.Provider, providerName string, executor gitrepo.GitExecutor, logger *zap.Logger) (scm.Provider, error) {
	if existing != nil {
		return existing, nil
	}

	switch normalizeProviderName(providerName) {
	case ProviderShell, "":
		return gitrepo.NewShellProvider(executor)
	case ProviderEmbedded:
		return gogit.NewProvider(logger), nil
	default:
		return nil, fmt.Errorf(unknownProviderTemplateConstant, ErrUnknownProvider, providerName, ProviderShell, ProviderEmbedded)
	}
}

// ResolveStore returns the provided store or opens the manifest store described by configuration.
func ResolveStore(existing ManifestStore, configuration Configuration, fileSystem filesystem.FileSystem, logger *zap.Logger) (ManifestStore, error) {
	if existing != nil {
		return existing, nil
	}

	rootDirectory, rootError := rootDirectoryExpander.ResolveAbsolute(configuration.RootDirectory)
	if rootError != nil {
		return nil, fmt.Errorf(rootResolutionTemplateConstant, rootError)
	}
	store, storeError := manifest.NewStore(manifest.StoreConfiguration{
		RootDirectory:    rootDirectory,
		ManifestFileName: configuration.ManifestFileName,
		LockTimeout:      configuration.LockTimeout,
		FileSystem:       fileSystem,
		Logger:           logger,
	})
	if storeError != nil {
		return nil, storeError
	}
	return store, nil
}
