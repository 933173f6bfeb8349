package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/vendman/internal/filesystem"
)

const (
	// DefaultManifestFileName is the manifest file created inside the root when none is configured.
	DefaultManifestFileName = "config.toml"
	// StagingDirectoryPrefix marks temporary clone directories inside the root.
	StagingDirectoryPrefix = ".vend-"

	rootDirectoryPermissionsConstant = fs.FileMode(0o755)
	manifestFilePermissionsConstant  = fs.FileMode(0o644)
	temporaryManifestSuffixConstant  = ".tmp"
	lockFileSuffixConstant           = ".lock"
	rootDirectoryRequiredMessage     = "manifest store requires a root directory"
	manifestNameInvalidTemplate      = "manifest file name %q must be a plain file name"
	reservedNameTemplateConstant     = "%w: %q is reserved"
	ioOperationReadConstant          = "read"
	ioOperationWriteConstant         = "write"
	ioOperationReplaceConstant       = "replace"
	ioOperationInspectConstant       = "inspect"
	ioOperationCreateConstant        = "create"
	ioOperationRemoveConstant        = "remove"
	schemaMismatchLogMessageConstant = "manifest schema version differs from this build"
	manifestInitializedLogMessage    = "initialized manifest"
	logFieldManifestPathConstant     = "manifest"
	logFieldManifestVersionConstant  = "version"
	logFieldSupportedVersionConstant = "supported_version"
)

// ErrRootDirectoryRequired indicates the store was configured without a root directory.
var ErrRootDirectoryRequired = errors.New(rootDirectoryRequiredMessage)

// StoreConfiguration describes where the manifest lives. RootDirectory must be absolute.
type StoreConfiguration struct {
	RootDirectory    string
	ManifestFileName string
	LockTimeout      time.Duration
	FileSystem       filesystem.FileSystem
	Logger           *zap.Logger
}

// Store loads, saves and locks the manifest of one vendman root.
type Store struct {
	rootDirectory string
	manifestPath  string
	lockTimeout   time.Duration
	codec         codec
	fileSystem    filesystem.FileSystem
	logger        *zap.Logger
}

// NewStore validates the configuration and selects the manifest codec from the file extension.
func NewStore(configuration StoreConfiguration) (*Store, error) {
	rootDirectory := strings.TrimSpace(configuration.RootDirectory)
	if len(rootDirectory) == 0 {
		return nil, ErrRootDirectoryRequired
	}

	manifestFileName := strings.TrimSpace(configuration.ManifestFileName)
	if len(manifestFileName) == 0 {
		manifestFileName = DefaultManifestFileName
	}
	if filepath.Base(manifestFileName) != manifestFileName || strings.HasPrefix(manifestFileName, StagingDirectoryPrefix) {
		return nil, fmt.Errorf(manifestNameInvalidTemplate, manifestFileName)
	}

	manifestCodec, codecError := codecForPath(manifestFileName)
	if codecError != nil {
		return nil, codecError
	}

	fileSystem := configuration.FileSystem
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cleanedRoot := filepath.Clean(rootDirectory)
	return &Store{
		rootDirectory: cleanedRoot,
		manifestPath:  filepath.Join(cleanedRoot, manifestFileName),
		lockTimeout:   configuration.LockTimeout,
		codec:         manifestCodec,
		fileSystem:    fileSystem,
		logger:        logger,
	}, nil
}

// RootDirectory returns the managed root.
func (store *Store) RootDirectory() string {
	return store.rootDirectory
}

// ManifestPath returns the manifest file location.
func (store *Store) ManifestPath() string {
	return store.manifestPath
}

// WorkspacePath returns the clone directory for a dependency name.
func (store *Store) WorkspacePath(name string) string {
	return filepath.Join(store.rootDirectory, name)
}

// ValidateWorkspaceName rejects dependency names that are invalid or would collide with the
// manifest, its lock file or a staging directory.
func (store *Store) ValidateWorkspaceName(name string) error {
	if nameError := ValidateDependencyName(name); nameError != nil {
		return nameError
	}
	manifestFileName := filepath.Base(store.manifestPath)
	if name == manifestFileName || name == manifestFileName+lockFileSuffixConstant || name == manifestFileName+temporaryManifestSuffixConstant || strings.HasPrefix(name, StagingDirectoryPrefix) {
		return fmt.Errorf(reservedNameTemplateConstant, ErrInvalidDependencyName, name)
	}
	return nil
}

// Initialized reports whether the manifest file exists.
func (store *Store) Initialized() bool {
	fileInfo, statError := store.fileSystem.Stat(store.manifestPath)
	return statError == nil && fileInfo.Mode().IsRegular()
}

// Initialize creates the root and an empty manifest when the manifest is missing. It reports
// whether anything was created.
func (store *Store) Initialize() (bool, error) {
	_, statError := store.fileSystem.Stat(store.manifestPath)
	if statError == nil {
		return false, nil
	}
	if !errors.Is(statError, fs.ErrNotExist) {
		return false, &IOError{Operation: ioOperationInspectConstant, Path: store.manifestPath, Cause: statError}
	}

	if mkdirError := store.fileSystem.MkdirAll(store.rootDirectory, rootDirectoryPermissionsConstant); mkdirError != nil {
		return false, &IOError{Operation: ioOperationCreateConstant, Path: store.rootDirectory, Cause: mkdirError}
	}
	if saveError := store.Save(NewManifest()); saveError != nil {
		return false, saveError
	}

	store.logger.Debug(manifestInitializedLogMessage, zap.String(logFieldManifestPathConstant, store.manifestPath))
	return true, nil
}

// Load reads and validates the manifest.
func (store *Store) Load() (Manifest, error) {
	contents, readError := store.fileSystem.ReadFile(store.manifestPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return Manifest{}, ErrNotInitialized
		}
		return Manifest{}, &IOError{Operation: ioOperationReadConstant, Path: store.manifestPath, Cause: readError}
	}

	document, decodeError := store.codec.decode(contents)
	if decodeError != nil {
		return Manifest{}, &CorruptError{Path: store.manifestPath, Cause: decodeError}
	}

	manifest, conversionError := manifestFromDocument(document)
	if conversionError != nil {
		return Manifest{}, &CorruptError{Path: store.manifestPath, Cause: conversionError}
	}

	if manifest.Version != CurrentSchemaVersion {
		store.logger.Warn(
			schemaMismatchLogMessageConstant,
			zap.String(logFieldManifestPathConstant, store.manifestPath),
			zap.String(logFieldManifestVersionConstant, manifest.Version),
			zap.String(logFieldSupportedVersionConstant, CurrentSchemaVersion),
		)
	}
	return manifest, nil
}

// Save replaces the manifest file atomically. A manifest without a version is stamped with
// CurrentSchemaVersion.
func (store *Store) Save(manifest Manifest) error {
	if validationError := manifest.Validate(); validationError != nil {
		return validationError
	}
	if len(manifest.Version) == 0 {
		manifest.Version = CurrentSchemaVersion
	}

	encoded, encodeError := store.codec.encode(documentFromManifest(manifest))
	if encodeError != nil {
		return encodeError
	}

	temporaryPath := store.manifestPath + temporaryManifestSuffixConstant
	if writeError := store.fileSystem.WriteFile(temporaryPath, encoded, manifestFilePermissionsConstant); writeError != nil {
		return &IOError{Operation: ioOperationWriteConstant, Path: temporaryPath, Cause: writeError}
	}
	if renameError := store.fileSystem.Rename(temporaryPath, store.manifestPath); renameError != nil {
		_ = store.fileSystem.RemoveAll(temporaryPath)
		return &IOError{Operation: ioOperationReplaceConstant, Path: store.manifestPath, Cause: renameError}
	}
	return nil
}

// Destroy removes the root directory and everything beneath it.
func (store *Store) Destroy() error {
	if removeError := store.fileSystem.RemoveAll(store.rootDirectory); removeError != nil {
		return &IOError{Operation: ioOperationRemoveConstant, Path: store.rootDirectory, Cause: removeError}
	}
	return nil
}
