package vendoring

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/vendman/internal/filesystem"
	"github.com/temirov/vendman/internal/gitrepo"
	"github.com/temirov/vendman/internal/manifest"
	"github.com/temirov/vendman/internal/scm"
)

const (
	stagingPatternSuffixConstant             = "-*"
	notDeclaredTemplateConstant              = "%w: %q"
	unsupportedDependencyTemplateConstant    = "%w: %T"
	ioOperationStageConstant                 = "stage"
	ioOperationReplaceConstant               = "replace"
	ioOperationRemoveConstant                = "remove"
	ioOperationInspectConstant               = "inspect"
	vendStartedLogMessageConstant            = "vending dependency"
	vendCompletedLogMessageConstant          = "vended dependency"
	vendReplacedLogMessageConstant           = "replaced existing dependency declaration"
	stagingCleanupLogMessageConstant         = "unable to remove staging directory"
	workspaceRestoreFailedLogMessageConstant = "unable to restore previous workspace"
	parkedWorkspaceSuffixConstant            = ".previous"
	updateCompletedLogMessageConstant        = "updated dependency"
	updateFailedLogMessageConstant           = "dependency update failed"
	updateDetachedLogMessageConstant         = "dependency is detached; fetched without checkout"
	listFailedLogMessageConstant             = "unable to inspect dependency"
	removeCompletedLogMessageConstant        = "removed dependency"
	cleanCompletedLogMessageConstant         = "removed vendman root"
	lockReleaseFailedLogMessageConstant      = "unable to release manifest lock"
	logFieldNameConstant                     = "name"
	logFieldLocatorConstant                  = "locator"
	logFieldBranchConstant                   = "branch"
	logFieldPathConstant                     = "path"
	logFieldRootConstant                     = "root"
	logFieldPreviousSourceConstant           = "previous_source"
	logFieldWorkspaceRemovedConstant         = "workspace_removed"
	defaultServiceConcurrencyConstant        = 4
)

// ManifestStore persists and locks the manifest of one vendman root.
type ManifestStore interface {
	RootDirectory() string
	WorkspacePath(name string) string
	ValidateWorkspaceName(name string) error
	Initialized() bool
	Initialize() (bool, error)
	Load() (manifest.Manifest, error)
	Save(manifest manifest.Manifest) error
	Destroy() error
	Lock(executionContext context.Context) (*manifest.ManifestLock, error)
}

// Dependencies enumerates the collaborators of the vendoring service.
type Dependencies struct {
	Store      ManifestStore
	Provider   scm.Provider
	FileSystem filesystem.FileSystem
	Logger     *zap.Logger
}

// Settings tunes provider calls. A zero OperationTimeout disables the per-call deadline.
type Settings struct {
	RemoteName       string
	OperationTimeout time.Duration
	Concurrency      int
}

// InitializeResult reports the outcome of Initialize.
type InitializeResult struct {
	RootDirectory string
	Created       bool
}

// VendOptions selects what to vend. An empty Branch tracks the upstream default branch.
type VendOptions struct {
	Locator string
	Branch  string
}

// VendResult describes a vended dependency.
type VendResult struct {
	Name     string
	Branch   string
	Replaced bool
}

// UpdateOutcome is the result of synchronizing one dependency. Reference is set for pinned
// dependencies; Failure is nil when the update succeeded.
type UpdateOutcome struct {
	Name      string
	Reference string
	Failure   error
}

// Succeeded reports whether the dependency was updated.
func (outcome UpdateOutcome) Succeeded() bool {
	return outcome.Failure == nil
}

// ListRow describes the checked-out state of one dependency. Declared holds the pinned branch
// and is empty for tracking dependencies.
type ListRow struct {
	Name      string
	Source    string
	Declared  string
	Reference string
	Commit    string
	Failure   error
}

// RemoveResult describes a removed dependency.
type RemoveResult struct {
	Name             string
	WorkspaceRemoved bool
}

// Service runs vendman workflows.
type Service struct {
	store      ManifestStore
	provider   scm.Provider
	fileSystem filesystem.FileSystem
	logger     *zap.Logger
	settings   Settings
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies Dependencies, settings Settings) (*Service, error) {
	if dependencies.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	if dependencies.Provider == nil {
		return nil, ErrProviderNotConfigured
	}

	fileSystem := dependencies.FileSystem
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	normalizedSettings := settings
	normalizedSettings.RemoteName = strings.TrimSpace(settings.RemoteName)
	if len(normalizedSettings.RemoteName) == 0 {
		normalizedSettings.RemoteName = scm.DefaultRemoteName
	}
	if normalizedSettings.Concurrency <= 0 {
		normalizedSettings.Concurrency = defaultServiceConcurrencyConstant
	}

	return &Service{
		store:      dependencies.Store,
		provider:   dependencies.Provider,
		fileSystem: fileSystem,
		logger:     logger,
		settings:   normalizedSettings,
	}, nil
}

// Initialize creates the root and an empty manifest unless the manifest already exists.
func (service *Service) Initialize() (InitializeResult, error) {
	created, initializeError := service.store.Initialize()
	if initializeError != nil {
		return InitializeResult{}, initializeError
	}
	return InitializeResult{RootDirectory: service.store.RootDirectory(), Created: created}, nil
}

// Vend clones a dependency into the root and declares it in the manifest, replacing any
// existing dependency with the same name.
func (service *Service) Vend(executionContext context.Context, options VendOptions) (VendResult, error) {
	manifestLock, lockError := service.store.Lock(executionContext)
	if lockError != nil {
		return VendResult{}, lockError
	}
	defer service.releaseLock(manifestLock)

	currentManifest, loadError := service.store.Load()
	if loadError != nil {
		return VendResult{}, loadError
	}

	locator, parseError := gitrepo.ParseLocator(options.Locator)
	if parseError != nil {
		return VendResult{}, parseError
	}
	if nameError := service.store.ValidateWorkspaceName(locator.Name); nameError != nil {
		return VendResult{}, nameError
	}
	branch := strings.TrimSpace(options.Branch)

	service.logger.Info(
		vendStartedLogMessageConstant,
		zap.String(logFieldNameConstant, locator.Name),
		zap.String(logFieldLocatorConstant, locator.Original),
		zap.String(logFieldBranchConstant, branch),
	)

	stagingDirectory, stagingError := service.createStagingDirectory(locator.Name)
	if stagingError != nil {
		return VendResult{}, stagingError
	}
	defer service.removeStagingDirectory(stagingDirectory)

	clonePath := filepath.Join(stagingDirectory, locator.Name)
	callContext, cancel := service.operationContext(executionContext)
	_, cloneError := service.provider.Clone(callContext, locator.Original, clonePath, service.settings.RemoteName, branch)
	cancel()
	if cloneError != nil {
		return VendResult{}, &CloneFailedError{Name: locator.Name, Locator: locator.Original, Cause: cloneError}
	}

	previousWorkspace, swapError := service.swapWorkspace(stagingDirectory, locator.Name)
	if swapError != nil {
		return VendResult{}, swapError
	}

	var dependency manifest.Dependency = manifest.TrackingDependency{Location: locator.Original}
	if len(branch) > 0 {
		dependency = manifest.PinnedDependency{Location: locator.Original, Branch: branch}
	}
	previous, replaced := currentManifest.Put(locator.Name, dependency)
	if replaced {
		service.logger.Warn(
			vendReplacedLogMessageConstant,
			zap.String(logFieldNameConstant, locator.Name),
			zap.String(logFieldPreviousSourceConstant, previous.Source()),
		)
	}

	if saveError := service.store.Save(currentManifest); saveError != nil {
		service.restoreWorkspace(previousWorkspace, locator.Name)
		return VendResult{}, saveError
	}

	service.logger.Info(
		vendCompletedLogMessageConstant,
		zap.String(logFieldNameConstant, locator.Name),
		zap.String(logFieldPathConstant, service.store.WorkspacePath(locator.Name)),
	)
	return VendResult{Name: locator.Name, Branch: branch, Replaced: replaced}, nil
}

// Update synchronizes every declared dependency with its upstream. Failures are reported per
// dependency and never stop the others. Outcomes are sorted by name.
func (service *Service) Update(executionContext context.Context) ([]UpdateOutcome, error) {
	manifestLock, lockError := service.store.Lock(executionContext)
	if lockError != nil {
		return nil, lockError
	}
	defer service.releaseLock(manifestLock)

	currentManifest, loadError := service.store.Load()
	if loadError != nil {
		return nil, loadError
	}

	dependencyNames := currentManifest.Names()
	outcomes := make([]UpdateOutcome, len(dependencyNames))

	var workers errgroup.Group
	workers.SetLimit(service.settings.Concurrency)
	for dependencyIndex, dependencyName := range dependencyNames {
		dependency, _ := currentManifest.Lookup(dependencyName)
		workers.Go(func() error {
			outcomes[dependencyIndex] = service.updateDependency(executionContext, dependencyName, dependency)
			return nil
		})
	}
	_ = workers.Wait()

	return outcomes, nil
}

// List reports the checked-out reference and commit of every declared dependency, sorted by name.
func (service *Service) List(executionContext context.Context) ([]ListRow, error) {
	currentManifest, loadError := service.store.Load()
	if loadError != nil {
		return nil, loadError
	}

	dependencyNames := currentManifest.Names()
	rows := make([]ListRow, len(dependencyNames))

	var workers errgroup.Group
	workers.SetLimit(service.settings.Concurrency)
	for dependencyIndex, dependencyName := range dependencyNames {
		dependency, _ := currentManifest.Lookup(dependencyName)
		workers.Go(func() error {
			rows[dependencyIndex] = service.inspectDependency(executionContext, dependencyName, dependency)
			return nil
		})
	}
	_ = workers.Wait()

	return rows, nil
}

// Remove deletes a dependency from the manifest and removes its workspace.
func (service *Service) Remove(executionContext context.Context, name string) (RemoveResult, error) {
	manifestLock, lockError := service.store.Lock(executionContext)
	if lockError != nil {
		return RemoveResult{}, lockError
	}
	defer service.releaseLock(manifestLock)

	currentManifest, loadError := service.store.Load()
	if loadError != nil {
		return RemoveResult{}, loadError
	}

	trimmedName := strings.TrimSpace(name)
	if !currentManifest.Delete(trimmedName) {
		return RemoveResult{}, fmt.Errorf(notDeclaredTemplateConstant, ErrDependencyNotDeclared, trimmedName)
	}
	if saveError := service.store.Save(currentManifest); saveError != nil {
		return RemoveResult{}, saveError
	}

	workspacePath := service.store.WorkspacePath(trimmedName)
	workspaceRemoved := false
	if _, statError := service.fileSystem.Stat(workspacePath); statError == nil {
		if removeError := service.fileSystem.RemoveAll(workspacePath); removeError != nil {
			return RemoveResult{}, &manifest.IOError{Operation: ioOperationRemoveConstant, Path: workspacePath, Cause: removeError}
		}
		workspaceRemoved = true
	} else if !errors.Is(statError, fs.ErrNotExist) {
		return RemoveResult{}, &manifest.IOError{Operation: ioOperationInspectConstant, Path: workspacePath, Cause: statError}
	}

	service.logger.Info(
		removeCompletedLogMessageConstant,
		zap.String(logFieldNameConstant, trimmedName),
		zap.Bool(logFieldWorkspaceRemovedConstant, workspaceRemoved),
	)
	return RemoveResult{Name: trimmedName, WorkspaceRemoved: workspaceRemoved}, nil
}

// Clean removes the root with every workspace and the manifest.
func (service *Service) Clean(executionContext context.Context) error {
	if !service.store.Initialized() {
		return manifest.ErrNotInitialized
	}

	manifestLock, lockError := service.store.Lock(executionContext)
	if lockError != nil {
		return lockError
	}
	defer service.releaseLock(manifestLock)

	if destroyError := service.store.Destroy(); destroyError != nil {
		return destroyError
	}
	service.logger.Info(cleanCompletedLogMessageConstant, zap.String(logFieldRootConstant, service.store.RootDirectory()))
	return nil
}

func (service *Service) createStagingDirectory(name string) (string, error) {
	rootDirectory := service.store.RootDirectory()
	stagingDirectory, stagingError := service.fileSystem.MkdirTemp(rootDirectory, manifest.StagingDirectoryPrefix+name+stagingPatternSuffixConstant)
	if stagingError != nil {
		return "", &manifest.IOError{Operation: ioOperationStageConstant, Path: rootDirectory, Cause: stagingError}
	}
	return stagingDirectory, nil
}

func (service *Service) removeStagingDirectory(stagingDirectory string) {
	if removeError := service.fileSystem.RemoveAll(stagingDirectory); removeError != nil {
		service.logger.Warn(stagingCleanupLogMessageConstant, zap.String(logFieldPathConstant, stagingDirectory), zap.Error(removeError))
	}
}

// swapWorkspace moves the fresh clone into place. An existing workspace is parked inside the
// staging directory and its parked path returned, so it can be restored until the manifest is
// saved and is discarded with the staging directory afterwards.
func (service *Service) swapWorkspace(stagingDirectory string, name string) (string, error) {
	clonePath := filepath.Join(stagingDirectory, name)
	workspacePath := service.store.WorkspacePath(name)
	parkedPath := ""

	if _, statError := service.fileSystem.Stat(workspacePath); statError == nil {
		parkedPath = filepath.Join(stagingDirectory, name+parkedWorkspaceSuffixConstant)
		if parkError := service.fileSystem.Rename(workspacePath, parkedPath); parkError != nil {
			return "", &manifest.IOError{Operation: ioOperationReplaceConstant, Path: workspacePath, Cause: parkError}
		}
	} else if !errors.Is(statError, fs.ErrNotExist) {
		return "", &manifest.IOError{Operation: ioOperationInspectConstant, Path: workspacePath, Cause: statError}
	}

	if renameError := service.fileSystem.Rename(clonePath, workspacePath); renameError != nil {
		service.restoreWorkspace(parkedPath, name)
		return "", &manifest.IOError{Operation: ioOperationReplaceConstant, Path: workspacePath, Cause: renameError}
	}
	return parkedPath, nil
}

// restoreWorkspace puts a parked workspace back, or removes the workspace when none was parked.
func (service *Service) restoreWorkspace(parkedPath string, name string) {
	workspacePath := service.store.WorkspacePath(name)
	if removeError := service.fileSystem.RemoveAll(workspacePath); removeError != nil {
		service.logger.Warn(workspaceRestoreFailedLogMessageConstant, zap.String(logFieldPathConstant, workspacePath), zap.Error(removeError))
		return
	}
	if len(parkedPath) == 0 {
		return
	}
	if renameError := service.fileSystem.Rename(parkedPath, workspacePath); renameError != nil {
		service.logger.Warn(workspaceRestoreFailedLogMessageConstant, zap.String(logFieldPathConstant, workspacePath), zap.Error(renameError))
	}
}

func (service *Service) updateDependency(executionContext context.Context, name string, dependency manifest.Dependency) UpdateOutcome {
	outcome := UpdateOutcome{Name: name}
	if pinned, isPinned := dependency.(manifest.PinnedDependency); isPinned {
		outcome.Reference = pinned.Branch
	}

	outcome.Failure = service.synchronize(executionContext, name, dependency)
	if outcome.Failure != nil {
		service.logger.Warn(updateFailedLogMessageConstant, zap.String(logFieldNameConstant, name), zap.Error(outcome.Failure))
		return outcome
	}
	service.logger.Info(updateCompletedLogMessageConstant, zap.String(logFieldNameConstant, name), zap.String(logFieldBranchConstant, outcome.Reference))
	return outcome
}

func (service *Service) synchronize(executionContext context.Context, name string, dependency manifest.Dependency) error {
	handle, openError := service.open(executionContext, name)
	if openError != nil {
		return openError
	}

	switch typedDependency := dependency.(type) {
	case manifest.PinnedDependency:
		if fetchError := service.fetch(executionContext, handle, []string{typedDependency.Branch}); fetchError != nil {
			return fetchError
		}
		return service.checkout(executionContext, handle, typedDependency.Branch)
	case manifest.TrackingDependency:
		if fetchError := service.fetch(executionContext, handle, nil); fetchError != nil {
			return fetchError
		}
		head, headError := service.currentHead(executionContext, handle)
		if headError != nil {
			return headError
		}
		if head.Detached {
			service.logger.Debug(updateDetachedLogMessageConstant, zap.String(logFieldNameConstant, name))
			return nil
		}
		return service.checkout(executionContext, handle, head.Reference)
	default:
		return fmt.Errorf(unsupportedDependencyTemplateConstant, ErrUnsupportedDependency, dependency)
	}
}

func (service *Service) inspectDependency(executionContext context.Context, name string, dependency manifest.Dependency) ListRow {
	row := ListRow{Name: name, Source: dependency.Source()}
	if pinned, isPinned := dependency.(manifest.PinnedDependency); isPinned {
		row.Declared = pinned.Branch
	}

	handle, openError := service.open(executionContext, name)
	if openError != nil {
		row.Failure = openError
	} else if head, headError := service.currentHead(executionContext, handle); headError != nil {
		row.Failure = headError
	} else {
		row.Reference = head.Reference
		row.Commit = head.Commit
	}

	if row.Failure != nil {
		service.logger.Warn(listFailedLogMessageConstant, zap.String(logFieldNameConstant, name), zap.Error(row.Failure))
	}
	return row
}

func (service *Service) open(executionContext context.Context, name string) (scm.RepositoryHandle, error) {
	callContext, cancel := service.operationContext(executionContext)
	defer cancel()
	return service.provider.Open(callContext, service.store.WorkspacePath(name))
}

func (service *Service) fetch(executionContext context.Context, handle scm.RepositoryHandle, references []string) error {
	callContext, cancel := service.operationContext(executionContext)
	defer cancel()
	return service.provider.Fetch(callContext, handle, service.settings.RemoteName, references)
}

func (service *Service) checkout(executionContext context.Context, handle scm.RepositoryHandle, branch string) error {
	callContext, cancel := service.operationContext(executionContext)
	defer cancel()
	return service.provider.CheckoutHead(callContext, handle, service.settings.RemoteName, branch)
}

func (service *Service) currentHead(executionContext context.Context, handle scm.RepositoryHandle) (scm.Head, error) {
	callContext, cancel := service.operationContext(executionContext)
	defer cancel()
	return service.provider.CurrentHead(callContext, handle)
}

func (service *Service) operationContext(executionContext context.Context) (context.Context, context.CancelFunc) {
	if service.settings.OperationTimeout <= 0 {
		return context.WithCancel(executionContext)
	}
	return context.WithTimeout(executionContext, service.settings.OperationTimeout)
}

func (service *Service) releaseLock(manifestLock *manifest.ManifestLock) {
	if releaseError := manifestLock.Release(); releaseError != nil {
		service.logger.Warn(lockReleaseFailedLogMessageConstant, zap.Error(releaseError))
	}
}
