package vendoring_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/temirov/vendman/internal/scm"
)

const (
	fakeSourceFileNameConstant = "SOURCE"
	fakeDefaultBranchConstant  = "main"
	fakeDefaultCommitConstant  = "0123456789abcdef0123456789abcdef01234567"
	fakeFilePermissions        = 0o644
	fakeDirectoryPermissions   = 0o755
)

type fetchCall struct {
	name       string
	remoteName string
	references []string
}

type checkoutCall struct {
	name       string
	remoteName string
	branch     string
}

type cloneCall struct {
	locator    string
	remoteName string
	reference  string
}

// fakeProvider clones by writing the locator into a marker file and answers everything else from
// per-dependency tables keyed by workspace directory name.
type fakeProvider struct {
	mutex sync.Mutex

	cloneFailures    map[string]error
	fetchFailures    map[string]error
	checkoutFailures map[string]error
	blockingFetches  map[string]bool
	heads            map[string]scm.Head
	fetchDelay       time.Duration

	clones         []cloneCall
	fetches        []fetchCall
	checkouts      []checkoutCall
	activeFetches  int
	maximumFetches int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		cloneFailures:    map[string]error{},
		fetchFailures:    map[string]error{},
		checkoutFailures: map[string]error{},
		blockingFetches:  map[string]bool{},
		heads:            map[string]scm.Head{},
	}
}

func (provider *fakeProvider) Clone(executionContext context.Context, locator string, destination string, remoteName string, initialReference string) (scm.RepositoryHandle, error) {
	provider.mutex.Lock()
	provider.clones = append(provider.clones, cloneCall{locator: locator, remoteName: remoteName, reference: initialReference})
	cloneFailure := provider.cloneFailures[locator]
	provider.mutex.Unlock()

	if mkdirError := os.MkdirAll(destination, fakeDirectoryPermissions); mkdirError != nil {
		return nil, mkdirError
	}
	if cloneFailure != nil {
		return nil, cloneFailure
	}
	if writeError := os.WriteFile(filepath.Join(destination, fakeSourceFileNameConstant), []byte(locator), fakeFilePermissions); writeError != nil {
		return nil, writeError
	}
	return scm.WorkingCopy{Directory: destination}, nil
}

func (provider *fakeProvider) Open(executionContext context.Context, path string) (scm.RepositoryHandle, error) {
	if _, statError := os.Stat(filepath.Join(path, fakeSourceFileNameConstant)); statError != nil {
		return nil, scm.NewProviderError(scm.KindRepositoryMissing, scm.OperationOpen, path, statError)
	}
	return scm.WorkingCopy{Directory: path}, nil
}

func (provider *fakeProvider) Fetch(executionContext context.Context, handle scm.RepositoryHandle, remoteName string, references []string) error {
	name := filepath.Base(handle.Path())

	provider.mutex.Lock()
	provider.fetches = append(provider.fetches, fetchCall{name: name, remoteName: remoteName, references: references})
	provider.activeFetches++
	if provider.activeFetches > provider.maximumFetches {
		provider.maximumFetches = provider.activeFetches
	}
	fetchFailure := provider.fetchFailures[name]
	blocking := provider.blockingFetches[name]
	fetchDelay := provider.fetchDelay
	provider.mutex.Unlock()

	defer func() {
		provider.mutex.Lock()
		provider.activeFetches--
		provider.mutex.Unlock()
	}()

	if blocking {
		<-executionContext.Done()
		return scm.NewProviderError(scm.KindNetworkError, scm.OperationFetch, handle.Path(), executionContext.Err())
	}
	if fetchDelay > 0 {
		time.Sleep(fetchDelay)
	}
	return fetchFailure
}

func (provider *fakeProvider) CheckoutHead(executionContext context.Context, handle scm.RepositoryHandle, remoteName string, branch string) error {
	name := filepath.Base(handle.Path())

	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	provider.checkouts = append(provider.checkouts, checkoutCall{name: name, remoteName: remoteName, branch: branch})
	return provider.checkoutFailures[name]
}

func (provider *fakeProvider) CurrentHead(executionContext context.Context, handle scm.RepositoryHandle) (scm.Head, error) {
	name := filepath.Base(handle.Path())

	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	if head, exists := provider.heads[name]; exists {
		return head, nil
	}
	return scm.Head{Reference: fakeDefaultBranchConstant, Commit: fakeDefaultCommitConstant}, nil
}

func (provider *fakeProvider) recordedFetches() map[string]fetchCall {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	recorded := make(map[string]fetchCall, len(provider.fetches))
	for _, call := range provider.fetches {
		recorded[call.name] = call
	}
	return recorded
}

func (provider *fakeProvider) recordedCheckouts() map[string]checkoutCall {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	recorded := make(map[string]checkoutCall, len(provider.checkouts))
	for _, call := range provider.checkouts {
		recorded[call.name] = call
	}
	return recorded
}
