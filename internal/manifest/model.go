package manifest

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// CurrentSchemaVersion is written into every manifest created by this build.
	CurrentSchemaVersion = "0.1.0"

	currentDirectoryNameConstant          = "."
	parentDirectoryNameConstant           = ".."
	pathSeparatorCharactersConstant       = `/\`
	invalidDependencyNameTemplateConstant = "%w: %q"
	emptySourceTemplateConstant           = "dependency %q has an empty source"
	emptyBranchTemplateConstant           = "pinned dependency %q has an empty branch"
	unknownVariantTemplateConstant        = "dependency %q has an unsupported variant %T"
)

// Dependency is a declared external repository. The only implementations are TrackingDependency
// and PinnedDependency.
type Dependency interface {
	// Source returns the locator the dependency was vended from.
	Source() string
	isDependency()
}

// TrackingDependency follows the upstream default branch.
type TrackingDependency struct {
	Location string
}

// Source returns the locator the dependency was vended from.
func (dependency TrackingDependency) Source() string {
	return dependency.Location
}

func (TrackingDependency) isDependency() {}

// PinnedDependency follows a specific upstream branch.
type PinnedDependency struct {
	Location string
	Branch   string
}

// Source returns the locator the dependency was vended from.
func (dependency PinnedDependency) Source() string {
	return dependency.Location
}

func (PinnedDependency) isDependency() {}

// Manifest is the complete set of declared dependencies keyed by name.
type Manifest struct {
	Version      string
	Dependencies map[string]Dependency
}

// NewManifest returns an empty manifest stamped with CurrentSchemaVersion.
func NewManifest() Manifest {
	return Manifest{Version: CurrentSchemaVersion, Dependencies: map[string]Dependency{}}
}

// Names returns the declared dependency names in ascending order.
func (manifest Manifest) Names() []string {
	names := make([]string, 0, len(manifest.Dependencies))
	for name := range manifest.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the dependency declared under name.
func (manifest Manifest) Lookup(name string) (Dependency, bool) {
	dependency, exists := manifest.Dependencies[name]
	return dependency, exists
}

// Put declares dependency under name, overwriting any previous declaration, which is returned.
func (manifest *Manifest) Put(name string, dependency Dependency) (Dependency, bool) {
	if manifest.Dependencies == nil {
		manifest.Dependencies = map[string]Dependency{}
	}
	previous, replaced := manifest.Dependencies[name]
	manifest.Dependencies[name] = dependency
	return previous, replaced
}

// Delete removes the declaration under name and reports whether it existed.
func (manifest *Manifest) Delete(name string) bool {
	if _, exists := manifest.Dependencies[name]; !exists {
		return false
	}
	delete(manifest.Dependencies, name)
	return true
}

// Validate checks every declaration: names must be usable as directory names, sources must be
// present and pinned dependencies must name a branch.
func (manifest Manifest) Validate() error {
	for _, name := range manifest.Names() {
		if nameError := ValidateDependencyName(name); nameError != nil {
			return nameError
		}
		if dependencyError := validateDependency(name, manifest.Dependencies[name]); dependencyError != nil {
			return dependencyError
		}
	}
	return nil
}

// ValidateDependencyName rejects names that cannot be used as a single directory under the root.
func ValidateDependencyName(name string) error {
	trimmedName := strings.TrimSpace(name)
	if len(trimmedName) == 0 || trimmedName != name {
		return fmt.Errorf(invalidDependencyNameTemplateConstant, ErrInvalidDependencyName, name)
	}
	if name == currentDirectoryNameConstant || name == parentDirectoryNameConstant {
		return fmt.Errorf(invalidDependencyNameTemplateConstant, ErrInvalidDependencyName, name)
	}
	if strings.ContainsAny(name, pathSeparatorCharactersConstant) {
		return fmt.Errorf(invalidDependencyNameTemplateConstant, ErrInvalidDependencyName, name)
	}
	return nil
}

func validateDependency(name string, dependency Dependency) error {
	switch typedDependency := dependency.(type) {
	case TrackingDependency:
		if len(strings.TrimSpace(typedDependency.Location)) == 0 {
			return fmt.Errorf(emptySourceTemplateConstant, name)
		}
	case PinnedDependency:
		if len(strings.TrimSpace(typedDependency.Location)) == 0 {
			return fmt.Errorf(emptySourceTemplateConstant, name)
		}
		if len(strings.TrimSpace(typedDependency.Branch)) == 0 {
			return fmt.Errorf(emptyBranchTemplateConstant, name)
		}
	default:
		return fmt.Errorf(unknownVariantTemplateConstant, name, dependency)
	}
	return nil
}
