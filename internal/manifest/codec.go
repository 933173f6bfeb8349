package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	tomlExtensionConstant          = ".toml"
	yamlExtensionConstant          = ".yaml"
	ymlExtensionConstant           = ".yml"
	jsonExtensionConstant          = ".json"
	jsonIndentConstant             = "  "
	yamlIndentConstant             = 2
	unsupportedFormatTemplate      = "%w: %q"
	undecodedKeysTemplateConstant  = "unknown keys: %s"
	undecodedKeysSeparatorConstant = ", "
	variantCountTemplateConstant   = "dependency %q must declare exactly one of tracking or pinned"
	encodeManifestErrorTemplate    = "unable to encode manifest: %w"
	trailingNewlineConstant        = "\n"
)

type manifestDocument struct {
	Version      string                        `toml:"version" yaml:"version" json:"version"`
	Dependencies map[string]dependencyDocument `toml:"dependencies" yaml:"dependencies" json:"dependencies"`
}

type dependencyDocument struct {
	Tracking *trackingDocument `toml:"tracking,omitempty" yaml:"tracking,omitempty" json:"tracking,omitempty"`
	Pinned   *pinnedDocument   `toml:"pinned,omitempty" yaml:"pinned,omitempty" json:"pinned,omitempty"`
}

type trackingDocument struct {
	Source string `toml:"source" yaml:"source" json:"source"`
}

type pinnedDocument struct {
	Source string `toml:"source" yaml:"source" json:"source"`
	Branch string `toml:"branch" yaml:"branch" json:"branch"`
}

type codec interface {
	encode(document manifestDocument) ([]byte, error)
	decode(data []byte) (manifestDocument, error)
}

func codecForPath(manifestPath string) (codec, error) {
	switch strings.ToLower(filepath.Ext(manifestPath)) {
	case tomlExtensionConstant:
		return tomlCodec{}, nil
	case yamlExtensionConstant, ymlExtensionConstant:
		return yamlCodec{}, nil
	case jsonExtensionConstant:
		return jsonCodec{}, nil
	default:
		return nil, fmt.Errorf(unsupportedFormatTemplate, ErrUnsupportedFormat, filepath.Base(manifestPath))
	}
}

type tomlCodec struct{}

func (tomlCodec) encode(document manifestDocument) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := toml.NewEncoder(&buffer)
	encoder.Indent = ""
	if encodeError := encoder.Encode(document); encodeError != nil {
		return nil, fmt.Errorf(encodeManifestErrorTemplate, encodeError)
	}
	return buffer.Bytes(), nil
}

func (tomlCodec) decode(data []byte) (manifestDocument, error) {
	document := manifestDocument{}
	metadata, decodeError := toml.Decode(string(data), &document)
	if decodeError != nil {
		return manifestDocument{}, decodeError
	}
	if undecodedKeys := metadata.Undecoded(); len(undecodedKeys) > 0 {
		keyNames := make([]string, 0, len(undecodedKeys))
		for _, undecodedKey := range undecodedKeys {
			keyNames = append(keyNames, undecodedKey.String())
		}
		sort.Strings(keyNames)
		return manifestDocument{}, fmt.Errorf(undecodedKeysTemplateConstant, strings.Join(keyNames, undecodedKeysSeparatorConstant))
	}
	return document, nil
}

type yamlCodec struct{}

func (yamlCodec) encode(document manifestDocument) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(document); encodeError != nil {
		return nil, fmt.Errorf(encodeManifestErrorTemplate, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return nil, fmt.Errorf(encodeManifestErrorTemplate, closeError)
	}
	return buffer.Bytes(), nil
}

func (yamlCodec) decode(data []byte) (manifestDocument, error) {
	document := manifestDocument{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if decodeError := decoder.Decode(&document); decodeError != nil && !errors.Is(decodeError, io.EOF) {
		return manifestDocument{}, decodeError
	}
	return document, nil
}

type jsonCodec struct{}

func (jsonCodec) encode(document manifestDocument) ([]byte, error) {
	encoded, encodeError := json.MarshalIndent(document, "", jsonIndentConstant)
	if encodeError != nil {
		return nil, fmt.Errorf(encodeManifestErrorTemplate, encodeError)
	}
	return append(encoded, trailingNewlineConstant...), nil
}

func (jsonCodec) decode(data []byte) (manifestDocument, error) {
	document := manifestDocument{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if decodeError := decoder.Decode(&document); decodeError != nil && !errors.Is(decodeError, io.EOF) {
		return manifestDocument{}, decodeError
	}
	return document, nil
}

func documentFromManifest(manifest Manifest) manifestDocument {
	document := manifestDocument{Version: manifest.Version, Dependencies: make(map[string]dependencyDocument, len(manifest.Dependencies))}
	for name, dependency := range manifest.Dependencies {
		switch typedDependency := dependency.(type) {
		case TrackingDependency:
			document.Dependencies[name] = dependencyDocument{Tracking: &trackingDocument{Source: typedDependency.Location}}
		case PinnedDependency:
			document.Dependencies[name] = dependencyDocument{Pinned: &pinnedDocument{Source: typedDependency.Location, Branch: typedDependency.Branch}}
		}
	}
	return document
}

func manifestFromDocument(document manifestDocument) (Manifest, error) {
	manifest := Manifest{Version: document.Version, Dependencies: make(map[string]Dependency, len(document.Dependencies))}
	for name, record := range document.Dependencies {
		switch {
		case record.Tracking != nil && record.Pinned == nil:
			manifest.Dependencies[name] = TrackingDependency{Location: record.Tracking.Source}
		case record.Pinned != nil && record.Tracking == nil:
			manifest.Dependencies[name] = PinnedDependency{Location: record.Pinned.Source, Branch: record.Pinned.Branch}
		default:
			return Manifest{}, fmt.Errorf(variantCountTemplateConstant, name)
		}
	}
	if validationError := manifest.Validate(); validationError != nil {
		return Manifest{}, validationError
	}
	return manifest, nil
}
