package workspace

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/canopy/internal/checkout"
)

const (
	defaultPackagingConstant                  = "jar"
	readDescriptorErrorTemplateConstant       = "unable to read module descriptor %s: %w"
	decodeDescriptorErrorTemplateConstant     = "unable to decode module descriptor %s: %w"
	incompleteDescriptorErrorTemplateConstant = "module descriptor %s: %w"
	coordinatesSeparatorConstant              = ":"
	missingArtifactIDMessageConstant          = "artifactId is missing"
	missingGroupIDMessageConstant             = "groupId is missing and no parent declares one"
)

var (
	errMissingArtifactID = errors.New(missingArtifactIDMessageConstant)
	errMissingGroupID    = errors.New(missingGroupIDMessageConstant)
)

// Coordinates identify a module within a scan.
type Coordinates struct {
	GroupID    string
	ArtifactID string
}

// String renders groupId:artifactId.
func (coordinates Coordinates) String() string {
	return coordinates.GroupID + coordinatesSeparatorConstant + coordinates.ArtifactID
}

// Module is one buildable unit described by a pom.xml.
type Module struct {
	GroupID    string
	ArtifactID string
	Version    string
	Packaging  string
	Path       string
	Checkout   checkout.Checkout
}

// Coordinates returns the identity of the module.
func (module Module) Coordinates() Coordinates {
	return Coordinates{GroupID: module.GroupID, ArtifactID: module.ArtifactID}
}

// Directory returns the directory holding the descriptor.
func (module Module) Directory() string {
	return filepath.Dir(module.Path)
}

// Family returns the family derived from the groupId.
func (module Module) Family() Family {
	return FamilyOf(module.GroupID)
}

// String renders groupId:artifactId:version.
func (module Module) String() string {
	return module.Coordinates().String() + coordinatesSeparatorConstant + module.Version
}

type projectDescriptor struct {
	XMLName    xml.Name         `xml:"project"`
	GroupID    string           `xml:"groupId"`
	ArtifactID string           `xml:"artifactId"`
	Version    string           `xml:"version"`
	Packaging  string           `xml:"packaging"`
	Parent     parentDescriptor `xml:"parent"`
}

type parentDescriptor struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

// ParseModuleDescriptor reads a pom.xml. The groupId and version fall back to the parent declaration
// and the packaging defaults to jar.
func ParseModuleDescriptor(descriptorPath string) (Module, error) {
	contents, readError := os.ReadFile(descriptorPath)
	if readError != nil {
		return Module{}, fmt.Errorf(readDescriptorErrorTemplateConstant, descriptorPath, readError)
	}

	var descriptor projectDescriptor
	if decodeError := xml.Unmarshal(contents, &descriptor); decodeError != nil {
		return Module{}, fmt.Errorf(decodeDescriptorErrorTemplateConstant, descriptorPath, decodeError)
	}

	module := Module{
		GroupID:    strings.TrimSpace(descriptor.GroupID),
		ArtifactID: strings.TrimSpace(descriptor.ArtifactID),
		Version:    strings.TrimSpace(descriptor.Version),
		Packaging:  strings.TrimSpace(descriptor.Packaging),
		Path:       descriptorPath,
	}
	if len(module.GroupID) == 0 {
		module.GroupID = strings.TrimSpace(descriptor.Parent.GroupID)
	}
	if len(module.Version) == 0 {
		module.Version = strings.TrimSpace(descriptor.Parent.Version)
	}
	if len(module.Packaging) == 0 {
		module.Packaging = defaultPackagingConstant
	}

	if len(module.ArtifactID) == 0 {
		return Module{}, fmt.Errorf(incompleteDescriptorErrorTemplateConstant, descriptorPath, errMissingArtifactID)
	}
	if len(module.GroupID) == 0 {
		return Module{}, fmt.Errorf(incompleteDescriptorErrorTemplateConstant, descriptorPath, errMissingGroupID)
	}
	return module, nil
}
