package workspace

import (
	"context"

	"github.com/temirov/canopy/internal/checkout"
	"github.com/temirov/canopy/internal/discovery"
)

// Scanner supplies the filesystem and git lookups the model is populated from.
type Scanner interface {
	Discover(executionContext context.Context, root string) (discovery.Discovery, error)
	ParseModule(descriptorPath string) (Module, error)
	CheckoutOf(path string) (checkout.Checkout, bool, error)
	SubmoduleRoot(path string) (checkout.Checkout, bool, error)
}

// GitScanner walks the filesystem, parses pom.xml files and resolves git working trees.
type GitScanner struct {
	discoverer *discovery.FilesystemWorkspaceDiscoverer
	locator    *checkout.Locator
}

// NewGitScanner constructs a scanner whose checkouts run git through the executor.
func NewGitScanner(executor checkout.GitExecutor) (*GitScanner, error) {
	locator, locatorError := checkout.NewLocator(executor)
	if locatorError != nil {
		return nil, locatorError
	}
	return &GitScanner{discoverer: discovery.NewFilesystemWorkspaceDiscoverer(), locator: locator}, nil
}

// Discover lists module descriptors and working trees below root.
func (scanner *GitScanner) Discover(executionContext context.Context, root string) (discovery.Discovery, error) {
	return scanner.discoverer.Discover(executionContext, root)
}

// ParseModule parses a pom.xml.
func (scanner *GitScanner) ParseModule(descriptorPath string) (Module, error) {
	return ParseModuleDescriptor(descriptorPath)
}

// CheckoutOf resolves the nearest working tree enclosing path.
func (scanner *GitScanner) CheckoutOf(path string) (checkout.Checkout, bool, error) {
	gitCheckout, found, lookupError := scanner.locator.CheckoutOf(path)
	if lookupError != nil || !found {
		return nil, false, lookupError
	}
	return gitCheckout, true, nil
}

// SubmoduleRoot resolves the outermost working tree enclosing path.
func (scanner *GitScanner) SubmoduleRoot(path string) (checkout.Checkout, bool, error) {
	gitCheckout, found, lookupError := scanner.locator.SubmoduleRoot(path)
	if lookupError != nil || !found {
		return nil, false, lookupError
	}
	return gitCheckout, true, nil
}
