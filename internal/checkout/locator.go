package checkout

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	gitconfig "github.com/go-git/go-git/v5/config"
)

const (
	gitMetadataEntryNameConstant         = ".git"
	gitModulesFileNameConstant           = ".gitmodules"
	canonicalPathErrorTemplateConstant   = "unable to resolve canonical path for %s: %w"
	gitModulesReadErrorTemplateConstant  = "unable to read %s: %w"
	gitModulesParseErrorTemplateConstant = "unable to parse %s: %w"
)

// Locator maps filesystem paths to the git working trees enclosing them.
type Locator struct {
	executor GitExecutor
}

// NewLocator constructs a Locator whose checkouts run git through the executor.
func NewLocator(executor GitExecutor) (*Locator, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Locator{executor: executor}, nil
}

// CheckoutOf returns the nearest working tree containing path, reporting false when there is none.
func (locator *Locator) CheckoutOf(path string) (*GitCheckout, bool, error) {
	workingTreePath, found, lookupError := NearestWorkingTree(path)
	if lookupError != nil || !found {
		return nil, false, lookupError
	}
	checkout, creationError := NewGitCheckout(workingTreePath, locator.executor)
	if creationError != nil {
		return nil, false, creationError
	}
	return checkout, true, nil
}

// SubmoduleRoot returns the outermost superproject of the working tree containing path.
func (locator *Locator) SubmoduleRoot(path string) (*GitCheckout, bool, error) {
	workingTreePath, found, lookupError := OutermostWorkingTree(path)
	if lookupError != nil || !found {
		return nil, false, lookupError
	}
	checkout, creationError := NewGitCheckout(workingTreePath, locator.executor)
	if creationError != nil {
		return nil, false, creationError
	}
	return checkout, true, nil
}

// CanonicalPath returns the absolute path with symbolic links resolved.
func CanonicalPath(path string) (string, error) {
	absolutePath, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		return "", fmt.Errorf(canonicalPathErrorTemplateConstant, path, absoluteError)
	}
	resolvedPath, resolveError := filepath.EvalSymlinks(absolutePath)
	if resolveError != nil {
		return "", fmt.Errorf(canonicalPathErrorTemplateConstant, path, resolveError)
	}
	return resolvedPath, nil
}

// NearestWorkingTree walks up from path to the first directory holding a .git directory or file.
func NearestWorkingTree(path string) (string, bool, error) {
	workingTrees, collectError := enclosingWorkingTrees(path)
	if collectError != nil || len(workingTrees) == 0 {
		return "", false, collectError
	}
	return workingTrees[0], true, nil
}

// OutermostWorkingTree walks up from the nearest working tree containing path while the
// enclosing working tree registers the current one as a submodule in its .gitmodules.
// An unrelated repository surrounding path ends the walk.
func OutermostWorkingTree(path string) (string, bool, error) {
	workingTrees, collectError := enclosingWorkingTrees(path)
	if collectError != nil || len(workingTrees) == 0 {
		return "", false, collectError
	}

	outermost := workingTrees[0]
	for _, enclosing := range workingTrees[1:] {
		registered, registrationError := RegistersSubmodule(enclosing, outermost)
		if registrationError != nil {
			return "", false, registrationError
		}
		if !registered {
			break
		}
		outermost = enclosing
	}
	return outermost, true, nil
}

// RegistersSubmodule reports whether the .gitmodules of superprojectPath declares a submodule at submodulePath.
func RegistersSubmodule(superprojectPath string, submodulePath string) (bool, error) {
	relativePath, relativeError := filepath.Rel(superprojectPath, submodulePath)
	if relativeError != nil {
		return false, nil
	}

	modulesPath := filepath.Join(superprojectPath, gitModulesFileNameConstant)
	contents, readError := os.ReadFile(modulesPath)
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf(gitModulesReadErrorTemplateConstant, modulesPath, readError)
	}

	modules := gitconfig.NewModules()
	if parseError := modules.Unmarshal(contents); parseError != nil {
		return false, fmt.Errorf(gitModulesParseErrorTemplateConstant, modulesPath, parseError)
	}

	wanted := path.Clean(filepath.ToSlash(relativePath))
	for _, submodule := range modules.Submodules {
		if path.Clean(submodule.Path) == wanted {
			return true, nil
		}
	}
	return false, nil
}

func enclosingWorkingTrees(path string) ([]string, error) {
	canonicalPath, canonicalError := CanonicalPath(path)
	if canonicalError != nil {
		return nil, canonicalError
	}

	directory := canonicalPath
	if information, statError := os.Stat(canonicalPath); statError == nil && !information.IsDir() {
		directory = filepath.Dir(canonicalPath)
	}

	var workingTrees []string
	for {
		if _, statError := os.Stat(filepath.Join(directory, gitMetadataEntryNameConstant)); statError == nil {
			workingTrees = append(workingTrees, directory)
		}

		parent := filepath.Dir(directory)
		if parent == directory {
			return workingTrees, nil
		}
		directory = parent
	}
}
