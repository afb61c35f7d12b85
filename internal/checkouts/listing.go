package checkouts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/temirov/canopy/internal/checkout"
)

// Supported listing formats.
const (
	OutputFormatText = "text"
	OutputFormatYAML = "yaml"
)

const (
	detailsParallelismConstant              = 4
	factErrorTemplateConstant               = "unable to describe %s: %w"
	unsupportedOutputFormatTemplateConstant = "unsupported output format %q"
	textBranchTemplateConstant              = " branch=%s"
	textDetachedConstant                    = " detached"
	textDirtyConstant                       = " dirty"
	textLineTerminatorConstant              = "\n"
)

// OutputFormats lists the supported listing encodings.
func OutputFormats() []string {
	return []string{OutputFormatText, OutputFormatYAML}
}

// FactSource answers the per-checkout questions shown by the detailed listing.
type FactSource interface {
	BranchFor(executionContext context.Context, target checkout.Checkout) (string, bool, error)
	IsDirty(executionContext context.Context, target checkout.Checkout) (bool, error)
	IsDetachedHead(executionContext context.Context, target checkout.Checkout) (bool, error)
}

// Details describe the branch and working tree state of a checkout.
type Details struct {
	Branch   string `yaml:"branch,omitempty"`
	Detached bool   `yaml:"detached"`
	Dirty    bool   `yaml:"dirty"`
}

// Entry is one listed checkout.
type Entry struct {
	Path    string   `yaml:"path"`
	Name    string   `yaml:"name"`
	Details *Details `yaml:"details,omitempty"`
}

// Describe builds listing entries in the order of the checkouts. Details are gathered concurrently when requested.
func Describe(executionContext context.Context, facts FactSource, checkouts []checkout.Checkout, withDetails bool) ([]Entry, error) {
	entries := make([]Entry, len(checkouts))
	for index, target := range checkouts {
		entries[index] = Entry{Path: target.Path(), Name: target.LoggingName()}
	}
	if !withDetails {
		return entries, nil
	}

	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(detailsParallelismConstant)
	for index, target := range checkouts {
		group.Go(func() error {
			details, detailsError := describeCheckout(groupContext, facts, target)
			if detailsError != nil {
				return fmt.Errorf(factErrorTemplateConstant, target.Path(), detailsError)
			}
			entries[index].Details = &details
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}
	return entries, nil
}

func describeCheckout(executionContext context.Context, facts FactSource, target checkout.Checkout) (Details, error) {
	branchName, onBranch, branchError := facts.BranchFor(executionContext, target)
	if branchError != nil {
		return Details{}, branchError
	}
	detached, detachedError := facts.IsDetachedHead(executionContext, target)
	if detachedError != nil {
		return Details{}, detachedError
	}
	dirty, dirtyError := facts.IsDirty(executionContext, target)
	if dirtyError != nil {
		return Details{}, dirtyError
	}
	if !onBranch {
		branchName = ""
	}
	return Details{Branch: branchName, Detached: detached, Dirty: dirty}, nil
}

// Render writes the entries in the requested format.
func Render(writer io.Writer, format string, entries []Entry) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", OutputFormatText:
		var builder strings.Builder
		for _, entry := range entries {
			builder.WriteString(entry.Path)
			if entry.Details != nil {
				if len(entry.Details.Branch) > 0 {
					fmt.Fprintf(&builder, textBranchTemplateConstant, entry.Details.Branch)
				}
				if entry.Details.Detached {
					builder.WriteString(textDetachedConstant)
				}
				if entry.Details.Dirty {
					builder.WriteString(textDirtyConstant)
				}
			}
			builder.WriteString(textLineTerminatorConstant)
		}
		_, writeError := io.WriteString(writer, builder.String())
		return writeError
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(2)
		if encodeError := encoder.Encode(entries); encodeError != nil {
			return encodeError
		}
		return encoder.Close()
	default:
		return fmt.Errorf(unsupportedOutputFormatTemplateConstant, format)
	}
}
