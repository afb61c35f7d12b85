package checkouts_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/canopy/internal/checkout"
	"github.com/temirov/canopy/internal/checkout/checkouttest"
	"github.com/temirov/canopy/internal/checkouts"
)

type directFacts struct {
	failure error
}

func (facts directFacts) BranchFor(executionContext context.Context, target checkout.Checkout) (string, bool, error) {
	if facts.failure != nil {
		return "", false, facts.failure
	}
	return target.CurrentBranchName(executionContext)
}

func (facts directFacts) IsDirty(executionContext context.Context, target checkout.Checkout) (bool, error) {
	return target.IsDirty(executionContext)
}

func (facts directFacts) IsDetachedHead(executionContext context.Context, target checkout.Checkout) (bool, error) {
	return target.IsDetachedHead(executionContext)
}

func TestDescribe(testInstance *testing.T) {
	targets := []checkout.Checkout{
		checkouttest.New("/grove/oak").WithCurrentBranch("feature/bark"),
		checkouttest.New("/grove").WithDetachedHead().WithDirty(),
	}

	testCases := []struct {
		name        string
		facts       directFacts
		withDetails bool
		expected    []checkouts.Entry
		expectError bool
	}{
		{
			name:  "paths_only",
			facts: directFacts{failure: errors.New("not consulted")},
			expected: []checkouts.Entry{
				{Path: "/grove/oak", Name: "oak"},
				{Path: "/grove", Name: "grove"},
			},
		},
		{
			name:        "with_details",
			withDetails: true,
			expected: []checkouts.Entry{
				{Path: "/grove/oak", Name: "oak", Details: &checkouts.Details{Branch: "feature/bark"}},
				{Path: "/grove", Name: "grove", Details: &checkouts.Details{Detached: true, Dirty: true}},
			},
		},
		{
			name:        "fact_failure",
			facts:       directFacts{failure: errors.New("git exploded")},
			withDetails: true,
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			entries, describeError := checkouts.Describe(context.Background(), testCase.facts, targets, testCase.withDetails)
			if testCase.expectError {
				require.ErrorContains(testInstance, describeError, "git exploded")
				return
			}
			require.NoError(testInstance, describeError)
			require.Equal(testInstance, testCase.expected, entries)
		})
	}
}

func TestRenderRejectsUnknownFormat(testInstance *testing.T) {
	var output bytes.Buffer
	require.Error(testInstance, checkouts.Render(&output, "xml", []checkouts.Entry{{Path: "/grove"}}))
	require.Zero(testInstance, output.Len())
}
