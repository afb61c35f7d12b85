package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/canopy/internal/utils/path"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	homeProvider := func() (string, error) { return "/home/forester", nil }
	testCases := []struct {
		name     string
		provider pathutils.HomeDirectoryProvider
		input    string
		expected string
	}{
		{name: "bare_tilde", provider: homeProvider, input: "~", expected: "/home/forester"},
		{name: "tilde_prefix", provider: homeProvider, input: "~/src/forest", expected: filepath.Join("/home/forester", "src", "forest")},
		{name: "other_user", provider: homeProvider, input: "~ranger/src", expected: "~ranger/src"},
		{name: "absolute", provider: homeProvider, input: "/srv/forest", expected: "/srv/forest"},
		{name: "empty", provider: homeProvider, input: "", expected: ""},
		{name: "unknown_home", provider: func() (string, error) { return "", errors.New("no home") }, input: "~/src", expected: "~/src"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			expander := pathutils.NewHomeExpanderWithProvider(testCase.provider)
			require.Equal(testInstance, testCase.expected, expander.Expand(testCase.input))
		})
	}
}
