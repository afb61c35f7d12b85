package checkout_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/canopy/internal/checkout"
)

func TestParseSubmoduleStatus(testInstance *testing.T) {
	output := " " + testFirstCommitConstant + " core (heads/develop)\n" +
		"+" + testSecondCommitConstant + " tools/lint (v1.2-3-g2222222)\n" +
		"-" + testFirstCommitConstant + " docs\n"

	statuses, parseError := checkout.ParseSubmoduleStatus("/workspace", output)
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, []checkout.SubmoduleStatus{
		{Path: filepath.Join("/workspace", "core"), Commit: testFirstCommitConstant, Description: "heads/develop"},
		{Path: filepath.Join("/workspace", "tools", "lint"), Commit: testSecondCommitConstant, Description: "v1.2-3-g2222222", Modified: true},
		{Path: filepath.Join("/workspace", "docs"), Commit: testFirstCommitConstant, Uninitialized: true},
	}, statuses)
}

func TestParseSubmoduleStatusRejectsGarbage(testInstance *testing.T) {
	_, parseError := checkout.ParseSubmoduleStatus("/workspace", "not a status line\n")
	require.Error(testInstance, parseError)
}
