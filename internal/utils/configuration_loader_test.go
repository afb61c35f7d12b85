package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/canopy/internal/utils"
)

const (
	testEnvironmentPrefixConstant     = "CANOPYTEST"
	testConfigurationNameConstant     = "config"
	testConfigurationTypeConstant     = "yaml"
	testConfigFileNameConstant        = "config.yaml"
	testLogLevelKeyConstant           = "common.log_level"
	testSafeBranchesKeyConstant       = "tools.cleanup.safe_branches"
	testLogLevelEnvironmentConstant   = "CANOPYTEST_COMMON_LOG_LEVEL"
	testSafeBranchesEnvironmentConst  = "CANOPYTEST_TOOLS_CLEANUP_SAFE_BRANCHES"
	testEmbeddedConfigurationConstant = "common:\n  log_level: debug\ntools:\n  cleanup:\n    safe_branches:\n      - develop\n"
)

type configurationFixture struct {
	Common struct {
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"common"`
	Tools struct {
		Cleanup struct {
			SafeBranches []string `mapstructure:"safe_branches"`
		} `mapstructure:"cleanup"`
	} `mapstructure:"tools"`
}

func TestConfigurationLoaderLayering(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		embedded             string
		fileContent          string
		environment          map[string]string
		expectedLogLevel     string
		expectedSafeBranches []string
	}{
		{
			name:                 "defaults_only",
			expectedLogLevel:     "info",
			expectedSafeBranches: []string{"main"},
		},
		{
			name:                 "embedded_over_defaults",
			embedded:             testEmbeddedConfigurationConstant,
			expectedLogLevel:     "debug",
			expectedSafeBranches: []string{"develop"},
		},
		{
			name:                 "file_over_embedded",
			embedded:             testEmbeddedConfigurationConstant,
			fileContent:          "common:\n  log_level: warn\n",
			expectedLogLevel:     "warn",
			expectedSafeBranches: []string{"develop"},
		},
		{
			name:        "environment_over_file",
			embedded:    testEmbeddedConfigurationConstant,
			fileContent: "common:\n  log_level: warn\n",
			environment: map[string]string{
				testLogLevelEnvironmentConstant:  "error",
				testSafeBranchesEnvironmentConst: "develop, release/current",
			},
			expectedLogLevel:     "error",
			expectedSafeBranches: []string{"develop", "release/current"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			temporaryDirectory := testInstance.TempDir()
			configurationFilePath := ""
			if len(testCase.fileContent) > 0 {
				configurationFilePath = filepath.Join(temporaryDirectory, testConfigFileNameConstant)
				require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(testCase.fileContent), 0o600))
			}
			for name, value := range testCase.environment {
				testInstance.Setenv(name, value)
			}

			loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{temporaryDirectory})
			loader.SetEmbeddedConfiguration([]byte(testCase.embedded), testConfigurationTypeConstant)

			defaultValues := map[string]any{
				testLogLevelKeyConstant:     "info",
				testSafeBranchesKeyConstant: []string{"main"},
			}
			var configuration configurationFixture
			metadata, loadError := loader.LoadConfiguration(configurationFilePath, defaultValues, &configuration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedLogLevel, configuration.Common.LogLevel)
			require.Equal(testInstance, testCase.expectedSafeBranches, configuration.Tools.Cleanup.SafeBranches)
			require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderFindsFileInSearchPath(testInstance *testing.T) {
	firstDirectory := testInstance.TempDir()
	secondDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(secondDirectory, testConfigFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("common:\n  log_level: warn\n"), 0o600))

	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{firstDirectory, secondDirectory})
	var configuration configurationFixture
	metadata, loadError := loader.LoadConfiguration("", map[string]any{testLogLevelKeyConstant: "info"}, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "warn", configuration.Common.LogLevel)
	require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
}

func TestConfigurationLoaderRejectsMalformedFile(testInstance *testing.T) {
	configurationFilePath := filepath.Join(testInstance.TempDir(), testConfigFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("common: [unterminated\n"), 0o600))

	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)
	var configuration configurationFixture
	_, loadError := loader.LoadConfiguration(configurationFilePath, nil, &configuration)
	require.ErrorContains(testInstance, loadError, "failed to read configuration")
}
