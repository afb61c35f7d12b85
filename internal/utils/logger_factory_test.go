package utils_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/canopy/internal/utils"
)

const testLogMessageConstant = "logger_factory_test_message"

func TestLoggerFactoryCreateLogger(testInstance *testing.T) {
	testCases := []struct {
		name               string
		requestedLogLevel  utils.LogLevel
		requestedLogFormat utils.LogFormat
		expectError        bool
		expectJSON         bool
		expectDebugOutput  bool
	}{
		{name: "debug_structured", requestedLogLevel: utils.LogLevelDebug, requestedLogFormat: utils.LogFormatStructured, expectJSON: true, expectDebugOutput: true},
		{name: "info_structured", requestedLogLevel: utils.LogLevelInfo, requestedLogFormat: utils.LogFormatStructured, expectJSON: true},
		{name: "info_console", requestedLogLevel: utils.LogLevelInfo, requestedLogFormat: utils.LogFormatConsole},
		{name: "mixed_case_values", requestedLogLevel: utils.LogLevel(" INFO "), requestedLogFormat: utils.LogFormat("Console")},
		{name: "unsupported_level", requestedLogLevel: utils.LogLevel("verbose"), requestedLogFormat: utils.LogFormatStructured, expectError: true},
		{name: "unsupported_format", requestedLogLevel: utils.LogLevelInfo, requestedLogFormat: utils.LogFormat("xml"), expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			var sink bytes.Buffer
			loggerFactory := utils.NewLoggerFactoryWithSink(zapcore.AddSync(&sink))

			logger, creationError := loggerFactory.CreateLogger(testCase.requestedLogLevel, testCase.requestedLogFormat)
			if testCase.expectError {
				require.Error(testInstance, creationError)
				require.Nil(testInstance, logger)
				return
			}
			require.NoError(testInstance, creationError)

			logger.Debug("debug_" + testLogMessageConstant)
			logger.Info(testLogMessageConstant)
			require.NoError(testInstance, logger.Sync())

			output := bytes.TrimSpace(sink.Bytes())
			require.Contains(testInstance, string(output), testLogMessageConstant)
			require.Equal(testInstance, testCase.expectDebugOutput, bytes.Contains(output, []byte("debug_"+testLogMessageConstant)))

			lastLine := output[bytes.LastIndexByte(output, '\n')+1:]
			require.Equal(testInstance, testCase.expectJSON, json.Valid(lastLine))
		})
	}
}
