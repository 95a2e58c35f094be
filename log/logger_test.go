package log

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/CMSgov/ipcoding-app/conf"
	"github.com/CMSgov/ipcoding-app/ipcoding/constants"
	"github.com/pborman/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

// TestLoggers verifies that all of our loggers are set up
// with the expected parameters and write to the expected files.
func TestLoggers(t *testing.T) {
	env := uuid.New()
	assert.NoError(t, conf.SetEnv(t, "DEPLOYMENT_TARGET", env))
	defer func() { assert.NoError(t, conf.UnsetEnv(t, "DEPLOYMENT_TARGET")) }()

	tests := []struct {
		logEnv string
		// Use a supplier since the logger's reference will be updated everytime we call
		// setup func. This allows us to retrieve the refreshed logger
		logSupplier func() logrus.FieldLogger
		application string
	}{
		{"IPCODING_ENGINE_LOG", func() logrus.FieldLogger { return Engine }, "engine"},
		{"IPCODING_KB_LOG", func() logrus.FieldLogger { return KB }, "knowledgebase"},
		{"IPCODING_VALIDATOR_LOG", func() logrus.FieldLogger { return Validator }, "validator"},
		{"IPCODING_CLI_LOG", func() logrus.FieldLogger { return CLI }, "cli"},
	}
	for _, tt := range tests {
		t.Run(tt.logEnv, func(t *testing.T) {
			logFile, err := os.CreateTemp("", "*")
			assert.NoError(t, err)
			t.Cleanup(func() {
				assert.NoError(t, os.Remove(logFile.Name()))
				assert.NoError(t, conf.UnsetEnv(t, tt.logEnv))
			})
			assert.NoError(t, conf.SetEnv(t, tt.logEnv, logFile.Name()))

			// Refresh the logger to reference the new configs
			SetupLoggers()

			msg := uuid.New()
			tt.logSupplier().Info(msg)

			data, err := io.ReadAll(logFile)
			assert.NoError(t, err)
			res := strings.Split(string(data), "\n")
			// msg + new line
			assert.Len(t, res, 2)

			var fields logrus.Fields
			assert.NoError(t, json.Unmarshal([]byte(res[0]), &fields))
			assert.Equal(t, tt.application, fields["application"])
			assert.Equal(t, env, fields["environment"])
			assert.Equal(t, msg, fields["msg"])
			assert.Equal(t, constants.SourceApp, fields["source_app"])
			assert.Equal(t, constants.Version, fields["version"])
			_, err = time.Parse(time.RFC3339Nano, fields["time"].(string))
			assert.NoError(t, err)
		})
	}
}

func TestLoggerFallsBackToStderr(t *testing.T) {
	logger := logrus.New()
	hook := test.NewLocal(logger)

	entry := Logger(logger, "/this/directory/does/not/exist/out.log", "engine", "test")
	assert.Equal(t, os.Stderr, logger.Out)
	assert.Len(t, hook.Entries, 1)
	assert.Contains(t, hook.LastEntry().Message, "Failed to open output file")

	entry.Warn("still logging")
	assert.Equal(t, "still logging", hook.LastEntry().Message)
	assert.Equal(t, "engine", hook.LastEntry().Data["application"])
}
