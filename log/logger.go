package log

import (
	"os"
	"path/filepath"
	"time"

	"github.com/CMSgov/ipcoding-app/conf"
	"github.com/CMSgov/ipcoding-app/ipcoding/constants"
	"github.com/sirupsen/logrus"
)

var (
	Engine    logrus.FieldLogger
	KB        logrus.FieldLogger
	Validator logrus.FieldLogger
	CLI       logrus.FieldLogger
)

func init() {
	SetupLoggers()
}

// SetupLoggers (re)creates every package level logger from the current conf values.
func SetupLoggers() {
	env := conf.GetEnv("DEPLOYMENT_TARGET")
	Engine = Logger(logrus.New(), conf.GetEnv("IPCODING_ENGINE_LOG"), "engine", env)
	KB = Logger(logrus.New(), conf.GetEnv("IPCODING_KB_LOG"), "knowledgebase", env)
	Validator = Logger(logrus.New(), conf.GetEnv("IPCODING_VALIDATOR_LOG"), "validator", env)
	CLI = Logger(logrus.New(), conf.GetEnv("IPCODING_CLI_LOG"), "cli", env)
}

// Logger configures logger to write JSON entries to outputFile (stderr when the
// file is empty or cannot be opened) and returns an entry carrying the common fields.
func Logger(logger *logrus.Logger, outputFile string,
	application, environment string) logrus.FieldLogger {

	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetReportCaller(true)

	if outputFile != "" {
		// #nosec G302 -- 0640 permissions required for log ingestion
		if file, err := os.OpenFile(filepath.Clean(outputFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); err == nil {
			logger.SetOutput(file)
		} else {
			logger.Infof("Failed to open output file %s. Will use stderr. %s",
				outputFile, err.Error())
		}
	}

	return logger.WithFields(logrus.Fields{
		"application": application,
		"environment": environment,
		"source_app":  constants.SourceApp,
		"version":     constants.Version})
}
