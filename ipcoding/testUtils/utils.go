package testUtils

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/CMSgov/ipcoding-app/conf"

	"github.com/otiai10/copy"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// ReferenceKB is the shared reference knowledge base, relative to a package directory under ipcoding/.
const ReferenceKB = "../../shared_files/knowledge_base/ip_coding_kb.yaml"

func setEnv(why, key, value string) {
	if err := conf.SetEnv(&testing.T{}, key, value); err != nil {
		log.Printf("Error %s env value %s to %s\n", why, key, value)
	}
}

// SetAndRestoreEnvKey replaces the current value of the env var key,
// returning a function which can be used to restore the original value
func SetAndRestoreEnvKey(key, value string) func() {
	originalValue, ok := conf.LookupEnv(key)
	setEnv("setting", key, value)
	return func() {
		if !ok {
			if err := conf.UnsetEnv(&testing.T{}, key); err != nil {
				log.Printf("Error unsetting env value %s\n", key)
			}
			return
		}
		setEnv("restoring", key, originalValue)
	}
}

// CopyToTemporaryDirectory copies all of the content found at src into a temporary directory.
// The path to the temporary directory is returned along with a function that can be called to clean up the data.
func CopyToTemporaryDirectory(t *testing.T, src string) (string, func()) {
	newPath, err := ioutil.TempDir("", "*")
	if err != nil {
		t.Fatalf("Failed to create temporary directory %s", err.Error())
	}

	if err = copy.Copy(src, newPath); err != nil {
		t.Fatalf("Failed to copy contents from %s to %s %s", src, newPath, err.Error())
	}

	cleanup := func() {
		err := os.RemoveAll(newPath)
		if err != nil {
			log.Printf("Failed to cleanup data %s", err.Error())
		}
	}

	return newPath, cleanup
}

// CopyFileToTemporaryDirectory copies a single file into a fresh temporary directory and
// returns the path of the copy.
func CopyFileToTemporaryDirectory(t *testing.T, src string) (string, func()) {
	dir, err := ioutil.TempDir("", "*")
	if err != nil {
		t.Fatalf("Failed to create temporary directory %s", err.Error())
	}

	dst := filepath.Join(dir, filepath.Base(src))
	if err = copy.Copy(src, dst); err != nil {
		t.Fatalf("Failed to copy %s to %s %s", src, dst, err.Error())
	}

	return dst, func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("Failed to cleanup data %s", err.Error())
		}
	}
}

// GetLogger returns a logger whose entries are captured by the returned hook.
func GetLogger() (logrus.FieldLogger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}
