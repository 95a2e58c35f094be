package conf

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetAndUnsetEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"Single Value", "IPCODING_TEST_HELLO", "world"},
		{"Multi-value separated by commas", "IPCODING_TEST_LIST", "One,Two,Three,Four"},
		{"Path", "IPCODING_TEST_SOMEPATH", "../../FAKE/PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, SetEnv(t, tt.key, tt.value))
			assert.Equal(t, tt.value, GetEnv(tt.key))

			assert.NoError(t, UnsetEnv(t, tt.key))
			assert.Equal(t, "", GetEnv(tt.key))
			assert.Equal(t, "", os.Getenv(tt.key))
		})
	}
}

func TestLookupEnv(t *testing.T) {
	_, ok := LookupEnv("IPCODING_TEST_DOESNOTEXIST")
	assert.False(t, ok)

	assert.NoError(t, SetEnv(t, "IPCODING_TEST_EXISTS", "yes"))
	defer func() { assert.NoError(t, UnsetEnv(t, "IPCODING_TEST_EXISTS")) }()
	value, ok := LookupEnv("IPCODING_TEST_EXISTS")
	assert.True(t, ok)
	assert.Equal(t, "yes", value)
}

func Test_setup(t *testing.T) {
	v := setup("testdata")
	assert.Equal(t, "true", v.GetString("TEST"))
	assert.Equal(t, "1234", v.GetString("TEST_NUM"))
}

func Test_findEnv(t *testing.T) {
	tests := []struct {
		name     string
		location []string
		found    bool
		dir      string
	}{
		{"First location", []string{"testdata", "FAKE"}, true, "testdata"},
		{"Second location", []string{"FAKE", "testdata"}, true, "testdata"},
		{"Neither location", []string{"FAKE", "FAKE2"}, false, ""},
		{"No locations", nil, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, dir := findEnv(tt.location)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.dir, dir)
		})
	}
}

type Nested struct {
	Enabled bool `conf:"IPCODING_TEST_ENABLED" conf_default:"true"`
}

type testConfig struct {
	Path     string        `conf:"IPCODING_TEST_PATH"`
	MaxBytes int           `conf:"IPCODING_TEST_MAX_BYTES" conf_default:"4096"`
	Timeout  time.Duration `conf:"IPCODING_TEST_TIMEOUT" conf_default:"5s"`
	Nested   `conf:",squash"`

	ignored string
}

func TestCheckout(t *testing.T) {
	assert.NoError(t, SetEnv(t, "IPCODING_TEST_PATH", "/tmp/kb.yaml"))
	assert.NoError(t, SetEnv(t, "IPCODING_TEST_MAX_BYTES", "128"))
	defer func() {
		assert.NoError(t, UnsetEnv(t, "IPCODING_TEST_PATH"))
		assert.NoError(t, UnsetEnv(t, "IPCODING_TEST_MAX_BYTES"))
	}()

	var cfg testConfig
	assert.NoError(t, Checkout(&cfg))
	assert.Equal(t, "/tmp/kb.yaml", cfg.Path)
	assert.Equal(t, 128, cfg.MaxBytes)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.Enabled)
}

func TestCheckoutDefaults(t *testing.T) {
	var cfg testConfig
	assert.NoError(t, Checkout(&cfg))
	assert.Equal(t, "", cfg.Path)
	assert.Equal(t, 4096, cfg.MaxBytes)
}

func TestCheckoutBadInput(t *testing.T) {
	assert.EqualError(t, Checkout(testConfig{}), "conf: Checkout requires a pointer to a struct, got conf.testConfig")

	assert.NoError(t, SetEnv(t, "IPCODING_TEST_MAX_BYTES", "lots"))
	defer func() { assert.NoError(t, UnsetEnv(t, "IPCODING_TEST_MAX_BYTES")) }()
	var cfg testConfig
	err := Checkout(&cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "conf: failed to decode configuration")
}
