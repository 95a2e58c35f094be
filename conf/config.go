package conf

/*
   This package wraps viper for the ipcoding app. Values are looked up in the
   local.env configuration file first and then in the process environment.

   Assumptions:
   1. The configuration file is an env file named local.env
   2. Once the application has started the configuration file is treated as
   immutable. Tests may change values through SetEnv/UnsetEnv.
*/

import (
	"os"
	"reflect"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// An instance of the viper struct containing the conf information. Only made
// accessible through public functions GetEnv, SetEnv, etc.
var envVars *viper.Viper

const (
	configgood    uint8 = 0
	configbad     uint8 = 1
	noconfigfound uint8 = 2
)

var state = configgood

func setup(dir string) *viper.Viper {
	var v = viper.New()
	v.SetConfigName("local")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	// Viper is lazy, do the read and parse of the config file
	if err := v.ReadInConfig(); err != nil {
		state = configbad
	}
	return v
}

func init() {
	// Possible config file locations: repository checkout then the installed location.
	locations := []string{
		"../shared_files/decrypted",
		"../../shared_files/decrypted",
		"/etc/ipcoding",
	}

	if success, loc := findEnv(locations); success {
		envVars = setup(loc)
	} else {
		state = noconfigfound
	}
}

// findEnv walks the candidate locations in order and reports the first one that
// holds a local.env file.
func findEnv(location []string) (bool, string) {
	if len(location) == 0 {
		return false, ""
	}

	if _, err := os.Stat(location[0] + "/local.env"); err == nil {
		return true, location[0]
	}

	return findEnv(location[1:])
}

// GetEnv retrieves the value stored in conf. If it does not exist the empty
// string is returned.
func GetEnv(key string) string {
	value, _ := LookupEnv(key)
	return value
}

// LookupEnv augments os.LookupEnv by looking in the configuration file first.
func LookupEnv(key string) (string, bool) {
	if state == configgood {
		if value := envVars.GetString(key); value != "" {
			return value, true
		}
	}
	return os.LookupEnv(key)
}

// SetEnv adds a key value pair into conf. It should only be used in this
// package or in tests; the *testing.T parameter makes the scope explicit.
func SetEnv(protect *testing.T, key string, value string) error {
	if state == configgood {
		envVars.Set(key, value)
	}
	return os.Setenv(key, value)
}

// UnsetEnv "unsets" a variable. Like SetEnv, this should only be used in this
// package or in tests.
func UnsetEnv(protect *testing.T, key string) error {
	if state == configgood {
		envVars.Set(key, "")
	}
	return os.Unsetenv(key)
}

// Checkout fills the struct pointed to by v from conf. Fields are mapped with the
// `conf` struct tag and fall back to the `conf_default` tag when the key has no
// value. Conversion from the string representation is done with weak decoding so
// ints, bools and durations can be declared naturally.
//
//	type Config struct {
//		MaxBytes int `conf:"IPCODING_EVIDENCE_MAX_BYTES" conf_default:"4096"`
//	}
func Checkout(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return errors.Errorf("conf: Checkout requires a pointer to a struct, got %T", v)
	}

	values := make(map[string]interface{})
	collect(rv.Elem().Type(), values)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "conf",
		WeaklyTypedInput: true,
		Squash:           true,
		Result:           v,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.Wrap(err, "conf: failed to create decoder")
	}

	if err := decoder.Decode(values); err != nil {
		return errors.Wrap(err, "conf: failed to decode configuration")
	}
	return nil
}

func collect(t reflect.Type, values map[string]interface{}) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		key := field.Tag.Get("conf")
		if field.Type.Kind() == reflect.Struct && (field.Anonymous || key == ",squash") {
			collect(field.Type, values)
			continue
		}
		if key == "" || key == "-" {
			continue
		}

		if value, ok := LookupEnv(key); ok && value != "" {
			values[key] = value
		} else if def, ok := field.Tag.Lookup("conf_default"); ok {
			values[key] = def
		}
	}
}
