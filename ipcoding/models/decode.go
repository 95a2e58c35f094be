package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	ipcerrors "github.com/CMSgov/ipcoding-app/ipcoding/errors"
	"github.com/dimchansky/utfbom"
	"github.com/mitchellh/mapstructure"
)

// DecodeRecord parses a JSON procedure record produced by the extraction pipeline.
// It is the only place where the loosely typed upstream representation is interpreted;
// everything downstream works with the concrete ProcedureRecord.
//
// An error is returned only when data is not a JSON object. Fields that cannot be
// converted to their declared type are left unset and reported in DecodeWarnings.
func DecodeRecord(data []byte) (*ProcedureRecord, error) {
	// Trim the Byte Order Marker if it's present
	dec := json.NewDecoder(utfbom.SkipOnly(bytes.NewReader(data)))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, &ipcerrors.RecordDecodeError{Err: err}
	}
	return RecordFromMap(raw), nil
}

// RecordFromMap converts an already parsed, loosely typed record into a ProcedureRecord.
// Numbers and booleans may be supplied as strings and single values may be supplied
// where lists are expected.
func RecordFromMap(raw map[string]interface{}) *ProcedureRecord {
	rec := &ProcedureRecord{}
	d := recordDecoder{}

	if v, ok := raw["encounter_id"]; ok {
		d.decode("encounter_id", v, &rec.EncounterID)
	}
	d.section("procedures_performed", raw["procedures_performed"], &rec.ProceduresPerformed)
	d.section("pleural_procedures", raw["pleural_procedures"], &rec.PleuralProcedures)
	d.section("granular_data", raw["granular_data"], &rec.GranularData)
	if v, ok := raw["evidence"]; ok {
		d.decode("evidence", v, &rec.Evidence)
	}

	rec.DecodeWarnings = d.warnings
	return rec
}

type recordDecoder struct {
	warnings []Warning
}

// section decodes a map of categories into the struct pointed to by target one field at a
// time so that a malformed category, or a malformed field inside a category, does not
// discard its siblings.
func (d *recordDecoder) section(name string, value interface{}, target interface{}) {
	if value == nil {
		return
	}
	m, ok := value.(map[string]interface{})
	if !ok {
		d.malformed(name, fmt.Sprintf("expected an object, got %T", value))
		return
	}

	rv := reflect.ValueOf(target).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		key := jsonName(rt.Field(i))
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}

		path := name + "." + key
		field := rv.Field(i)
		if field.Kind() == reflect.Ptr {
			elem := reflect.New(field.Type().Elem())
			d.decode(path, v, elem.Interface())
			field.Set(elem)
			continue
		}
		d.decode(path, v, field.Addr().Interface())
	}
}

func (d *recordDecoder) decode(path string, value interface{}, target interface{}) {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       boolishHook,
		Result:           target,
	})
	if err != nil {
		d.malformed(path, err.Error())
		return
	}

	err = decoder.Decode(value)
	if err == nil {
		return
	}
	if merr, ok := err.(*mapstructure.Error); ok {
		for _, msg := range merr.Errors {
			d.malformed(errorPath(path, msg), msg)
		}
		return
	}
	d.malformed(path, err.Error())
}

func (d *recordDecoder) malformed(path, detail string) {
	d.warnings = append(d.warnings, Warning{
		Kind:   WarningMalformedField,
		Field:  path,
		Detail: detail,
	})
}

var quotedPath = regexp.MustCompile(`^(?:cannot parse )?'([^']*)'`)

// errorPath joins base with the relative field name mapstructure quotes in each error message.
func errorPath(base, msg string) string {
	m := quotedPath.FindStringSubmatch(msg)
	if len(m) != 2 || m[1] == "" {
		return base
	}
	if strings.HasPrefix(m[1], "[") {
		return base + m[1]
	}
	return base + "." + m[1]
}

var (
	truthy = map[string]bool{"yes": true, "y": true, "performed": true, "done": true, "completed": true}
	falsy  = map[string]bool{"no": true, "n": true, "none": true, "not performed": true, "": true}
)

// boolishHook accepts the yes/no spellings the extractor emits for flags in addition to the
// strconv.ParseBool forms handled by weak decoding.
func boolishHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Bool || from.Kind() != reflect.String {
		return data, nil
	}
	s := strings.ToLower(strings.TrimSpace(fmt.Sprint(data)))
	switch {
	case truthy[s]:
		return true, nil
	case falsy[s]:
		return false, nil
	}
	return data, nil
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return f.Name
	}
	return tag
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
