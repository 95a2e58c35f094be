package kb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	ipcerrors "github.com/CMSgov/ipcoding-app/ipcoding/errors"
	"github.com/dimchansky/utfbom"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a knowledge base document.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatFor picks the document format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("unsupported knowledge base extension %q", filepath.Ext(path))
}

// LoadFile reads and decodes the knowledge base at path. Every failure is returned as a
// *errors.KnowledgeBaseError.
func LoadFile(path string) (*KnowledgeBase, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, &ipcerrors.KnowledgeBaseError{Err: err, Path: path}
	}
	data, err := ioutil.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, &ipcerrors.KnowledgeBaseError{Err: errors.Wrap(err, "failed to read file"), Path: path}
	}
	kb, err := Parse(data, format)
	if err != nil {
		return nil, &ipcerrors.KnowledgeBaseError{Err: err, Path: path}
	}
	kb.source = path
	return kb, nil
}

// Parse decodes a knowledge base document held in memory.
func Parse(data []byte, format Format) (*KnowledgeBase, error) {
	// Trim the Byte Order Marker if it's present
	data, err := ioutil.ReadAll(utfbom.SkipOnly(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read document")
	}

	var raw interface{}
	switch format {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&raw)
	case YAML:
		err = yaml.Unmarshal(data, &raw)
	case TOML:
		var m map[string]interface{}
		_, err = toml.Decode(string(data), &m)
		raw = m
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s document", format)
	}

	doc, ok := normalize(raw).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("document root must be an object, got %T", raw)
	}
	return FromDocument(doc)
}

// FromDocument builds a KnowledgeBase from a generic document. Master index keys and pair codes
// are normalized; bundling rules are decoded into their variants.
func FromDocument(doc map[string]interface{}) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{
		codes:    make(map[string]CodeEntry),
		document: doc,
	}
	if v, ok := doc["version"]; ok && v != nil {
		kb.version = fmt.Sprint(v)
	}

	index, ok := doc["master_code_index"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("master_code_index must be an object")
	}
	for _, code := range sortedDocKeys(index) {
		var entry CodeEntry
		if err := weakDecode(index[code], &entry); err != nil {
			return nil, errors.Wrapf(err, "master_code_index.%s", code)
		}
		kb.codes[NormalizeCode(code)] = entry
	}

	if raw, ok := doc["ncci_pairs"]; ok && raw != nil {
		if err := weakDecode(raw, &kb.pairs); err != nil {
			return nil, errors.Wrap(err, "ncci_pairs")
		}
		for i, p := range kb.pairs {
			if p.Primary == "" || p.Secondary == "" {
				return nil, fmt.Errorf("ncci_pairs[%d] needs both primary and secondary", i)
			}
			kb.pairs[i].Primary = NormalizeCode(p.Primary)
			kb.pairs[i].Secondary = NormalizeCode(p.Secondary)
		}
	}

	if raw, ok := doc["bundling_rules"]; ok && raw != nil {
		list, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("bundling_rules must be a list, got %T", raw)
		}
		for i, item := range list {
			rule, err := decodeRule(i, item)
			if err != nil {
				return nil, err
			}
			kb.rules = append(kb.rules, rule)
		}
	}
	return kb, nil
}

func weakDecode(input, result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// normalize rewrites the container types the YAML and TOML decoders produce so that every
// object is a map[string]interface{} and every list a []interface{}.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case []interface{}:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}

func sortedDocKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
