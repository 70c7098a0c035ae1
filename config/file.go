package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Value is a scalar configuration value kept in its textual form.
// In a configuration file it may be written as a string, a boolean or a
// number.
type Value string

func (value *Value) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*value = Value(v)
	case bool:
		*value = Value(strconv.FormatBool(v))
	case int64:
		*value = Value(strconv.FormatInt(v, 10))
	case float64:
		*value = Value(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return fmt.Errorf("unsupported value %v (%T)", data, data)
	}
	return nil
}

func (value Value) String() string { return string(value) }

// LoadFile decodes the configuration file at path on top of raw.
// Keys that are not present keep their current value.
func LoadFile(path string, raw *Raw) error {
	meta, err := toml.DecodeFile(path, raw)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return &Error{Field: "config", Value: path, Err: fmt.Errorf("unknown keys %s", strings.Join(keys, ", "))}
	}
	return nil
}

// LoadDefaultFile loads FileName from dir when it exists.
// It reports whether the file was found.
func LoadDefaultFile(dir string, raw *Raw) (string, bool, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, false, nil
		}
		return path, false, err
	}
	return path, true, LoadFile(path, raw)
}
