package parameter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadValues reads option values from a YAML mapping, e.g.:
//
//	NPROC: 64
//	DIR_LEVEL2: /data/level2
//	DO_TOPO: FALSE
//
// Names are upper-cased, scalars are kept as written.
func LoadValues(r io.Reader) (map[string]string, error) {
	raw := map[string]string{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return raw, nil
		}
		return nil, fmt.Errorf("LoadValues: %w", err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		values[optionName(k)] = v
	}
	return values, nil
}

// LoadValuesFile reads option values from a YAML file (see LoadValues)
func LoadValuesFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadValuesFile: %w", err)
	}
	defer f.Close()
	return LoadValues(f)
}

// ParseAssignment parses "NAME=VALUE"
func ParseAssignment(s string) (string, string, error) {
	kv := strings.SplitN(s, "=", 2)
	if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
		return "", "", fmt.Errorf("invalid option %q: must be NAME=VALUE", s)
	}
	return optionName(kv[0]), strings.TrimSpace(kv[1]), nil
}

func optionName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
