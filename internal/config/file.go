/*
Copyright 2021 GramLabs, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"sigs.k8s.io/yaml"
)

const (
	// https://specifications.freedesktop.org/basedir-spec/basedir-spec-latest.html

	homeEnv              = "HOME"
	xdgConfigHomeEnv     = "XDG_CONFIG_HOME"
	xdgConfigHomeDefault = ".config"
	xdgConfigDirsEnv     = "XDG_CONFIG_DIRS"
	xdgConfigDirsDefault = "/etc/xdg"
	configFilename       = "sweep/config.yaml"
)

// fileLoader loads a configuration from the currently configured filename
func fileLoader(cfg *SweepConfig) error {
	filename := cfg.Filename
	if filename == "" {
		filename = defaultFilename()
	}

	data, err := ReadValues(filename)
	if err != nil {
		if os.IsNotExist(err) && cfg.Filename == "" {
			return nil
		}
		return err
	}

	cfg.Filename = filename
	cfg.data.Merge(data)
	return nil
}

// ReadValues decodes YAML or JSON data from the specified file. Numbers keep their original
// representation as a json.Number.
func ReadValues(filename string) (v1alpha1.Values, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return DecodeValues(b)
}

// DecodeValues decodes YAML or JSON data.
func DecodeValues(b []byte) (v1alpha1.Values, error) {
	j, err := yaml.YAMLToJSON(b)
	if err != nil {
		return nil, err
	}

	values := v1alpha1.Values{}
	if len(bytes.TrimSpace(j)) == 0 || string(bytes.TrimSpace(j)) == "null" {
		return values, nil
	}

	d := json.NewDecoder(bytes.NewReader(j))
	d.UseNumber()
	if err := d.Decode(&values); err != nil {
		return nil, fmt.Errorf("configuration must be a mapping: %w", err)
	}
	return values, nil
}

// defaultFilename finds the configuration file using the XDG base directory conventions
func defaultFilename() string {
	xdgConfigHome := os.Getenv(xdgConfigHomeEnv)
	if xdgConfigHome == "" {
		home := os.Getenv(homeEnv)
		if home == "" {
			home, _ = os.UserHomeDir()
		}
		xdgConfigHome = filepath.Join(home, xdgConfigHomeDefault)
	}

	xdgConfigDirs := os.Getenv(xdgConfigDirsEnv)
	if xdgConfigDirs == "" {
		xdgConfigDirs = xdgConfigDirsDefault
	}

	userConfigFilename := filepath.Join(xdgConfigHome, configFilename)
	for _, dir := range append([]string{xdgConfigHome}, filepath.SplitList(xdgConfigDirs)...) {
		filename := filepath.Join(dir, configFilename)
		if _, err := os.Stat(filename); err == nil {
			return filename
		}
	}
	return userConfigFilename
}
