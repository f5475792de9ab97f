package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configFlagName     = "config"
	dumpConfigFlagName = "dump-config"
)

func (a *App) addConfigFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&a.configFile, configFlagName, "c", a.configFile,
		fmt.Sprintf("Read configuration from the specified YAML file. Keys mirror the flag names, e.g. mqtt.broker. Defaults to %s.yaml in the current directory when present.", a.basename))
	fs.BoolVar(&a.dumpConfig, dumpConfigFlagName, false, "Print the effective configuration as YAML and quit.")
}

// loadConfig merges the optional config file and the parsed flags into the
// application's options. Explicitly set flags win over the file.
func (a *App) loadConfig(fs *pflag.FlagSet) error {
	v := viper.New()

	if err := v.BindPFlags(fs); err != nil {
		return err
	}

	file := a.configFile
	if file == "" {
		candidate := a.basename + ".yaml"
		if _, err := os.Stat(candidate); err == nil {
			file = candidate
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(file), "."))
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read configuration file %q: %w", file, err)
		}
	}

	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	a.settings = v.AllSettings()
	return nil
}

// dump writes the effective option groups as YAML. Top-level scalars are
// command flags such as --help or --config and are left out.
func (a *App) dump() error {
	settings := make(map[string]any, len(a.settings))
	for k, val := range a.settings {
		if _, ok := val.(map[string]any); !ok {
			continue
		}
		settings[k] = val
	}
	out, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = a.cmd.OutOrStdout().Write(out)
	return err
}
