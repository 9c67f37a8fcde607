// Package conftools merges command line flags, environment variables and an optional
// configuration file into a configuration struct.
package conftools

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const redacted = "***REDACTED***"

func decoderHook(dc *mapstructure.DecoderConfig) {
	dc.TagName = "json"
	dc.ErrorUnused = true
}

// Initialize prepares v to read name.yaml from the working directory or /etc, and
// environment variables prefixed with the upper case name. Dashes and dots in keys
// become underscores in variable names.
func Initialize(v *viper.Viper, name string) {
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc")
	v.SetEnvPrefix(strings.ToUpper(name))
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Load parses args into flags and decodes the merged configuration into cfg.
// Values are resolved with the following precedence: flags > environment variables >
// configuration file > flag defaults.
func Load(v *viper.Viper, flags *flag.FlagSet, args []string, cfg interface{}) error {
	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	err = flags.Parse(args)
	if err != nil {
		return err
	}

	err = v.BindPFlags(flags)
	if err != nil {
		return err
	}

	return v.Unmarshal(cfg, decoderHook)
}

// Format returns a human-readable printout of all configuration options, except secret stuff.
func Format(v *viper.Viper, disallowedKeys []string) []string {
	ok := func(key string) bool {
		for _, forbiddenKey := range disallowedKeys {
			if forbiddenKey == key {
				return false
			}
		}
		return true
	}

	keys := v.AllKeys()
	sort.Strings(keys)

	printed := make([]string, 0, len(keys))
	for _, key := range keys {
		if ok(key) {
			printed = append(printed, fmt.Sprintf("%s: %v", key, v.Get(key)))
		} else {
			printed = append(printed, fmt.Sprintf("%s: %s", key, redacted))
		}
	}

	return printed
}
