package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

const configFlagName = "config"

var cfgFile string

// addConfigFlag registers --config. Without it, <name>.yaml is searched in
// the working directory, $HOME/.<name> and /etc/<name>.
func addConfigFlag(name string, fs *pflag.FlagSet) {
	fs.StringVarP(&cfgFile, configFlagName, "c", cfgFile,
		fmt.Sprintf("Read configuration from the specified file (default search: ./%[1]s.yaml, $HOME/.%[1]s, /etc/%[1]s).", name))
}

func envPrefixFor(name string) string {
	return envKey(name)
}

func envKey(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// bindEnvironment maps every key to <PREFIX>_<KEY> with '.' and '-' turned
// into '_', plus any explicit aliases.
func bindEnvironment(prefix string, aliases map[string][]string) error {
	viper.SetEnvPrefix(prefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	for key, names := range aliases {
		// Explicit binding replaces the automatic name, so keep it first.
		input := []string{key, prefix + "_" + envKey(key)}
		input = append(input, names...)
		if err := viper.BindEnv(input...); err != nil {
			return fmt.Errorf("binding environment for %s: %w", key, err)
		}
	}
	return nil
}

// readConfig loads the config file if one is given or found and starts
// watching it. Running components are not reconfigured; onReload decides
// which settings may change live and reads them back through viper.
func readConfig(name string, onReload func()) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, "."+name))
		}
		viper.AddConfigPath(filepath.Join("/etc", name))
		viper.SetConfigName(name)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		log.Info("Configuration changed", "file", e.Name)
		if onReload != nil {
			onReload()
		}
	})
	viper.WatchConfig()
	return nil
}
