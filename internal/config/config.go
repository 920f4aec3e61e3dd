package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config is the full runtime configuration. Values come from, in order of
// precedence: environment (SWIMSYNC_ prefix), config.yaml, defaults.
// A .env file in the working directory is folded into the environment first.
type Config struct {
	Garmin  GarminConfig  `mapstructure:"garmin"`
	Secrets SecretsConfig `mapstructure:"secrets"`
	Export  ExportConfig  `mapstructure:"export"`
	Logging LoggingConfig `mapstructure:"logging"`

	// StateDir holds the persisted session; empty means ~/.config/swimsync.
	StateDir string `mapstructure:"state_dir"`
}

type GarminConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	// CredentialItem is the secret store item holding the Connect login.
	CredentialItem string `mapstructure:"credential_item"`
}

type SecretsConfig struct {
	// Backend selects the secret store: "bitwarden" or "vault".
	Backend    string `mapstructure:"backend"`
	Executable string `mapstructure:"executable"`

	VaultAddress string `mapstructure:"vault_address"`
	VaultToken   string `mapstructure:"vault_token"`
	VaultMount   string `mapstructure:"vault_mount"`
}

type ExportConfig struct {
	CSVPath string `mapstructure:"csv_path"`

	SpreadsheetID     string `mapstructure:"spreadsheet_id"`
	GoogleCredentials string `mapstructure:"google_credentials"`
	GoogleToken       string `mapstructure:"google_token"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env, config files and the environment.
func Load(configFile string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setupPaths(v, configFile)
	setDefaults(v)

	v.SetEnvPrefix("SWIMSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := setupLogging(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFile() {
	if err := gotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: error loading .env file: %v\n", err)
	}
}

func setupPaths(v *viper.Viper, configFile string) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if usr, err := user.Current(); err == nil {
		v.AddConfigPath(filepath.Join(usr.HomeDir, ".config", "swimsync"))
	}

	if len(configFile) > 0 {
		v.SetConfigFile(configFile)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("garmin.endpoint", "https://connect.garmin.com")
	v.SetDefault("garmin.credential_item", "Garmin Connect")

	v.SetDefault("secrets.backend", "bitwarden")
	v.SetDefault("secrets.executable", "bw")
	v.SetDefault("secrets.vault_mount", "secret")

	v.SetDefault("export.csv_path", "swimsync.csv")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
