package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/wikipub/internal/logging"
	"github.com/ppiankov/wikipub/internal/model"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=..."
var version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "wikipub",
	Short: "wikipub - fill in \"published in\" for Wikisource works on Wikidata",
	Long: `wikipub walks Wikisource pages that are parts of larger works (articles in
a journal issue, chapters of a collection), works out which work each page
was published in, and aligns the "published in" claim of the page's
Wikidata item with it.

The target comes from the page's navigation template when it declares a
title, otherwise from the nearest ancestor page that has an item. Every edit
is proposed first and applied only when confirmed. Conflicting claims are
never guessed at; they are handed to a human for review.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of wikipub.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wikipub %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.wikipub/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (auto, console, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env files, the config file and WIKIPUB_* variables
func initConfig() {
	// .env.local overrides .env; neither overrides the real environment
	for _, envFile := range []string{".env.local", ".env"} {
		if err := godotenv.Load(envFile); err == nil && verbose {
			fmt.Fprintf(os.Stderr, "Loaded %s\n", envFile)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".wikipub"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	setDefaults("", reflect.ValueOf(*model.DefaultConfig()))

	// Read in environment variables that match WIKIPUB_*, e.g. WIKIPUB_AUTH_PASSWORD
	viper.SetEnvPrefix("WIKIPUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key with viper so that environment
// variables are seen by Unmarshal
func setDefaults(prefix string, v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Duration(0)) {
			setDefaults(key, fv)
			continue
		}
		viper.SetDefault(key, fv.Interface())
	}
}

// loadConfig merges defaults, the config file, the environment and global flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger and makes it the default
func newLogger(cfg *model.Config) zerolog.Logger {
	level := cfg.Logging.Level
	if cfg.Output.Verbose && (level == "" || level == "info") {
		level = "debug"
	}
	log := logging.New(&logging.Config{Level: level, Format: cfg.Logging.Format})
	logging.SetDefault(log)
	return log
}
