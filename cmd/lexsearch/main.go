// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the lexsearch CLI: unified legal
// research search across Westlaw and LexisNexis with a two-tier result
// cache.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meshintell/lexsearch/internal/cache"
	"github.com/meshintell/lexsearch/internal/docstore"
	"github.com/meshintell/lexsearch/internal/search"
	"github.com/meshintell/lexsearch/internal/secrets"
	"github.com/meshintell/lexsearch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the lexsearch CLI.
var rootCmd = &cobra.Command{
	Use:   "lexsearch",
	Short: "Unified legal research search across Westlaw and LexisNexis",
	Long: `lexsearch queries commercial legal research APIs (Westlaw, LexisNexis)
through one interface. Results are deduplicated across providers, merged by a
configurable strategy, and cached in a two-tier store (in-process plus Redis)
so repeat queries spend no provider quota.

Subcommands cover search, document retrieval, citation validation, and cache
administration.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./lexsearch.yaml or ~/.config/lexsearch/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("lexsearch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "lexsearch"))
		}
	}

	viper.SetEnvPrefix("LEXSEARCH")
	viper.AutomaticEnv()

	viper.SetDefault("user_agent", "lexsearch/"+version)
	viper.SetDefault("timeout", "30s")
	viper.SetDefault("westlaw.enabled", true)
	viper.SetDefault("westlaw.max_results", 50)
	viper.SetDefault("lexisnexis.enabled", true)
	viper.SetDefault("lexisnexis.max_results", 50)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadEngineConfig decodes the viper state into an EngineConfig and
// fills API keys from loaded secrets when the config leaves them empty.
func loadEngineConfig() (types.EngineConfig, error) {
	var cfg types.EngineConfig
	err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
	if err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	if cfg.Westlaw.APIKey == "" {
		cfg.Westlaw.APIKey = loadedSecrets["westlaw-api-key"]
	}
	if cfg.LexisNexis.APIKey == "" {
		cfg.LexisNexis.APIKey = loadedSecrets["lexisnexis-api-key"]
	}
	return cfg, nil
}

// app bundles the constructed engine with the resources it owns.
type app struct {
	engine *search.Engine
	store  *cache.Store
	logger *zap.Logger

	archive *docstore.Store
	cancel  context.CancelFunc
}

// newApp builds the engine and its dependencies from configuration.
// Everything is constructed here and passed by reference; no package
// holds global state.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadEngineConfig()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd)
	ctx, cancel := context.WithCancel(context.Background())

	metrics := cache.NewRecorder()
	store := cache.New(ctx, cfg.Cache, metrics, logger)
	store.StartSweep(ctx)

	var archive *docstore.Store
	if cfg.DocumentsDir != "" {
		archive, err = docstore.New(cfg.DocumentsDir)
		if err != nil {
			cancel()
			_ = store.Close()
			return nil, err
		}
	}

	return &app{
		engine:  search.NewEngine(cfg, store, metrics, archive, logger),
		store:   store,
		logger:  logger,
		archive: archive,
		cancel:  cancel,
	}, nil
}

func (a *app) close() {
	a.cancel()
	if a.archive != nil {
		_ = a.archive.Close()
	}
	_ = a.store.Close()
	_ = a.logger.Sync()
}

func newLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
