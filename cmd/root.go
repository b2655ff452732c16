// Package cmd implements the graphdoc command line interface.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/GraphiteEditor/graphdoc/internal/cachemanager"
	"github.com/GraphiteEditor/graphdoc/internal/compiler"
	"github.com/GraphiteEditor/graphdoc/internal/config"
	"github.com/GraphiteEditor/graphdoc/internal/graph"
	"github.com/GraphiteEditor/graphdoc/internal/infrastructure/sqlite"
	"github.com/GraphiteEditor/graphdoc/internal/log"
	"github.com/GraphiteEditor/graphdoc/internal/proto"
	"github.com/GraphiteEditor/graphdoc/internal/tracing"
)

var (
	version = "dev"
	cfgFile  string
	debug    bool
	traceOut bool
	cfg      config.Config
)

var rootCmd = &cobra.Command{
	Use:     "graphdoc",
	Short:   "Compile and manage node graph documents",
	Long:    `Graphdoc compiles nested node-network documents into flat executor-ready proto-networks, and stores documents with their full edit history.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/graphdoc/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&traceOut, "trace", false,
		"trace compile passes to stdout")
	rootCmd.PersistentFlags().String("db", "",
		"path to the document store database")

	_ = viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("database_path", defaults.DatabasePath)
	viper.SetDefault("compiler.cache_enabled", defaults.Compiler.CacheEnabled)
	viper.SetDefault("compiler.cache_ttl_minutes", defaults.Compiler.CacheTTLMinutes)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("watch.debounce_millis", defaults.Watch.DebounceMillis)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .graphdoc/config.yaml (current directory)
		// 2. ~/.config/graphdoc/config.yaml (user config)
		if _, err := os.Stat(".graphdoc/config.yaml"); err == nil {
			viper.SetConfigFile(".graphdoc/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "graphdoc"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Continue with defaults; `graphdoc config init` writes a file.
			log.Debug(log.CatConfig, "no config file found, using defaults")
		}
	}

	_ = viper.Unmarshal(&cfg)

	if debug {
		log.SetMinLevel(log.LevelDebug)
	} else {
		log.SetMinLevel(log.LevelInfo)
	}
	if cfg.LogPath != "" {
		// Shutdown is deliberately left to process exit; the log file is
		// line buffered.
		_, _ = log.Init(cfg.LogPath)
	}
}

// newCompiler builds a compiler from the loaded configuration. The returned
// shutdown func flushes trace spans and must be called before exit.
func newCompiler(ctx context.Context) (*compiler.Compiler, func(), error) {
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}

	if traceOut {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = "stdout"
	}
	provider, err := tracing.NewProvider(cfg.Tracing.ToTracing())
	if err != nil {
		return nil, nil, fmt.Errorf("initializing tracing: %w", err)
	}
	shutdown := func() { _ = provider.Shutdown(ctx) }

	opts := []compiler.Option{compiler.WithTracer(provider.Tracer())}
	if cfg.Compiler.Seed != 0 {
		opts = append(opts, compiler.WithSeed(cfg.Compiler.Seed))
	}
	if cfg.Compiler.CacheEnabled {
		cache := cachemanager.NewInMemoryCacheManager[compiler.CacheKey, *proto.Network](
			"compile", cfg.Compiler.CacheTTL(), cachemanager.DefaultCleanupInterval)
		opts = append(opts, compiler.WithCache(cache))
	}
	return compiler.New(opts...), shutdown, nil
}

// openStore opens the configured document store.
func openStore() (*sqlite.DB, error) {
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("no database path configured")
	}
	return sqlite.NewDB(cfg.DatabasePath)
}

// loadNetwork reads a nested node network from a JSON document file.
func loadNetwork(path string) (*graph.NodeNetwork, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	var network graph.NodeNetwork
	if err := json.Unmarshal(data, &network); err != nil {
		return nil, fmt.Errorf("parsing document %s: %w", path, err)
	}
	return &network, nil
}

// renderOutput writes v as JSON or YAML. YAML rendering goes through the
// canonical JSON form so sum types keep their kind tags.
func renderOutput(cmd *cobra.Command, v any, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	case "yaml":
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return err
		}
		cmd.Print(string(out))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (must be \"json\" or \"yaml\")", format)
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
