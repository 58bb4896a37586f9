package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zodata/odata-serve/internal/catalog"
	"github.com/zodata/odata-serve/internal/config"
	"github.com/zodata/odata-serve/internal/logging"
	"github.com/zodata/odata-serve/internal/server"
	"github.com/zodata/odata-serve/internal/tabular"
)

var (
	cfg      *config.Config
	cfgFile  string
	datasets []string
)

var rootCmd = &cobra.Command{
	Use:   "odata-serve [name=path[:keycolumn] ...]",
	Short: "Read-only OData v3 server for tabular datasets",
	Long: `Read-only OData v3 server for tabular datasets.

Datasets are CSV files loaded whole at startup and exposed as OData
collections: an Atom service document at the base path, an EDMX schema
at $metadata, and per-collection feeds supporting $select, $filter,
$orderby, $skip, $top and key addressing.

Examples:
  odata-serve tickers.spy=data/tickers.csv:offset
  odata-serve --addr :8080 --base-path /odata --dataset covid19.canada=data/covid.csv
  odata-serve --config odata-serve.yaml`,
	Args:         cobra.ArbitraryArgs,
	RunE:         runServer,
	SilenceUsage: true,
}

func init() {
	// Load .env file if it exists
	godotenv.Load()

	cfg = config.Default()

	// Listener
	rootCmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	rootCmd.Flags().StringVar(&cfg.BasePath, "base-path", cfg.BasePath, "Path prefix the service is mounted under")
	rootCmd.Flags().StringVar(&cfg.BaseURL, "base-url", "", "Public base URL advertised in responses (default: derived from each request)")

	// Schema and query limits
	rootCmd.Flags().StringVar(&cfg.Namespace, "namespace", cfg.Namespace, "Schema namespace used in $metadata")
	rootCmd.Flags().IntVar(&cfg.DefaultRows, "default-rows", cfg.DefaultRows, "Rows returned when $top is absent")
	rootCmd.Flags().IntVar(&cfg.MaxRows, "max-rows", cfg.MaxRows, "Hard cap on rows per response")
	rootCmd.Flags().StringVar(&cfg.OnUnsupported, "on-unsupported", cfg.OnUnsupported, "Columns with no EDM mapping: 'error' fails the request, 'warn' drops the column")

	// Datasets
	rootCmd.Flags().StringArrayVar(&datasets, "dataset", nil, "Dataset to serve, as name=path[:keycolumn] (repeatable)")

	// Logging
	rootCmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	rootCmd.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")

	// Config file
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Path to a YAML config file")

	// Bind flags to viper for environment variable support
	viper.BindPFlag("addr", rootCmd.Flags().Lookup("addr"))
	viper.BindPFlag("base_path", rootCmd.Flags().Lookup("base-path"))
	viper.BindPFlag("base_url", rootCmd.Flags().Lookup("base-url"))
	viper.BindPFlag("namespace", rootCmd.Flags().Lookup("namespace"))
	viper.BindPFlag("default_rows", rootCmd.Flags().Lookup("default-rows"))
	viper.BindPFlag("max_rows", rootCmd.Flags().Lookup("max-rows"))
	viper.BindPFlag("on_unsupported", rootCmd.Flags().Lookup("on-unsupported"))
	viper.BindPFlag("log_level", rootCmd.Flags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.Flags().Lookup("log-format"))

	// Set up environment variable mapping
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ODSERVE")
}

func runServer(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	// Viper merges each key as flag > environment > config file > default.
	cfg.Addr = viper.GetString("addr")
	cfg.BasePath = viper.GetString("base_path")
	cfg.BaseURL = viper.GetString("base_url")
	cfg.Namespace = viper.GetString("namespace")
	cfg.DefaultRows = viper.GetInt("default_rows")
	cfg.MaxRows = viper.GetInt("max_rows")
	cfg.OnUnsupported = viper.GetString("on_unsupported")
	cfg.LogLevel = viper.GetString("log_level")
	cfg.LogFormat = viper.GetString("log_format")

	if err := viper.UnmarshalKey("datasets", &cfg.Datasets); err != nil {
		return fmt.Errorf("parse datasets from config: %w", err)
	}

	// Datasets from --dataset flags and positional arguments
	for _, arg := range append(datasets, args...) {
		ds, err := config.ParseDatasetFlag(arg)
		if err != nil {
			return err
		}
		cfg.Datasets = append(cfg.Datasets, ds)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(cfg.Datasets) == 0 {
		return fmt.Errorf("no datasets configured. Use --dataset name=path[:keycolumn], positional arguments, or a config file")
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	svc := catalog.NewService(catalog.Options{
		BaseURL:       cfg.BaseURL,
		Namespace:     cfg.Namespace,
		DefaultRows:   cfg.DefaultRows,
		MaxRows:       cfg.MaxRows,
		OnUnsupported: cfg.Policy(),
	})
	for _, ds := range cfg.Datasets {
		schema, err := ds.Schema()
		if err != nil {
			return err
		}
		table, err := tabular.LoadCSVFile(ds.Path, schema)
		if err != nil {
			return fmt.Errorf("load dataset %q: %w", ds.Name, err)
		}
		if err := svc.Register(ds.Name, table, ds.KeyColumn); err != nil {
			return err
		}
		slog.Info("Registered dataset", "collection", ds.Name, "path", ds.Path, "rows", table.NumRows())
	}

	srv := server.New(svc, server.Options{
		Addr:     cfg.Addr,
		BasePath: cfg.BasePath,
		BaseURL:  cfg.BaseURL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
