// Package main provides the entry point for the skiff query runner.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsathena "github.com/aws/aws-sdk-go-v2/service/athena"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skiffdb/skiff/cmd/skiff/config"
	"github.com/skiffdb/skiff/pkg/infrastructure/metrics"
	"github.com/skiffdb/skiff/pkg/models"
	"github.com/skiffdb/skiff/pkg/repositories/athena"
	"github.com/skiffdb/skiff/pkg/repositories/s3"
	"github.com/skiffdb/skiff/pkg/services"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "skiff",
	Short: "Skiff asynchronous query runner",
	Long: `Skiff submits a query to a remote asynchronous query engine, polls it
to completion, and retrieves the result set as typed or raw records.`,
}

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Run one query end to end and print its results",
	Long: `Run one query end to end: submit, poll to completion, fetch results.

Example:
  skiff query "SELECT elb_name, request_count FROM elb_logs LIMIT 10" \
    --region us-east-1 --output-location s3://my-bucket/results/
  skiff query "SHOW TABLES" --region us-east-1 --output-location s3://my-bucket/results/`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().String("region", "us-east-1", "engine region")
	queryCmd.Flags().String("workgroup", "", "engine workgroup")
	queryCmd.Flags().String("output-location", "", "result output location (s3://bucket/prefix/)")
	queryCmd.Flags().String("database", "", "database context")
	queryCmd.Flags().String("catalog", "", "catalog context")
	queryCmd.Flags().StringSlice("parameters", nil, "bound execution parameters")
	queryCmd.Flags().String("access-key-id", "", "static access key ID (default credential chain if unset)")
	queryCmd.Flags().String("secret-access-key", "", "static secret access key")
	queryCmd.Flags().String("encryption-option", "", "result encryption option (SSE_S3, SSE_KMS, CSE_KMS)")
	queryCmd.Flags().String("encryption-kms-key", "", "KMS key for result encryption")
	queryCmd.Flags().Duration("poll-interval", time.Second, "healthy-path status poll interval")
	queryCmd.Flags().Int32("page-size", 0, "page size for paged retrieval (0 = full retrieval)")
	queryCmd.Flags().String("next-token", "", "pagination cursor from a previous page")
	queryCmd.Flags().String("format", "typed", "result format (typed, raw)")
	queryCmd.Flags().Bool("metadata", false, "include column metadata in the result")
	queryCmd.Flags().Bool("skip-blank", false, "drop blank lines from raw output")
	queryCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	queryCmd.Flags().Bool("metrics", false, "expose Prometheus metrics while running")
	queryCmd.Flags().String("metrics-address", ":9090", "metrics server address")

	if err := viper.BindPFlags(queryCmd.Flags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("SKIFF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Skiff Query Runner\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := configFromViper()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	var collector metrics.Collector = metrics.NewNoOpCollector()
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector()
		server := metrics.NewMetricsServer(cfg.Metrics.Address)
		go func() {
			if err := server.Start(); err != nil {
				logger.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
		defer server.Stop()
	}

	engine := athena.NewEngine(awsathena.NewFromConfig(awsCfg), logger)
	store := s3.NewStore(awss3.NewFromConfig(awsCfg), logger)

	service, err := services.NewQueryService(
		engine,
		store,
		logger,
		&loggerAdapter{logger: logger},
		&metricsAdapter{collector: collector},
	)
	if err != nil {
		return err
	}

	req := &models.ExecutionRequest{
		Query:          args[0],
		Workgroup:      cfg.Workgroup,
		OutputLocation: cfg.OutputLocation,
		Database:       cfg.Database,
		Catalog:        cfg.Catalog,
		Parameters:     cfg.Parameters,
	}
	if cfg.Encryption.Option != "" {
		req.Encryption = &models.EncryptionSpec{
			Option: cfg.Encryption.Option,
			KMSKey: cfg.Encryption.KMSKey,
		}
	}

	opts := services.QueryOptions{
		PollInterval: cfg.PollInterval,
		Fetch: services.FetchOptions{
			PageSize:        cfg.PageSize,
			NextToken:       cfg.NextToken,
			Typed:           cfg.Format == "typed",
			IncludeMetadata: cfg.IncludeMetadata,
			SkipBlank:       cfg.SkipBlank,
		},
	}

	result, err := service.Query(ctx, req, opts)
	if err != nil {
		return err
	}
	return printResult(result)
}

// configFromViper assembles a Config from bound flags and environment.
func configFromViper() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Region = viper.GetString("region")
	cfg.Workgroup = viper.GetString("workgroup")
	cfg.OutputLocation = viper.GetString("output-location")
	cfg.Database = viper.GetString("database")
	cfg.Catalog = viper.GetString("catalog")
	cfg.Parameters = viper.GetStringSlice("parameters")
	cfg.AccessKeyID = viper.GetString("access-key-id")
	cfg.SecretAccessKey = viper.GetString("secret-access-key")
	cfg.Encryption.Option = viper.GetString("encryption-option")
	cfg.Encryption.KMSKey = viper.GetString("encryption-kms-key")
	cfg.PollInterval = viper.GetDuration("poll-interval")
	cfg.PageSize = viper.GetInt32("page-size")
	cfg.NextToken = viper.GetString("next-token")
	cfg.Format = viper.GetString("format")
	cfg.IncludeMetadata = viper.GetBool("metadata")
	cfg.SkipBlank = viper.GetBool("skip-blank")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.Metrics.Enabled = viper.GetBool("metrics")
	cfg.Metrics.Address = viper.GetString("metrics-address")
	return cfg
}

func buildLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger(), nil
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	optFns := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, optFns...)
}

// printResult writes the result as JSON lines: records, rows, or raw
// lines depending on the retrieval strategy, followed by the cursor and
// column metadata when present.
func printResult(result *models.Result) error {
	enc := json.NewEncoder(os.Stdout)

	for _, record := range result.Records {
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	for _, row := range result.Rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	for _, line := range result.Lines {
		fmt.Println(line)
	}

	if result.NextToken != "" {
		if err := enc.Encode(map[string]string{"next_token": result.NextToken}); err != nil {
			return err
		}
	}
	if len(result.Columns) > 0 {
		if err := enc.Encode(map[string]models.Schema{"columns": result.Columns}); err != nil {
			return err
		}
	}
	return nil
}
