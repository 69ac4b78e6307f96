// Package main contains the cli implementation of the tool. It uses cobra
// for command wiring, with a flag struct and a RunE closure per command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dmsreplay/internal/artifact"
	"dmsreplay/internal/config"
	"dmsreplay/internal/locate"
	"dmsreplay/internal/replay"
	"dmsreplay/internal/schedule"
	"dmsreplay/internal/source"
	"dmsreplay/internal/target"
	"dmsreplay/internal/telemetry"
	"dmsreplay/internal/verify"
)

type replayFlags struct {
	bucket             string
	prefix             string
	sourcePostgresURL  string
	targetPostgresURL  string
	databaseName       string
	schemaName         string
	includedTables     []string
	excludedTables     []string
	mode               string
	startDate          string
	stopDate           string
	chunkSize          int
	maxConnections     int
	startPosition      int
	maxParallelTables  int
	onlyReplay         bool
	onlyVerify         bool
	differBinary       string
	debugLog           bool
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "dmsreplay",
		Short: "Replays AWS DMS CDC Parquet artifacts into a target Postgres database",
	}

	rootCmd.AddCommand(replayAndVerifyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func replayAndVerifyCmd() *cobra.Command {
	flags := &replayFlags{}
	cmd := &cobra.Command{
		Use:   "replay-and-verify",
		Short: "Replay exported CDC artifacts into the target database, then verify against the source",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(flags)
		},
	}

	cmd.Flags().StringVar(&flags.bucket, "bucket-name", "", "Object storage bucket holding the exported artifacts (required)")
	cmd.Flags().StringVar(&flags.prefix, "s3-prefix", "", "Prefix under which artifacts are stored")
	cmd.Flags().StringVar(&flags.sourcePostgresURL, "source-postgres-url", "", "Source database connection string (required)")
	cmd.Flags().StringVar(&flags.targetPostgresURL, "target-postgres-url", "", "Target database connection string (required)")
	cmd.Flags().StringVar(&flags.databaseName, "database-name", "", "Source database name as recorded in artifact paths")
	cmd.Flags().StringVar(&flags.schemaName, "database-schema", "public", "Schema to replay")
	cmd.Flags().StringSliceVar(&flags.includedTables, "included-tables", nil, "Only replay these tables (conflicts with --excluded-tables)")
	cmd.Flags().StringSliceVar(&flags.excludedTables, "excluded-tables", nil, "Replay every table except these (conflicts with --included-tables)")
	cmd.Flags().StringVar(&flags.mode, "mode", "date-aware", "Artifact discovery mode: date-aware, full-load-only, or absolute-path")
	cmd.Flags().StringVar(&flags.startDate, "start-date", "", "Only consider CDC artifacts modified after this RFC3339 date")
	cmd.Flags().StringVar(&flags.stopDate, "stop-date", "", "Only consider CDC artifacts modified before this RFC3339 date")
	cmd.Flags().IntVar(&flags.chunkSize, "chunk-size", 10000, "Rows per differ comparison chunk")
	cmd.Flags().IntVar(&flags.maxConnections, "max-connections", 100, "Max connections per database pool, also passed to the differ")
	cmd.Flags().IntVar(&flags.startPosition, "start-position", 0, "Differ start offset")
	cmd.Flags().IntVar(&flags.maxParallelTables, "max-parallel-tables", 80, "Max tables replayed concurrently")
	cmd.Flags().BoolVar(&flags.onlyReplay, "only-replay", false, "Skip verification; replay only")
	cmd.Flags().BoolVar(&flags.onlyVerify, "only-verify", false, "Skip replay; verify only")
	cmd.Flags().StringVar(&flags.differBinary, "differ-binary", "pgdatadiff", "External row-differ executable")
	cmd.Flags().BoolVar(&flags.debugLog, "debug", false, "Emit debug-level, human-readable logs")

	return cmd
}

func run(flags *replayFlags) error {
	mode := config.RunMode{OnlyReplay: flags.onlyReplay, OnlyVerify: flags.onlyVerify}
	if err := mode.Validate(); err != nil {
		return err
	}
	if flags.bucket == "" && mode.ShouldReplay() {
		return fmt.Errorf("--bucket-name is required")
	}
	if flags.sourcePostgresURL == "" {
		return fmt.Errorf("--source-postgres-url is required")
	}
	if flags.targetPostgresURL == "" {
		return fmt.Errorf("--target-postgres-url is required")
	}

	log, err := telemetry.New(flags.debugLog)
	if err != nil {
		return fmt.Errorf("dmsreplay: build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	tuning := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sourceCfg, err := pgxpool.ParseConfig(flags.sourcePostgresURL)
	if err != nil {
		return fmt.Errorf("dmsreplay: parse source url: %w", err)
	}
	targetCfg, err := pgxpool.ParseConfig(flags.targetPostgresURL)
	if err != nil {
		return fmt.Errorf("dmsreplay: parse target url: %w", err)
	}
	if flags.maxConnections > 0 {
		sourceCfg.MaxConns = int32(flags.maxConnections)
		targetCfg.MaxConns = int32(flags.maxConnections)
	}

	sourcePool, err := pgxpool.NewWithConfig(ctx, sourceCfg)
	if err != nil {
		return fmt.Errorf("dmsreplay: connect source: %w", err)
	}
	defer sourcePool.Close()

	targetPool, err := pgxpool.NewWithConfig(ctx, targetCfg)
	if err != nil {
		return fmt.Errorf("dmsreplay: connect target: %w", err)
	}
	defer targetPool.Close()

	sourceReader := source.NewReader(sourcePool)
	targetOperator := target.New(targetPool, log)
	if err := targetOperator.Ping(ctx); err != nil {
		return err
	}

	if mode.ShouldReplay() {
		if err := replayAll(ctx, flags, tuning, sourceReader, targetOperator, log); err != nil {
			return err
		}
	}

	if mode.ShouldVerify() {
		return runVerify(ctx, flags)
	}
	return nil
}

func replayAll(ctx context.Context, flags *replayFlags, tuning *config.Tuning, sourceReader *source.Reader, targetOperator *target.Operator, log *zap.Logger) error {
	if err := targetOperator.CreateSchema(ctx, flags.schemaName); err != nil {
		return err
	}

	tableMode := source.ModeAllTables
	names := flags.includedTables
	if len(flags.includedTables) > 0 {
		tableMode = source.ModeIncludeTables
	} else if len(flags.excludedTables) > 0 {
		tableMode = source.ModeExcludeTables
		names = flags.excludedTables
	}

	tables, err := sourceReader.TablesInSchema(ctx, flags.schemaName, tableMode, names)
	if err != nil {
		return err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("dmsreplay: load aws config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)

	locateMode, err := parseLocateMode(flags.mode)
	if err != nil {
		return err
	}

	var startDate, stopDate *time.Time
	if flags.startDate != "" {
		t, parseErr := time.Parse(time.RFC3339, flags.startDate)
		if parseErr != nil {
			return fmt.Errorf("dmsreplay: parse --start-date: %w", parseErr)
		}
		startDate = &t
	}
	if flags.stopDate != "" {
		t, parseErr := time.Parse(time.RFC3339, flags.stopDate)
		if parseErr != nil {
			return fmt.Errorf("dmsreplay: parse --stop-date: %w", parseErr)
		}
		stopDate = &t
	}

	fetcher := s3Fetcher{client: s3Client}

	tasks := make([]schedule.Task[replay.Result], 0, len(tables))
	for _, table := range tables {
		table := table
		tasks = append(tasks, func(ctx context.Context) (replay.Result, error) {
			artifacts, listErr := locate.List(ctx, s3Client, locate.Request{
				Mode:      locateMode,
				Bucket:    flags.bucket,
				Prefix:    flags.prefix,
				Database:  flags.databaseName,
				Schema:    flags.schemaName,
				Table:     table,
				StartDate: startDate,
				StopDate:  stopDate,
			})
			if listErr != nil {
				return replay.Result{Table: table, State: replay.StateFailed, Err: listErr}, nil
			}

			driver := &replay.Driver{
				Bucket:     flags.bucket,
				Schema:     flags.schemaName,
				Table:      table,
				RowsPerDF:  tuning.RowsPerChunk,
				Throttle:   throttleFor(tuning, flags.schemaName, table),
				SourceMeta: sourceReader,
				Target:     targetOperator,
				Fetcher:    fetcher,
				Log:        log,
			}
			return driver.Run(ctx, artifacts), nil
		})
	}

	results, _ := schedule.Run(ctx, flags.maxParallelTables, tasks)

	var failed []string
	for _, r := range results {
		if r.State == replay.StateFailed {
			failed = append(failed, fmt.Sprintf("%s: %v", r.Table, r.Err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("dmsreplay: %d table(s) failed to replay: %v", len(failed), failed)
	}
	return nil
}

func runVerify(ctx context.Context, flags *replayFlags) error {
	runner := verify.ProcessRunner{BinaryPath: flags.differBinary}
	report, err := verify.Verify(ctx, runner, verify.Options{
		SourceURL:      flags.sourcePostgresURL,
		TargetURL:      flags.targetPostgresURL,
		Schema:         flags.schemaName,
		ChunkSize:      flags.chunkSize,
		StartPosition:  flags.startPosition,
		MaxConnections: flags.maxConnections,
		IncludedTables: flags.includedTables,
		ExcludedTables: flags.excludedTables,
	})
	if err != nil {
		return fmt.Errorf("dmsreplay: verification failed: %w\n%s", err, report.Output)
	}
	if !report.Passed {
		return fmt.Errorf("dmsreplay: verification reported mismatches")
	}
	return nil
}

func parseLocateMode(mode string) (locate.Mode, error) {
	switch mode {
	case "date-aware":
		return locate.ModeDateAware, nil
	case "full-load-only":
		return locate.ModeFullLoadOnly, nil
	case "absolute-path":
		return locate.ModeAbsolutePath, nil
	default:
		return 0, fmt.Errorf("dmsreplay: unknown --mode %q", mode)
	}
}

func throttleFor(tuning *config.Tuning, schema, table string) time.Duration {
	fingerprint := schema + "." + table
	if !tuning.ShouldDelay(fingerprint) {
		return 0
	}
	return time.Duration(tuning.InsertDelayMillis) * time.Millisecond
}

// s3Fetcher adapts the s3.Client to replay.Fetcher.
type s3Fetcher struct {
	client *s3.Client
}

func (f s3Fetcher) Fetch(ctx context.Context, bucket, key string) (*artifact.Batch, error) {
	return artifact.Fetch(ctx, f.client, bucket, key)
}
