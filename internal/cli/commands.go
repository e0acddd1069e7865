package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goforj/cachectl"
	"github.com/goforj/cachectl/internal/config"
	"github.com/goforj/cachectl/internal/logging"
)

type flags struct {
	configPath string
	file       config.File
}

// NewRootCmd builds the cachectl command tree. A nil dial uses cachectl.Dial.
func NewRootCmd(dial cachectl.DialFunc) *cobra.Command {
	fl := &flags{}
	root := &cobra.Command{
		Use:   "cachectl",
		Short: "Clear and inspect keys in a cache store",
		// Operations narrate their own failures.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&fl.configPath, "config", "", "TOML config file")
	pf.StringVar(&fl.file.Driver, "driver", "", "cache driver (redis, memcached, nats, sql, dynamodb, file, memory)")
	pf.StringVar(&fl.file.Host, "host", "", "store host (default localhost)")
	pf.IntVar(&fl.file.Port, "port", 0, "store port (default: the driver's well-known port)")
	pf.StringVar(&fl.file.Username, "username", "", "optional username")
	pf.StringVar(&fl.file.Password, "password", "", "optional password")
	pf.IntVar(&fl.file.DB, "db", 0, "redis logical database")
	pf.StringVar(&fl.file.DialTimeout, "dial-timeout", "", "connect timeout, e.g. 5s")
	pf.StringVar(&fl.file.NATS.Bucket, "bucket", "", "NATS key-value bucket")
	pf.StringVar(&fl.file.SQL.Driver, "sql-driver", "", "database/sql driver (pgx, postgres, mysql, sqlite)")
	pf.StringVar(&fl.file.SQL.DSN, "sql-dsn", "", "database/sql DSN")
	pf.StringVar(&fl.file.SQL.Database, "sql-database", "", "database name when no DSN is given")
	pf.StringVar(&fl.file.SQL.Table, "sql-table", "", "cache table")
	pf.StringVar(&fl.file.Dynamo.Table, "dynamo-table", "", "DynamoDB table")
	pf.StringVar(&fl.file.Dynamo.Region, "dynamo-region", "", "DynamoDB region")
	pf.StringVar(&fl.file.Dynamo.Endpoint, "dynamo-endpoint", "", "DynamoDB endpoint override")
	pf.StringVar(&fl.file.Files.Dir, "file-dir", "", "file cache directory")
	pf.BoolVar(&fl.file.DryRun, "dry-run", false, "report what would be removed without removing it")
	pf.StringVar(&fl.file.LogLevel, "log-level", "", "diagnostic log level (debug, info, warn, error, off)")

	root.AddCommand(
		opCmd(fl, dial, cachectl.OpFlush, "flush", "Remove every key in the selected namespace (irreversible)"),
		opCmd(fl, dial, cachectl.OpClearPattern, "clear-pattern PATTERN", "Delete every key matching a glob pattern"),
		opCmd(fl, dial, cachectl.OpClearKeys, "clear-keys KEY...", "Delete the listed keys that exist"),
		opCmd(fl, dial, cachectl.OpList, "list [PATTERN]", "List keys, all of them by default"),
	)
	return root
}

// opCmd leaves argument checks to Tool.Run so arity errors are narrated
// like any other failure.
func opCmd(fl *flags, dial cachectl.DialFunc, op cachectl.Operation, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, logger, err := fl.tool(cmd, dial)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return err
			}
			defer func() { _ = logger.Sync() }()
			_, err = tool.Run(cmd.Context(), op, args...)
			return err
		},
	}
}

// tool merges config file, environment and explicitly set flags, in
// increasing precedence.
func (fl *flags) tool(cmd *cobra.Command, dial cachectl.DialFunc) (*cachectl.Tool, *zap.Logger, error) {
	var merged config.File
	if fl.configPath != "" {
		f, err := config.Load(fl.configPath)
		if err != nil {
			return nil, nil, err
		}
		merged = f
	}
	if err := config.ApplyEnv(&merged, os.Getenv); err != nil {
		return nil, nil, err
	}
	fl.applyChanged(cmd, &merged)

	cfg, err := merged.Config()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), logging.ProfileRuntime, merged.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	tool := cachectl.NewTool(cfg,
		cachectl.WithOutput(cmd.OutOrStdout()),
		cachectl.WithLogger(logger),
		cachectl.WithObserver(cachectl.NewLogObserver(logger)),
		cachectl.WithDialer(dial),
		cachectl.WithDryRun(merged.DryRun),
	)
	return tool, logger, nil
}

func (fl *flags) applyChanged(cmd *cobra.Command, dst *config.File) {
	set := cmd.Flags().Changed
	src := fl.file
	if set("driver") {
		dst.Driver = src.Driver
	}
	if set("host") {
		dst.Host = src.Host
	}
	if set("port") {
		dst.Port = src.Port
	}
	if set("username") {
		dst.Username = src.Username
	}
	if set("password") {
		dst.Password = src.Password
	}
	if set("db") {
		dst.DB = src.DB
	}
	if set("dial-timeout") {
		dst.DialTimeout = src.DialTimeout
	}
	if set("bucket") {
		dst.NATS.Bucket = src.NATS.Bucket
	}
	if set("sql-driver") {
		dst.SQL.Driver = src.SQL.Driver
	}
	if set("sql-dsn") {
		dst.SQL.DSN = src.SQL.DSN
	}
	if set("sql-database") {
		dst.SQL.Database = src.SQL.Database
	}
	if set("sql-table") {
		dst.SQL.Table = src.SQL.Table
	}
	if set("dynamo-table") {
		dst.Dynamo.Table = src.Dynamo.Table
	}
	if set("dynamo-region") {
		dst.Dynamo.Region = src.Dynamo.Region
	}
	if set("dynamo-endpoint") {
		dst.Dynamo.Endpoint = src.Dynamo.Endpoint
	}
	if set("file-dir") {
		dst.Files.Dir = src.Files.Dir
	}
	if set("dry-run") {
		dst.DryRun = src.DryRun
	}
	if set("log-level") {
		dst.LogLevel = src.LogLevel
	}
}
