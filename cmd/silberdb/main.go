// Package main contains the CLI entry point for the database engine. It
// uses the cobra package for CLI implementation, the same way the
// teacher's cmd/smf/main.go wires its root command and subcommands.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fathurwithyou/silberdb/internal/ccm"
	"github.com/fathurwithyou/silberdb/internal/config"
	"github.com/fathurwithyou/silberdb/internal/processor"
	"github.com/fathurwithyou/silberdb/internal/resultfmt"
	"github.com/fathurwithyou/silberdb/internal/storage"
	"github.com/fathurwithyou/silberdb/internal/wal"
)

type execFlags struct {
	dataDir    string
	configPath string
	format     string
}

type initFlags struct {
	dataDir string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "silberdb",
		Short: "A single-node relational database engine",
	}

	rootCmd.AddCommand(execCmd())
	rootCmd.AddCommand(initCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func execCmd() *cobra.Command {
	flags := &execFlags{}
	cmd := &cobra.Command{
		Use:   "exec <script.sql>",
		Short: "Run every statement in a SQL script against one database",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runExec(args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.dataDir, "data", "", "Data directory (overrides the config file's data_dir)")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to a TOML engine configuration file")
	cmd.Flags().StringVar(&flags.format, "format", "human", "Output format: human or json")

	return cmd
}

func initCmd() *cobra.Command {
	flags := &initFlags{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty database's on-disk layout",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(flags)
		},
	}
	cmd.Flags().StringVar(&flags.dataDir, "data", "data", "Data directory to create")
	return cmd
}

func runInit(flags *initFlags) error {
	s, err := storage.New(flags.dataDir, config.Default().BufferPoolSize)
	if err != nil {
		return fmt.Errorf("failed to initialize storage layout: %w", err)
	}
	_ = s
	if _, err := wal.New(flags.dataDir, config.Default().WALBufferMax); err != nil {
		return fmt.Errorf("failed to initialize write-ahead log: %w", err)
	}
	fmt.Printf("initialized database at %s\n", flags.dataDir)
	return nil
}

func runExec(scriptPath string, flags *execFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}

	s, err := storage.New(cfg.DataDir, cfg.BufferPoolSize)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	walMgr, err := wal.New(cfg.DataDir, cfg.WALBufferMax)
	if err != nil {
		return fmt.Errorf("failed to open write-ahead log: %w", err)
	}

	dispatcher := processor.New(s, ccm.NewAlwaysAllow(), walMgr, cfg)
	formatter, err := resultfmt.NewFormatter(flags.format)
	if err != nil {
		return err
	}

	if actions, err := dispatcher.Recover(); err != nil {
		return fmt.Errorf("recovery failed: %w", err)
	} else if len(actions) > 0 {
		out, ferr := formatter.FormatRecoveryActions(actions)
		if ferr != nil {
			return ferr
		}
		fmt.Print(out)
	}

	content, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	for i, stmt := range splitStatements(string(content)) {
		res, err := dispatcher.Dispatch(stmt)
		if err != nil {
			return fmt.Errorf("statement %d (%s): %w", i+1, truncate(stmt, 60), err)
		}
		if err := printResult(formatter, res); err != nil {
			return err
		}
	}

	if _, err := dispatcher.Checkpoint(); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

func printResult(formatter resultfmt.Formatter, res *processor.Result) error {
	switch {
	case res.Rows != nil:
		out, err := formatter.FormatRows(res.Rows)
		if err != nil {
			return err
		}
		fmt.Print(out)
	case res.Schema != nil:
		out, err := formatter.FormatSchema(res.Schema)
		if err != nil {
			return err
		}
		fmt.Print(out)
	case res.Tables != nil:
		out, err := formatter.FormatTables(res.Tables)
		if err != nil {
			return err
		}
		fmt.Print(out)
	case res.Message != "":
		fmt.Println(res.Message)
	}
	return nil
}

// splitStatements breaks a script into semicolon-terminated statements,
// skipping blank lines and `--` comments, mirroring the teacher's
// splitStatementsBySemicolon fallback (the engine's hand-rolled DML/TCL
// grammar has no tidb AST to restore statements from, so that half of the
// teacher's two-tier splitter doesn't apply here).
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") || trimmed == "" {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";")
			if stmt = strings.TrimSpace(stmt); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}
	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, strings.TrimSuffix(remaining, ";"))
	}
	return statements
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
