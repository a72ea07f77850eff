package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"notion-mcp/internal/config"
	"notion-mcp/internal/notion"
	"notion-mcp/internal/server"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "notion-mcp",
		Short:         "notion-mcp - MCP server exposing the Notion API as tools over stdio",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}

			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client, err := notion.New(cfg, logger)
			if err != nil {
				if errors.Is(err, notion.ErrMissingToken) {
					fmt.Fprintln(os.Stderr, notion.TokenEnv+" is required")
					os.Exit(2)
				}
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(client, logger, cfg)
			logger.Info("serving notion tools over stdio",
				zap.String("base_url", cfg.BaseURL),
				zap.String("notion_version", cfg.NotionVersion))

			stdio := mcpserver.NewStdioServer(srv.MCPServer())
			return stdio.Listen(ctx, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().String("base-url", config.DefaultBaseURL, "Notion API base URL")
	cmd.Flags().String("notion-version", config.DefaultNotionVersion, "Notion-Version header value")
	cmd.Flags().String("timeout", config.DefaultTimeout.String(), "Per-request HTTP timeout (e.g. 30s)")
	cmd.Flags().Bool("verbose", false, "Enable verbose logging")
	cmd.Flags().String("log-file", "", "Also write logs to a file")

	return cmd
}

// buildLogger builds a zap logger that stays off stdout; stdout carries the
// JSON-RPC stream.
func buildLogger(cfg config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Verbose {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.OutputPaths = []string{"stderr"}
	if cfg.LogFile != "" {
		zcfg.OutputPaths = append(zcfg.OutputPaths, cfg.LogFile)
	}
	return zcfg.Build()
}
