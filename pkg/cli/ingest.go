package cli

import (
	"context"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/talaria-bot/talaria/pkg/cli/config"
	"github.com/talaria-bot/talaria/pkg/service/responder"
	"github.com/talaria-bot/talaria/pkg/usecase"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

func cmdIngest() *cli.Command {
	var storeCfg config.Store
	var llmCfg config.LLM

	var flags []cli.Flag
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)

	return &cli.Command{
		Name:      "ingest",
		Aliases:   []string{"i"},
		Usage:     "Index knowledge base files from a directory or a GCS bucket",
		ArgsUsage: "<directory | gs://bucket/prefix>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			source := c.Args().First()
			if source == "" {
				return goerr.New("ingestion source is required (a directory or gs://bucket/prefix)")
			}

			repo, err := storeCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize store")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close store", "error", err.Error())
				}
			}()

			llmClient, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize LLM client")
			}
			if llmClient == nil {
				return goerr.New("LLM configuration is required: set --gemini-project or --openai-api-key")
			}

			responderSvc, err := responder.New(llmClient, nil,
				responder.WithDimension(storeCfg.Dimension()))
			if err != nil {
				return goerr.Wrap(err, "failed to initialize responder")
			}

			ucOpts := []usecase.Option{
				usecase.WithResponder(responderSvc),
			}

			// A dedicated storage client for gs:// sources, closed with the run
			if strings.HasPrefix(source, "gs://") {
				gcsClient, err := storage.NewClient(ctx)
				if err != nil {
					return goerr.Wrap(err, "failed to create storage client")
				}
				defer func() {
					if err := gcsClient.Close(); err != nil {
						logging.Default().Error("failed to close storage client", "error", err.Error())
					}
				}()
				ucOpts = append(ucOpts, usecase.WithStorageClient(gcsClient))
			}

			uc := usecase.New(repo, ucOpts...)

			report, err := uc.Ingest(ctx, source)
			if err != nil {
				return goerr.Wrap(err, "ingestion failed")
			}

			logging.Default().Info("Ingestion finished",
				"source", report.Source,
				"files", report.Files,
				"chunks", report.Chunks,
				"skipped", report.Skipped,
				"elapsed", report.Elapsed.String(),
			)
			return nil
		},
	}
}
