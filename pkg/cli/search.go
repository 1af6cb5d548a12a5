package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/talaria-bot/talaria/pkg/cli/config"
	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/service/responder"
	searchsvc "github.com/talaria-bot/talaria/pkg/service/search"
	"github.com/talaria-bot/talaria/pkg/usecase"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

func cmdSearch() *cli.Command {
	var topK int
	var threshold float64
	var storeCfg config.Store
	var llmCfg config.LLM

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "topk",
			Usage:       "Maximum number of passages to return",
			Value:       searchsvc.DefaultTopK,
			Sources:     cli.EnvVars("TALARIA_SEARCH_TOPK"),
			Destination: &topK,
		},
		&cli.FloatFlag{
			Name:        "threshold",
			Usage:       "Minimum similarity score of a returned passage",
			Value:       searchsvc.DefaultThreshold,
			Sources:     cli.EnvVars("TALARIA_SEARCH_THRESHOLD"),
			Destination: &threshold,
		},
	}
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Query the knowledge base from the command line",
		ArgsUsage: "<query text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return goerr.New("query text is required")
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

			searchSvc, err := searchsvc.New(repo.Document())
			if err != nil {
				return goerr.Wrap(err, "failed to initialize search engine")
			}

			uc := usecase.New(repo,
				usecase.WithResponder(responderSvc),
				usecase.WithSearch(searchSvc),
			)

			results, err := uc.Query(ctx, query, topK, threshold)
			if err != nil {
				return goerr.Wrap(err, "search failed")
			}

			if len(results) == 0 {
				color.Yellow("No passages scored above %.2f", threshold)
				return nil
			}

			printResults(results)
			return nil
		},
	}
}

func printResults(results []*model.SearchResult) {
	rank := color.New(color.FgCyan, color.Bold)
	score := color.New(color.FgYellow)
	source := color.New(color.FgHiBlack)

	for i, r := range results {
		rank.Printf("%d.", i+1)
		score.Printf(" score=%.3f", r.Score)
		if name := r.Document.Metadata[model.MetaFilename]; name != "" {
			source.Printf("  %s", name)
		}
		fmt.Println()

		text := strings.TrimSpace(r.Document.Text())
		fmt.Println("   " + strings.ReplaceAll(text, "\n", "\n   "))
		fmt.Println()
	}
}
