package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// Query embeds the text and searches the document store directly, without
// the messaging pipeline. Non-positive topK and negative threshold fall
// back to the configured defaults.
func (uc *UseCases) Query(ctx context.Context, text string, topK int, threshold float64) ([]*model.SearchResult, error) {
	if uc.responder == nil || uc.search == nil {
		return nil, goerr.New("query requires the responder and search services",
			goerr.V("responder", uc.responder != nil),
			goerr.V("search", uc.search != nil))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerr.New("query text is required", goerr.T(types.ErrTagInvalidInput))
	}

	if topK <= 0 {
		topK = uc.topK
	}
	if threshold < 0 {
		threshold = uc.threshold
	}

	embedding, err := uc.responder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	return uc.search.Search(ctx, embedding, topK, threshold)
}
