package ports

import (
	"context"

	"github.com/bnema/beright/internal/domain"
)

type EvidenceSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error)
}

type PageFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}
