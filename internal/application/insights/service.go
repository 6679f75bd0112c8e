package insights

import (
	"context"

	"fanfilter/internal/domain/insights"
)

type Service struct {
	client insights.Client
}

func NewService(client insights.Client) *Service {
	return &Service{client: client}
}

// Digest summarizes the analysis notes of an already-streamed result set.
// It operates purely on consumer-side data; relevance scoring stays with the
// upstream job.
func (s *Service) Digest(ctx context.Context, prompt string) (string, error) {
	if s.client == nil {
		return "", insights.ErrDisabled
	}
	return s.client.Digest(ctx, prompt)
}
