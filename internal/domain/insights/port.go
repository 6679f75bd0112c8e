package insights

import "context"

type Client interface {
	Digest(ctx context.Context, prompt string) (string, error)
}
