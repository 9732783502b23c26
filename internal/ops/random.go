package ops

import (
	"context"
	"math/rand/v2"

	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/errors"
)

// Random decodes a uniformly chosen table row. It is the self-test: every
// row must decode. A nil rng uses the global source.
func Random(ctx context.Context, env *Env, rng *rand.Rand) (*DecodeOutput, error) {
	n := env.KB.Count()
	if n == 0 {
		return nil, errors.NewInvalidRequest("knowledge base is empty")
	}

	var i int
	if rng != nil {
		i = rng.IntN(n)
	} else {
		i = rand.IntN(n)
	}
	return decodeCode(ctx, env, env.KB.EntryAt(i).Code, db.SourceRandom)
}
