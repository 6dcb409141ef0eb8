package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/qa-dataset/internal/pipeline"
	"github.com/sells-group/qa-dataset/internal/store"
)

// openPipeline validates the config for command, opens the store and binds
// a pipeline to the --dataset flag. The caller closes the returned store.
func openPipeline(ctx context.Context, command string) (*pipeline.Pipeline, store.Store, error) {
	if err := cfg.Validate(command); err != nil {
		return nil, nil, err
	}
	if dataset == "" {
		return nil, nil, eris.New("--dataset must not be empty")
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open store")
	}
	return pipeline.New(st, dataset), st, nil
}
