// Package pipeline sequences the bootstrap stages.
//
// The pipeline is strictly linear: each stage must succeed before the next
// runs, and the first failure aborts the whole run. Stages are expected to be
// idempotent, so a failed run can simply be re-executed after the operator
// fixes the reported problem.
package pipeline

import (
	"context"
	"fmt"
	"log"
)

// Stage is one step of the bootstrap pipeline.
type Stage struct {
	// Name is the operator-facing stage name used in phase banners and
	// failure diagnostics.
	Name string

	// Run performs the stage. It must be safe to re-run.
	Run func(ctx context.Context) error
}

// Run executes the stages in order, logging a phase banner for each, and
// stops at the first failure.
func Run(ctx context.Context, stages []Stage) error {
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("bootstrap interrupted before stage %q: %w", stage.Name, err)
		}
		log.Printf("Stage %d/%d: %s...", i+1, len(stages), stage.Name)
		if err := stage.Run(ctx); err != nil {
			return fmt.Errorf("stage %q failed: %w", stage.Name, err)
		}
	}
	return nil
}
