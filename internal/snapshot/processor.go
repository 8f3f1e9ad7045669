package snapshot

import (
	"context"
	"errors"

	"github.com/funvibe/irslots/internal/pipeline"
)

// Processor records the listings of a pipeline run, or with Verify set,
// checks them against the latest recording instead.
type Processor struct {
	Store  *Store
	Label  string
	Verify bool
}

func NewProcessor(store *Store, label string, verify bool) *Processor {
	return &Processor{Store: store, Label: label, Verify: verify}
}

func (p *Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Failed() {
		return ctx
	}
	bg := context.Background()

	if p.Verify {
		for _, l := range ctx.Listings {
			if err := p.Store.Verify(bg, l.BaseName, l.Components); err != nil {
				ctx.Errors = append(ctx.Errors, err)
			}
		}
		return ctx
	}

	run, err := p.Store.BeginRun(bg, p.Label)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.RunID = run.ID.String()
	for _, l := range ctx.Listings {
		if err := p.Store.Save(bg, run, l.BaseName, l.Components); err != nil {
			ctx.Errors = append(ctx.Errors, err)
			return ctx
		}
	}
	return ctx
}

// IsMismatch reports whether err is a MismatchError.
func IsMismatch(err error) bool {
	var me *MismatchError
	return errors.As(err, &me)
}
