package pipeline

import (
	"fmt"

	"github.com/funvibe/irslots/internal/irvar"
)

// NamingProcessor flattens every variable in the context into a Listing.
// Invariant failures are recorded as errors for the offending variable only.
type NamingProcessor struct{}

func NewNamingProcessor() *NamingProcessor { return &NamingProcessor{} }

func (p *NamingProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Failed() {
		return ctx
	}
	for _, nv := range ctx.Variables {
		var listing Listing
		err := irvar.Catch(func() {
			v := nv.Variable
			listing = Listing{
				Label:      nv.Label,
				BaseName:   v.BaseName(),
				Type:       v.Type().String(),
				Components: v.StackComponents(),
				List:       v.CommaSeparatedList(),
			}
		})
		if err != nil {
			ctx.Errors = append(ctx.Errors, fmt.Errorf("%s: %w", nv.Label, err))
			continue
		}
		ctx.Listings = append(ctx.Listings, listing)
	}
	return ctx
}
