package layout

import (
	"fmt"

	"github.com/funvibe/irslots/internal/ast"
	"github.com/funvibe/irslots/internal/pipeline"
)

// Processor loads and resolves the layout document of a pipeline run.
type Processor struct {
	IDs *ast.IDGenerator
}

// NewProcessor returns a Processor with a fresh ID space.
func NewProcessor() *Processor {
	return &Processor{IDs: ast.NewIDGenerator()}
}

func (p *Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	var (
		doc *Document
		err error
	)
	if ctx.Source != nil {
		doc, err = ParseDocument(ctx.Source, ctx.FilePath)
		if err == nil && len(doc.Includes) > 0 {
			err = fmt.Errorf("%s: includes are only followed for documents read from disk", ctx.FilePath)
		}
	} else {
		doc, err = LoadDocument(ctx.FilePath)
	}
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}

	unit, err := Resolve(doc, p.IDs)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Variables = append(ctx.Variables, unit.Variables...)
	return ctx
}
