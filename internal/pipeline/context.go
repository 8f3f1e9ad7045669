package pipeline

import "github.com/funvibe/irslots/internal/irvar"

// Processor is one stage of the naming pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx *PipelineContext) *PipelineContext

func (f ProcessorFunc) Process(ctx *PipelineContext) *PipelineContext { return f(ctx) }

// NamedVariable is a variable produced from a layout document binding.
type NamedVariable struct {
	Label    string // what the binding was declared as, for messages
	Variable irvar.Variable
}

// Listing is the slot naming produced for one variable.
type Listing struct {
	Label      string   `yaml:"label"`
	BaseName   string   `yaml:"base"`
	Type       string   `yaml:"type"`
	Components []string `yaml:"components"`
	List       string   `yaml:"list"`
}

// PipelineContext carries state between pipeline stages.
type PipelineContext struct {
	FilePath string
	// Source, when set, is parsed instead of reading FilePath.
	Source []byte

	Variables []NamedVariable
	Listings  []Listing

	// RunID identifies the snapshot run the listings were recorded in.
	RunID string

	Errors []error
}

func NewPipelineContext(filePath string) *PipelineContext {
	return &PipelineContext{FilePath: filePath}
}

// Failed reports whether any stage has recorded an error.
func (ctx *PipelineContext) Failed() bool { return len(ctx.Errors) > 0 }
