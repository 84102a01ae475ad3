// Package pipeline implements the fixed extraction -> transformation -> load
// chain over uploaded PDF documents.
package pipeline

import (
	"context"

	"pdfworkflow/pkg/models"
)

// State is the per-run working set threaded through the chain. Each stage
// reads its predecessor's output and fills in its own; nothing is shared
// between runs.
type State struct {
	RunID          string
	Document       models.Document
	Options        Options
	Extraction     *models.ExtractionResult
	Transformation *models.TransformationResult
	Receipt        *models.LoadReceipt
}

// Stage is one named step of the chain.
type Stage struct {
	Name string
	Run  func(ctx context.Context, st *State) error
}

// Chain is the ordered list of stages. The order is fixed: extraction,
// transformation, load. No branching, no skipping.
type Chain struct {
	stages []Stage
}

// NewChain composes the three stages into a chain.
func NewChain(extractor *Extractor, transformer *Transformer, loader *Loader) *Chain {
	return &Chain{stages: []Stage{
		{
			Name: models.StageExtraction,
			Run: func(_ context.Context, st *State) error {
				ex, err := extractor.Extract(st.Document)
				if err != nil {
					return err
				}
				st.Extraction = ex
				return nil
			},
		},
		{
			Name: models.StageTransformation,
			Run: func(ctx context.Context, st *State) error {
				tr, err := transformer.Transform(ctx, st.Document, st.Extraction, st.Options)
				if err != nil {
					return err
				}
				st.Transformation = tr
				return nil
			},
		},
		{
			Name: models.StageLoad,
			Run: func(_ context.Context, st *State) error {
				receipt, err := loader.Load(st.RunID, st.Transformation)
				if err != nil {
					return err
				}
				st.Receipt = receipt
				return nil
			},
		},
	}}
}

// Run executes the stages in order, halting on the first error. onStage, if
// non-nil, is called with each stage name before it runs.
func (c *Chain) Run(ctx context.Context, st *State, onStage func(name string)) (*models.LoadReceipt, error) {
	for _, stage := range c.stages {
		if onStage != nil {
			onStage(stage.Name)
		}
		if err := stage.Run(ctx, st); err != nil {
			return nil, err
		}
	}
	return st.Receipt, nil
}
