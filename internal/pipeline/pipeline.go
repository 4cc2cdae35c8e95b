// Package pipeline cleans and validates scraped items before they are
// persisted. Stages run in order; a stage signals a discarded item with
// a types.DropError, and a dropped item must never reach storage.
package pipeline

import (
	"log/slog"

	"chemstalk/internal/types"
)

// Stage processes an item and returns the (possibly modified) item.
// Returning a *types.DropError discards the item.
type Stage interface {
	// Name returns the stage's identifier.
	Name() string

	// Process transforms an item.
	Process(item *types.ChemicalItem) (*types.ChemicalItem, error)
}

// Pipeline chains stages together.
type Pipeline struct {
	stages []Stage
	logger *slog.Logger
}

// New creates a Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a stage to the chain.
func (p *Pipeline) Use(s Stage) {
	p.stages = append(p.stages, s)
	p.logger.Debug("stage added", "name", s.Name(), "position", len(p.stages))
}

// Process runs the item through all stages in order.
func (p *Pipeline) Process(item *types.ChemicalItem) (*types.ChemicalItem, error) {
	current := item

	for _, s := range p.stages {
		result, err := s.Process(current)
		if err != nil {
			if types.IsDrop(err) {
				p.logger.Debug("item dropped", "stage", s.Name(), "url", item.ProductURL, "reason", err)
			}
			return nil, err
		}
		current = result
	}

	return current, nil
}

// Len returns the number of stages in the chain.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Default returns the normalization chain every crawled item goes
// through before persistence.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TruncateRows{Max: maxRowsPerItem})
	p.Use(&NumericQuantity{})
	p.Use(&UnitWhitelist{})
	p.Use(&RequireRows{})
	return p
}
