package app

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"tvp-go/internal/model"
	"tvp-go/internal/provider"
	"tvp-go/internal/tv"
)

// batchFile is the YAML form of a batch:
//
//	operations:
//	  - insert: channel
//	    values: {input_id: com.example/.Input, display_name: One}
//	  - insert: program
//	    values: {title: Pilot}
//	    back_references: {channel_id: 0}
//	  - assert: program
//	    values: {title: Pilot}
//	    expect: 1
type batchFile struct {
	Operations []batchStep `yaml:"operations"`
}

type batchStep struct {
	Insert string `yaml:"insert"`
	Update string `yaml:"update"`
	Delete string `yaml:"delete"`
	Assert string `yaml:"assert"`

	Values         map[string]any `yaml:"values"`
	Selection      string         `yaml:"selection"`
	Args           []any          `yaml:"args"`
	BackReferences map[string]int `yaml:"back_references"`
	Expect         *int64         `yaml:"expect"`
}

// ReadBatch decodes a YAML batch into provider operations.
func ReadBatch(r io.Reader) ([]provider.Operation, error) {
	var f batchFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding batch: %w", err)
	}

	ops := make([]provider.Operation, 0, len(f.Operations))
	for i, step := range f.Operations {
		op, err := step.operation()
		if err != nil {
			return nil, fmt.Errorf("batch step %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (s batchStep) operation() (provider.Operation, error) {
	var (
		kinds []provider.OperationKind
		raw   string
	)
	for kind, target := range map[provider.OperationKind]string{
		provider.KindInsert: s.Insert,
		provider.KindUpdate: s.Update,
		provider.KindDelete: s.Delete,
		provider.KindAssert: s.Assert,
	} {
		if target != "" {
			kinds = append(kinds, kind)
			raw = target
		}
	}
	if len(kinds) != 1 {
		return provider.Operation{}, fmt.Errorf("exactly one of insert, update, delete or assert is required")
	}

	u, err := tv.ParseURI(raw)
	if err != nil {
		return provider.Operation{}, err
	}
	return provider.Operation{
		Kind:           kinds[0],
		URI:            u,
		Values:         model.Values(s.Values),
		Selection:      s.Selection,
		Args:           s.Args,
		BackReferences: s.BackReferences,
		ExpectedCount:  s.Expect,
	}, nil
}
