package app

import (
	"strings"
	"testing"

	"tvp-go/internal/provider"
)

func TestReadBatch(t *testing.T) {
	ops, err := ReadBatch(strings.NewReader(`
operations:
  - insert: channel
    values: {input_id: in}
  - update: content://tv/channel/1
    values: {display_name: One}
    expect: 1
  - delete: program
    selection: title=?
    args: [Pilot]
  - assert: program
    back_references: {channel_id: 0}
`))
	if err != nil {
		t.Fatalf("ReadBatch() error = %v", err)
	}

	wantKinds := []provider.OperationKind{provider.KindInsert, provider.KindUpdate, provider.KindDelete, provider.KindAssert}
	if len(ops) != len(wantKinds) {
		t.Fatalf("ReadBatch() returned %d operations, want %d", len(ops), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if ops[i].Kind != kind {
			t.Errorf("ops[%d].Kind = %v, want %v", i, ops[i].Kind, kind)
		}
	}
	if got := ops[1].URI.Path(); got != "channel/1" {
		t.Errorf("ops[1].URI = %q, want %q", got, "channel/1")
	}
	if ops[1].ExpectedCount == nil || *ops[1].ExpectedCount != 1 {
		t.Errorf("ops[1].ExpectedCount = %v, want 1", ops[1].ExpectedCount)
	}
	if ops[2].Selection != "title=?" || len(ops[2].Args) != 1 {
		t.Errorf("ops[2] selection = %q args = %v", ops[2].Selection, ops[2].Args)
	}
	if ops[3].BackReferences["channel_id"] != 0 || ops[3].Values != nil {
		t.Errorf("ops[3] = %+v", ops[3])
	}
}

func TestReadBatch_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "no target", input: "operations:\n  - values: {a: 1}\n"},
		{name: "two targets", input: "operations:\n  - insert: channel\n    delete: channel\n"},
		{name: "bad uri", input: "operations:\n  - insert: \"content://radio/channel\"\n"},
		{name: "not yaml", input: "operations: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadBatch(strings.NewReader(tt.input)); err == nil {
				t.Error("ReadBatch() expected error")
			}
		})
	}
}
