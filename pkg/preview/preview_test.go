package preview

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/ghostcanvas/pkg/filesync"
	"github.com/matzehuels/ghostcanvas/pkg/instrument"
	"github.com/matzehuels/ghostcanvas/pkg/protocol"
)

type capture struct{ batches []protocol.SyncFiles }

func (c *capture) SyncFiles(_ context.Context, b protocol.SyncFiles) error {
	c.batches = append(c.batches, b)
	return nil
}

func TestSinkInstrumentsAndKeepsLastGood(t *testing.T) {
	pub := &capture{}
	sink := NewSink(instrument.New(instrument.Options{}), pub, nil)
	ctx := context.Background()

	good := "export const A = () => <div><p>hi</p></div>;\n"
	err := sink.ApplyBatch(ctx, filesync.Batch{Kind: filesync.Incremental, Updates: map[string]string{
		"/A.tsx":     good,
		"/style.css": "div { color: red }",
	}})
	if err != nil {
		t.Fatal(err)
	}
	first := pub.batches[0]
	if first.Kind != protocol.SyncIncremental {
		t.Errorf("kind = %s", first.Kind)
	}
	if !strings.Contains(first.Updates["/A.tsx"], `data-gc-source="/A.tsx:1:24"`) {
		t.Errorf("not instrumented: %s", first.Updates["/A.tsx"])
	}
	if first.Updates["/style.css"] != "div { color: red }" {
		t.Error("non-markup file should pass through")
	}

	err = sink.ApplyBatch(ctx, filesync.Batch{Kind: filesync.FullReset, Updates: map[string]string{
		"/A.tsx": "export const A = () => <div>;\n",
	}, Deletes: []string{"/old.tsx"}})
	if err != nil {
		t.Fatal(err)
	}
	second := pub.batches[1]
	if second.Kind != protocol.SyncFullReset {
		t.Errorf("kind = %s", second.Kind)
	}
	if second.Updates["/A.tsx"] != first.Updates["/A.tsx"] {
		t.Error("broken file should be served in its last good form")
	}
	if len(second.Deletes) != 1 {
		t.Errorf("deletes = %v", second.Deletes)
	}
}
