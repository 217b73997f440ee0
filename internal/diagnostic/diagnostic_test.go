package diagnostic

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Line: 12, Code: UnmatchedLine, Path: "CK2_Save_game.character", Message: `"foo"`}
	assert.Equal(t, `[line 12] unmatched_line: "foo" (CK2_Save_game.character)`, d.String())

	assert.Equal(t, "stack_underflow", Diagnostic{Code: StackUnderflow}.String())
}

func TestLogReporterWritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	r := LogReporter{Logger: log.New(&buf, "", 0)}
	r.Report(Diagnostic{Line: 3, Code: TagConflict, Message: "a vs b"})
	assert.Equal(t, "[line 3] tag_conflict: a vs b\n", buf.String())
}

func TestTallyCountsAndForwards(t *testing.T) {
	var c Collector
	tally := &Tally{Next: &c}

	tally.Report(Diagnostic{Code: UnknownColumn})
	tally.Report(Diagnostic{Code: UnknownColumn})
	tally.Report(Diagnostic{Code: StackUnderflow})

	require.Len(t, c.Items(), 3)
	assert.Equal(t, 2, c.Count(UnknownColumn))
	assert.Equal(t, map[Code]int{UnknownColumn: 2, StackUnderflow: 1}, tally.Counts())
	assert.Equal(t, "stack_underflow=1 unknown_column=2", tally.Summary())

	tally.Reset()
	assert.Equal(t, "no diagnostics", tally.Summary())
}
