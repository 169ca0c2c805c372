package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dayche/pkg/batch/component/tasklet/schema"
)

func texts(p schema.Plan) []string {
	out := make([]string, 0, len(p))
	for _, b := range p {
		out = append(out, b.Text)
	}
	return out
}

func TestSeparatorMatch(t *testing.T) {
	sep := schema.MustSeparator("GO")

	cases := []struct {
		line   string
		match  bool
		repeat int
	}{
		{"GO", true, 1},
		{"go", true, 1},
		{"  go  ", true, 1},
		{"Go\r", true, 1},
		{"\tGO\t", true, 1},
		{"GO 3", true, 3},
		{"go\t12 ", true, 12},
		{"GOTO", false, 0},
		{"GOTO label", false, 0},
		{"-- GO", false, 0},
		{"GO 0", false, 0},
		{"GO -1", false, 0},
		{"GO;", false, 0},
		{"SELECT 'GO'", false, 0},
		{"GO 99999999999999999999999", false, 0},
		{"", false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			repeat, ok := sep.Match(tc.line)
			assert.Equal(t, tc.match, ok)
			assert.Equal(t, tc.repeat, repeat)
		})
	}
}

func TestNewSeparator_Invalid(t *testing.T) {
	_, err := schema.NewSeparator("")
	assert.Error(t, err)
	_, err = schema.NewSeparator("G O")
	assert.Error(t, err)
}

func TestSeparator_CustomKeywordIsLiteral(t *testing.T) {
	sep := schema.MustSeparator("$$")
	_, ok := sep.Match("$$")
	assert.True(t, ok)
	_, ok = sep.Match("x")
	assert.False(t, ok)
	assert.Equal(t, "$$", sep.Keyword())
}

func TestSplit_Basic(t *testing.T) {
	script := "CREATE TABLE a (id INT)\nGO\nCREATE TABLE b (id INT)\ngo\nCREATE TABLE c (id INT)"
	plan := schema.Split(script, schema.MustSeparator("GO"))

	require.Len(t, plan, 3)
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)", "CREATE TABLE c (id INT)"}, texts(plan))
	for i, b := range plan {
		assert.Equal(t, i, b.Index)
		assert.Equal(t, 1, b.Repeat)
	}
	assert.Equal(t, 1, plan[0].Line)
	assert.Equal(t, 3, plan[1].Line)
	assert.Equal(t, 5, plan[2].Line)
}

func TestSplit_CRLF(t *testing.T) {
	script := "SELECT 1\r\nGO\r\nSELECT 2\r\n  go  \r\n"
	plan := schema.Split(script, schema.MustSeparator("GO"))

	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, texts(plan))
	for _, b := range plan {
		assert.NotContains(t, b.Text, "\r")
	}
}

func TestSplit_DropsEmptyBatches(t *testing.T) {
	script := "GO\nGO 5\n   \n\nSELECT 1\n\nGO\n\n"
	plan := schema.Split(script, schema.MustSeparator("GO"))

	require.Len(t, plan, 1)
	assert.Equal(t, "SELECT 1", plan[0].Text)
	assert.Equal(t, 0, plan[0].Index)
	assert.Equal(t, 1, plan[0].Repeat)
	assert.Equal(t, 5, plan[0].Line)
}

func TestSplit_EmptyScript(t *testing.T) {
	sep := schema.MustSeparator("GO")
	assert.Empty(t, schema.Split("", sep))
	assert.Empty(t, schema.Split("  \n\t\nGO\n", sep))
}

func TestSplit_RepeatAppliesToPrecedingBatch(t *testing.T) {
	script := "INSERT INTO t DEFAULT VALUES\nGO 3\nSELECT COUNT(*) FROM t"
	plan := schema.Split(script, schema.MustSeparator("GO"))

	require.Len(t, plan, 2)
	assert.Equal(t, 3, plan[0].Repeat)
	assert.Equal(t, 1, plan[1].Repeat)
	assert.Equal(t, 4, plan.Executions())
}

func TestSplit_LeadingRepeatCountIsDropped(t *testing.T) {
	plan := schema.Split("GO 2\nA\nGO", schema.MustSeparator("GO"))

	require.Len(t, plan, 1)
	assert.Equal(t, "A", plan[0].Text)
	assert.Equal(t, 1, plan[0].Repeat)
	assert.Equal(t, 2, plan[0].Line)
	assert.Equal(t, 1, plan.Executions())
}

func TestSplit_KeepsNonSeparatorLookalikes(t *testing.T) {
	script := "GOTO done\n-- GO\nSELECT 'GO'\nGO 0\ndone:"
	plan := schema.Split(script, schema.MustSeparator("GO"))

	require.Len(t, plan, 1)
	assert.Equal(t, strings.TrimSpace(script), plan[0].Text)
}

func TestSplit_Bounds(t *testing.T) {
	sep := schema.MustSeparator("GO")
	script := "a\nGO\nb\nGO\nGO\nc\nGO 2\n"
	plan := schema.Split(script, sep)

	separators := 0
	for _, line := range strings.Split(script, "\n") {
		if _, ok := sep.Match(line); ok {
			separators++
		}
	}
	assert.LessOrEqual(t, len(plan), separators+1)
	for _, b := range plan {
		for _, line := range strings.Split(b.Text, "\n") {
			_, ok := sep.Match(line)
			assert.False(t, ok, "batch %d contains a separator line", b.Index)
		}
	}
	assert.Equal(t, []string{"a", "b", "c"}, texts(plan))
}

func TestPlanScript_RoundTrip(t *testing.T) {
	sep := schema.MustSeparator("GO")
	script := "CREATE TABLE a (id INT)\n\nGO\ninsert into a values (1)\ngo 4\n\n  SELECT *\n  FROM a\n"
	plan := schema.Split(script, sep)

	again := schema.Split(plan.Script("GO"), sep)

	require.Len(t, again, len(plan))
	for i := range plan {
		assert.Equal(t, plan[i].Index, again[i].Index)
		assert.Equal(t, plan[i].Text, again[i].Text)
		assert.Equal(t, plan[i].Repeat, again[i].Repeat)
	}
	assert.Contains(t, plan.Script("GO"), "\nGO 4\n")
}
