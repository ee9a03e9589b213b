package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "bookrag", Version: "1.2.3"}
	root.PersistentFlags().Bool("output", false, "Output as JSON")
	AddHelpJSONFlag(root)

	eval := &cobra.Command{Use: "eval --file <cases.jsonl>", Short: "Evaluate", RunE: func(*cobra.Command, []string) error { return nil }}
	eval.Flags().StringP("file", "f", "", "Eval file")
	_ = eval.MarkFlagRequired("file")

	ask := &cobra.Command{Use: "ask <question>", Short: "Ask", RunE: func(*cobra.Command, []string) error { return nil }}
	ask.Flags().Int("top-k", 0, "Top k")

	root.AddCommand(eval, ask)
	return root
}

func flagNamed(t *testing.T, flags []FlagSchema, name string) FlagSchema {
	t.Helper()
	for _, f := range flags {
		if f.Name == name {
			return f
		}
	}
	require.Failf(t, "flag not found", name)
	return FlagSchema{}
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(testTree())

	assert.Equal(t, "bookrag", schema.Name)
	assert.Equal(t, "1.2.3", schema.Version)
	require.Len(t, schema.Subcommands, 2)

	var ask, eval CommandSchema
	for _, s := range schema.Subcommands {
		switch s.Name {
		case "ask":
			ask = s
		case "eval":
			eval = s
		}
	}

	assert.Equal(t, "<question>", ask.Args)
	assert.False(t, flagNamed(t, ask.Flags, "top-k").Required)
	assert.True(t, flagNamed(t, ask.Flags, "output").Inherited)

	file := flagNamed(t, eval.Flags, "file")
	assert.True(t, file.Required)
	assert.Equal(t, "f", file.Shorthand)

	for _, f := range eval.Flags {
		assert.NotEqual(t, helpJSONFlag, f.Name)
	}
}

func TestHelpJSONTarget(t *testing.T) {
	root := testTree()

	target, ok := helpJSONTarget(root, []string{"eval", "--help-json"})
	require.True(t, ok)
	assert.Equal(t, "eval", target.Name())

	target, ok = helpJSONTarget(root, []string{"--help-json"})
	require.True(t, ok)
	assert.Equal(t, root, target)

	target, ok = helpJSONTarget(root, []string{"unknown", "--help-json"})
	require.True(t, ok)
	assert.Equal(t, root, target)

	_, ok = helpJSONTarget(root, []string{"ask", "hello"})
	assert.False(t, ok)
}
