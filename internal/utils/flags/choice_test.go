package flags

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestFormatChoiceUsage(t *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "DefaultFirstChoice",
			defaultChoice:  "table",
			choices:        []string{"table", "yaml", "json"},
			description:    "Render dependencies as a table or a document.",
			expectedOutput: "`<TABLE|yaml|json>` Render dependencies as a table or a document.",
		},
		{
			name:           "DefaultSecondChoice",
			defaultChoice:  "gogit",
			choices:        []string{"shell", "gogit"},
			description:    "Select the git backend.",
			expectedOutput: "`<shell|GOGIT>` Select the git backend.",
		},
		{
			name:           "EmptyDescription",
			defaultChoice:  "shell",
			choices:        []string{"shell", "gogit"},
			description:    "",
			expectedOutput: "`<SHELL|gogit>`",
		},
		{
			name:           "DuplicatesAndWhitespaceIgnored",
			defaultChoice:  "json",
			choices:        []string{" json ", "json", "yaml "},
			description:    "Pick a format.",
			expectedOutput: "`<JSON|yaml>` Pick a format.",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expectedOutput, FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description))
		})
	}
}

func TestChoiceFlagAcceptsOnlyListedValues(t *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		expectedValue string
		expectError   bool
	}{
		{name: "DefaultApplied", arguments: nil, expectedValue: "table"},
		{name: "CaseInsensitive", arguments: []string{"--format", "YAML"}, expectedValue: "yaml"},
		{name: "Shorthand", arguments: []string{"-f", "json"}, expectedValue: "json"},
		{name: "UnknownRejected", arguments: []string{"--format", "xml"}, expectError: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			flagSet := pflag.NewFlagSet(testCase.name, pflag.ContinueOnError)
			var selected string
			AddChoiceFlag(flagSet, &selected, "format", "f", "table", []string{"table", "yaml", "json"}, "Output format.")

			parseError := flagSet.Parse(testCase.arguments)
			if testCase.expectError {
				require.Error(t, parseError)
				require.Contains(t, parseError.Error(), "expected one of table, yaml, json")
				return
			}
			require.NoError(t, parseError)
			require.Equal(t, testCase.expectedValue, selected)
		})
	}
}
