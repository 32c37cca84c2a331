package filter

import (
	"fmt"
	"io"
	"strings"

	"github.com/seqsift/seqsift/types"
)

// reportTemplates maps each rule name to its summary line. Placeholders
// are filled from the rule's logged arguments plus {count}.
var reportTemplates = map[string]string{
	types.RuleSequenceIndex:  "{count} had no sequence data",
	types.RuleExcludeAll:     "{count} of these were dropped by `--exclude-all`",
	types.RuleExcludeStrains: "{count} of these were dropped because they were in {exclude_file}",
	types.RuleExcludeWhere:   "{count} of these were dropped because of '{exclude_where}'",
	types.RuleQuery:          "{count} of these were filtered out by the query: \"{query}\"",
	types.RuleAmbiguousDate:  "{count} of these were dropped because of their ambiguous date in {ambiguity}",
	types.RuleMinDate:        "{count} of these were dropped because they were earlier than {min_date} or missing a date",
	types.RuleMaxDate:        "{count} of these were dropped because they were later than {max_date} or missing a date",
	types.RuleMinLength:      "{count} of these were dropped because they were shorter than minimum length of {min_length}bp",
	types.RuleMaxLength:      "{count} of these were dropped because they were longer than maximum length of {max_length}bp",
	types.RuleNonNucleotide:  "{count} of these were dropped because they had non-nucleotide characters",
	types.RuleSkipYear:       "{count} were dropped during grouping due to ambiguous year information",
	types.RuleSkipMonth:      "{count} were dropped during grouping due to ambiguous month information",
	types.RuleIncludeStrains: "{count} strains were added back because they were in {include_file}",
	types.RuleIncludeWhere:   "{count} sequences were added back because of '{include_where}'",
}

// Render prints the run summary. When nothing passed it returns a data
// error after the summary so callers exit non-zero with the outputs
// already written.
func Render(w io.Writer, rep *types.Report) error {
	fmt.Fprintf(w, "%d strains were dropped during filtering\n", rep.Dropped())

	if rep.NoMetadata > 0 {
		fmt.Fprintf(w, "\t%d had no metadata\n", rep.NoMetadata)
	}

	for _, count := range rep.Counts {
		template, found := reportTemplates[count.Rule]
		if !found {
			template = "{count} were matched by " + count.Rule
		}
		fmt.Fprintf(w, "\t%s\n", expandTemplate(template, count.Count, count.Args))
	}

	if rep.Subsampled {
		seedText := ""
		if rep.Seed != nil && *rep.Seed != 0 {
			seedText = fmt.Sprintf(", using seed %d", *rep.Seed)
		}
		fmt.Fprintf(w, "\t%d of these were dropped because of subsampling criteria%s\n", rep.SubsampledOut, seedText)
	}

	if rep.Passed == 0 {
		return types.Dataf("All samples have been dropped! Check filter rules and metadata file format.")
	}
	fmt.Fprintf(w, "%d strains passed all filters\n", rep.Passed)
	return nil
}

func expandTemplate(template string, count int64, args map[string]any) string {
	line := strings.ReplaceAll(template, "{count}", fmt.Sprintf("%d", count))
	for key, value := range args {
		line = strings.ReplaceAll(line, "{"+key+"}", fmt.Sprint(value))
	}
	return line
}
