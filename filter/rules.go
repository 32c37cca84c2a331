package filter

import (
	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/pkg/dates"
	"github.com/seqsift/seqsift/pkg/metadata"
	"github.com/seqsift/seqsift/types"
	"github.com/seqsift/seqsift/utils"
	"github.com/seqsift/seqsift/utils/logger"
)

// BuildRules assembles the rule pipeline from the run configuration.
// Engines apply rules in slice order and the last matching rule owns a
// record's reason in the run log, so this order is part of the output
// contract.
func BuildRules(cfg *types.FilterConfig, columns []string, group *GroupSpec, useSequences bool) (*types.RuleSet, error) {
	set := &types.RuleSet{}
	hasDate := utils.Contains(columns, constants.DateColumn)

	for _, file := range cfg.Include {
		strains, err := metadata.ReadStrains(file)
		if err != nil {
			return nil, err
		}
		set.Includes = append(set.Includes, types.IncludeStrains{File: file, Strains: strains})
	}
	for _, raw := range cfg.IncludeWhere {
		clause, err := ParseWhere(raw)
		if err != nil {
			return nil, err
		}
		set.Includes = append(set.Includes, types.IncludeWhere{Clause: clause})
	}

	if cfg.ExcludeAll {
		set.Excludes = append(set.Excludes, types.ExcludeAll{})
	}
	if useSequences {
		set.Excludes = append(set.Excludes, types.SequenceIndexRule{})
	}
	for _, file := range cfg.Exclude {
		strains, err := metadata.ReadStrains(file)
		if err != nil {
			return nil, err
		}
		set.Excludes = append(set.Excludes, types.ExcludeStrains{File: file, Strains: strains})
	}
	for _, raw := range cfg.ExcludeWhere {
		clause, err := ParseWhere(raw)
		if err != nil {
			return nil, err
		}
		set.Excludes = append(set.Excludes, types.ExcludeWhere{Clause: clause})
	}
	if cfg.Query != "" {
		expr, err := ParseQuery(cfg.Query)
		if err != nil {
			return nil, err
		}
		if err := ValidateQueryColumns(expr, columns); err != nil {
			return nil, err
		}
		set.Excludes = append(set.Excludes, types.ExcludeByQuery{Query: cfg.Query, Expr: expr})
	}

	if hasDate {
		if cfg.ExcludeAmbiguousDatesBy != "" {
			set.Excludes = append(set.Excludes, types.ExcludeAmbiguousDates{Level: cfg.ExcludeAmbiguousDatesBy})
		}
		if cfg.MinDate != "" {
			bound, ok := dates.BoundMin(cfg.MinDate)
			if !ok {
				return nil, types.Configf("unable to determine a date from %q", cfg.MinDate)
			}
			set.Excludes = append(set.Excludes, types.MinDateRule{Date: cfg.MinDate, Bound: bound})
		}
		if cfg.MaxDate != "" {
			bound, ok := dates.BoundMax(cfg.MaxDate)
			if !ok {
				return nil, types.Configf("unable to determine a date from %q", cfg.MaxDate)
			}
			set.Excludes = append(set.Excludes, types.MaxDateRule{Date: cfg.MaxDate, Bound: bound})
		}
	} else if cfg.ExcludeAmbiguousDatesBy != "" || cfg.MinDate != "" || cfg.MaxDate != "" {
		logger.Warnf("metadata has no %q column, skipping date filters", constants.DateColumn)
	}

	if cfg.MinLength > 0 {
		set.Excludes = append(set.Excludes, types.MinLengthRule{Length: cfg.MinLength})
	}
	if cfg.MaxLength > 0 {
		set.Excludes = append(set.Excludes, types.MaxLengthRule{Length: cfg.MaxLength})
	}

	// The year skip runs after the month skip so a record missing its year
	// is logged under the year rule.
	if group != nil {
		if group.UseMonth {
			set.Excludes = append(set.Excludes, types.SkipAmbiguousGroup{Level: "month"})
		}
		if group.UseYear {
			set.Excludes = append(set.Excludes, types.SkipAmbiguousGroup{Level: "year"})
		}
	}

	if cfg.NonNucleotide {
		set.Excludes = append(set.Excludes, types.NonNucleotideRule{})
	}
	return set, nil
}
