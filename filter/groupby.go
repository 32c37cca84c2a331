package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/pkg/dates"
	"github.com/seqsift/seqsift/types"
	"github.com/seqsift/seqsift/utils/logger"
)

// GroupSpec is the validated grouping configuration. Columns keeps the
// requested order; Unknown marks requested columns absent from the
// metadata, which group every record under the literal "unknown".
type GroupSpec struct {
	Columns  []string
	Unknown  map[string]bool
	UseYear  bool
	UseMonth bool
}

// ValidateGroupBy checks requested group-by columns against the metadata
// header. The generated year and month buckets need a date column; other
// unknown columns degrade to a shared "unknown" bucket with a warning.
func ValidateGroupBy(groupBy, metadataColumns []string) (*GroupSpec, error) {
	spec := &GroupSpec{
		Columns: append([]string(nil), groupBy...),
		Unknown: make(map[string]bool),
	}
	if len(groupBy) == 0 {
		return spec, nil
	}

	present := make(map[string]bool, len(metadataColumns))
	for _, col := range metadataColumns {
		present[col] = true
	}
	hasDate := present[constants.DateColumn]

	derivedOnly := true
	anyKnown := false
	for _, col := range groupBy {
		derived := col == constants.GroupByYear || col == constants.GroupByMonth
		if !derived {
			derivedOnly = false
		}
		if derived || present[col] {
			anyKnown = true
		}
	}
	if derivedOnly && !hasDate {
		return nil, types.Configf(
			"the specified group-by categories (%s) were not found; using 'year' or 'year month' requires a column called 'date'",
			strings.Join(groupBy, ", "))
	}
	if !anyKnown {
		return nil, types.Configf("the specified group-by categories (%s) were not found", strings.Join(groupBy, ", "))
	}

	var unknown []string
	for _, col := range groupBy {
		switch col {
		case constants.GroupByYear:
			if hasDate {
				spec.UseYear = true
				continue
			}
			logger.Warnf("a 'date' column could not be found to group-by year")
			spec.Unknown[col] = true
			unknown = append(unknown, col)
		case constants.GroupByMonth:
			if hasDate {
				spec.UseMonth = true
				continue
			}
			logger.Warnf("a 'date' column could not be found to group-by month")
			spec.Unknown[col] = true
			unknown = append(unknown, col)
		default:
			if !present[col] {
				spec.Unknown[col] = true
				unknown = append(unknown, col)
			}
		}
	}
	if len(unknown) > 0 {
		logger.Warnf("some of the specified group-by categories could not be found: %s", strings.Join(unknown, ", "))
		logger.Warnf("filtering by group may behave differently than expected")
	}
	return spec, nil
}

// YearBucket renders the grouping value of the derived year column.
func YearBucket(year int) string {
	return strconv.Itoa(year)
}

// MonthBucket renders the derived month column. The year is part of the
// bucket so the same calendar month in different years never merges.
func MonthBucket(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}

// groupKeySeparator joins bucket values into one key. Both engines build
// keys through KeyFromParts, so quota draws see identical group keys.
const groupKeySeparator = "\x1e"

func KeyFromParts(parts []string) string {
	return strings.Join(parts, groupKeySeparator)
}

// KeyOf assigns one record to its group. The second return is false when
// a required date bucket cannot be derived; such records were already
// dropped by the grouping skip rules.
func (s *GroupSpec) KeyOf(record types.Record, d dates.Date) (string, bool) {
	parts, ok := s.Parts(record, d)
	if !ok {
		return "", false
	}
	return KeyFromParts(parts), true
}

// Parts returns the ordered bucket values of one record.
func (s *GroupSpec) Parts(record types.Record, d dates.Date) ([]string, bool) {
	parts := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		switch {
		case s.Unknown[col]:
			parts = append(parts, constants.UnknownGroupValue)
		case col == constants.GroupByYear && s.UseYear:
			if !d.HasYear {
				return nil, false
			}
			parts = append(parts, YearBucket(d.Year))
		case col == constants.GroupByMonth && s.UseMonth:
			if !d.HasYear || !d.HasMonth {
				return nil, false
			}
			parts = append(parts, MonthBucket(d.Year, d.Month))
		default:
			parts = append(parts, record[col])
		}
	}
	return parts, true
}
