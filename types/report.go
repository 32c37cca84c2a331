package types

// Reason is the last rule that matched a record, as written to the run
// log. Kwargs is the rendered argument JSON so every engine logs the
// same bytes.
type Reason struct {
	Rule   string
	Kwargs string
}

// ReasonCount is the number of records one rule instance dropped or added
// back, in rule application order.
type ReasonCount struct {
	Rule  string
	Args  map[string]any
	Count int64
}

// Report aggregates one run's outcome for the printed summary and the
// exit decision.
type Report struct {
	// MetadataStrains is the number of identifiers read from the metadata.
	MetadataStrains int64
	// NoMetadata counts sequence identifiers with no metadata record.
	NoMetadata int64
	// Counts holds per-rule drop/add-back counts, including grouping skips.
	Counts []ReasonCount
	// SubsampledOut counts records dropped by group quotas.
	SubsampledOut int64
	// Subsampled records whether group quotas were applied at all.
	Subsampled bool
	// Seed echoes the subsample seed when one was supplied.
	Seed *int64
	// Passed is the number of records in the final output.
	Passed int64
}

// Dropped returns the total number of strains that did not pass.
func (r *Report) Dropped() int64 {
	return r.MetadataStrains + r.NoMetadata - r.Passed
}
