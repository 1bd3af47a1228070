package feature

// Duplicate describes a record dropped because an earlier record had the same key.
type Duplicate struct {
	Key         Key    `json:"key"`
	Record      Record `json:"record"`
	FirstSource string `json:"first_source"`
}

// Dedup keeps the first record for every key, preserving input order, and
// reports each later occurrence.
func Dedup(records []Record) ([]Record, []Duplicate) {
	seen := make(map[Key]string, len(records))
	kept := make([]Record, 0, len(records))
	var dups []Duplicate

	for _, r := range records {
		k := r.Key()
		if first, ok := seen[k]; ok {
			dups = append(dups, Duplicate{Key: k, Record: r, FirstSource: first})
			continue
		}
		seen[k] = r.SourceArtifact
		kept = append(kept, r)
	}
	return kept, dups
}
