package model

// SystemStats is the system-wide aggregation output. TotalUsers is the
// cardinality of the merged identity set, not the sum of per-collection
// counts: a user present in three collections counts once.
type SystemStats struct {
	TotalUsers       int               `json:"total_users"`
	CollectionCounts map[string]int    `json:"collection_counts"`
	ScanFailures     map[string]string `json:"scan_failures,omitempty"`
}
