// Package messages fetches member messages from the remote message API and
// caches them locally in SQLite.
package messages

import "sort"

// Record is a single member message as served by the message API.
//
// Timestamp is kept exactly as received; it is parsed only when ranking.
type Record struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Text      string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Names returns the distinct non-empty user names of records, sorted.
func Names(records []Record) []string {
	seen := make(map[string]struct{}, len(records))
	names := make([]string, 0)
	for _, r := range records {
		if r.UserName == "" {
			continue
		}
		if _, ok := seen[r.UserName]; ok {
			continue
		}
		seen[r.UserName] = struct{}{}
		names = append(names, r.UserName)
	}
	sort.Strings(names)
	return names
}
