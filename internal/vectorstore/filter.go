package vectorstore

import "fmt"

// UserFilter restricts a query to one member's messages.
func UserFilter(userName string) map[string]string {
	return map[string]string{MetaUserName: userName}
}

// DomainFilter matches every message entry. It is the broad filter used to
// clear stores that do not implement Truncater.
func DomainFilter() map[string]string {
	return map[string]string{MetaDomain: DomainMessage}
}

// ValidateFilter rejects filters with empty keys or values. A nil or empty
// filter is valid and means "no restriction".
func ValidateFilter(filter map[string]string) error {
	for k, v := range filter {
		if k == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidFilter)
		}
		if v == "" {
			return fmt.Errorf("%w: empty value for %q", ErrInvalidFilter, k)
		}
	}
	return nil
}

// validateEntries checks IDs and embedding dimensions before a write.
// A dim of 0 accepts any consistent dimension.
func validateEntries(entries []Entry, dim int) error {
	if len(entries) == 0 {
		return ErrEmptyEntries
	}
	if dim == 0 {
		dim = len(entries[0].Embedding)
	}
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: entry %d has no ID", ErrInvalidEntry, i)
		}
		if len(e.Embedding) == 0 {
			return fmt.Errorf("%w: entry %q has no embedding", ErrInvalidEntry, e.ID)
		}
		if len(e.Embedding) != dim {
			return fmt.Errorf("%w: entry %q has dimension %d, want %d", ErrInvalidEntry, e.ID, len(e.Embedding), dim)
		}
	}
	return nil
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
