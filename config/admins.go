package config

import (
	"fmt"
	"strconv"
	"strings"
)

// AdminSet is the static set of administrator identities. It is built once at
// startup and never mutated; copies share the same underlying set.
type AdminSet struct {
	ids   map[int64]struct{}
	order []int64
}

// ParseAdmins parses a comma-separated list of Telegram user ids.
func ParseAdmins(s string) (AdminSet, error) {
	set := AdminSet{ids: make(map[int64]struct{})}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return AdminSet{}, fmt.Errorf("admin ids must be comma-separated numbers: %q", part)
		}
		if _, dup := set.ids[id]; dup {
			continue
		}
		set.ids[id] = struct{}{}
		set.order = append(set.order, id)
	}
	if len(set.order) == 0 {
		return AdminSet{}, ErrMissingAdmins
	}
	return set, nil
}

// NewAdminSet builds a set from ids, mostly for tests.
func NewAdminSet(ids ...int64) AdminSet {
	set := AdminSet{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		if _, dup := set.ids[id]; dup {
			continue
		}
		set.ids[id] = struct{}{}
		set.order = append(set.order, id)
	}
	return set
}

func (a AdminSet) Contains(id int64) bool {
	_, ok := a.ids[id]
	return ok
}

// IDs returns the admins in configuration order.
func (a AdminSet) IDs() []int64 {
	out := make([]int64, len(a.order))
	copy(out, a.order)
	return out
}

func (a AdminSet) Len() int { return len(a.order) }
