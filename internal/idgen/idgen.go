// Package idgen produces record identifiers.
//
// IDs are random v4 UUIDs. If the system's random source is unavailable the
// generator degrades to an xid (time + machine + pid + counter), prefixed
// "id_" so the two shapes are easy to tell apart in stored data.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/xid"
)

// Generator returns a new unique identifier. Stores take one so tests can
// inject deterministic IDs.
type Generator func() string

// New returns a fresh identifier.
func New() string {
	return newWith(uuid.NewRandom)
}

func newWith(random func() (uuid.UUID, error)) string {
	id, err := random()
	if err != nil {
		return "id_" + xid.New().String()
	}
	return id.String()
}

// Sequence returns a Generator yielding prefix-1, prefix-2, ... for tests.
func Sequence(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return prefix + "-" + strconv.FormatInt(n.Add(1), 10)
	}
}
