// Package source fetches raw branch and ATM payloads from the configured upstream.
package source

import (
	"context"
)

// Resource names one of the datasets a Source can serve.
type Resource string

const (
	// Branches is the branch list, served at {base}/branches.
	Branches Resource = "branches"
	// ATMs is the ATM dataset, served at {base}/atms.
	ATMs Resource = "atms"
)

// Source is an interface that defines a method for fetching a raw payload.
// The payload is an untyped decoded document; shaping it into records is the normalizer's job.
type Source interface {
	Fetch(ctx context.Context, resource Resource) (any, error)
}
