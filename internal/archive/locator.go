package archive

import (
	"context"

	"lokilens-mcp/internal/timekey"

	log "github.com/sirupsen/logrus"
)

// MergePolicy selects how listings from the prefix templates are combined.
type MergePolicy int

const (
	// PolicyExhaustive lists every template and unions the results,
	// deduplicated by object name. Used by the public search path.
	PolicyExhaustive MergePolicy = iota
	// PolicyFailFast stops at the first template that yields a non-empty
	// listing. Used by the sequential prefix scan to avoid redundant
	// listing calls.
	PolicyFailFast
)

// prefixTemplates are the archive layouts tried for a canonical key, in
// order: a flat logs/ tree, the kubernetes-style nested tree, and the bare
// key at the bucket root.
var prefixTemplates = []string{
	"logs/",
	"kubernetes.var.log.containers/",
	"",
}

// Locator computes candidate object sets for canonical time keys.
type Locator struct {
	Store ObjectStore
}

// ListCandidates lists the objects whose names start with the canonical key
// under each prefix template, merged per policy. A template whose listing
// fails is logged and skipped; an error is returned only when every
// template fails and nothing was found.
func (l *Locator) ListCandidates(ctx context.Context, bucket string, key timekey.Key, policy MergePolicy) ([]string, error) {
	var (
		candidates []string
		seen       = map[string]struct{}{}
		lastErr    error
	)

	for _, tmpl := range prefixTemplates {
		prefix := tmpl + string(key)
		names, err := l.Store.List(ctx, bucket, prefix)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).WithField("prefix", prefix).Warn("skipping archive prefix")
			lastErr = err
			continue
		}

		added := 0
		for _, name := range names {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			candidates = append(candidates, name)
			added++
		}

		if policy == PolicyFailFast && added > 0 {
			return candidates, nil
		}
	}

	if len(candidates) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return candidates, nil
}
