// Package search runs identifier searches across the archive: normalize the
// requested time ranges, locate candidate objects per canonical key, fetch
// and scan them, and merge the grouped matches.
package search

import (
	"context"
	"errors"
	"fmt"

	"lokilens-mcp/internal/archive"
	"lokilens-mcp/internal/extract"
	"lokilens-mcp/internal/models"
	"lokilens-mcp/internal/timekey"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// defaultFetchConcurrency bounds parallel object fetches within one
// canonical key.
const defaultFetchConcurrency = 4

// Service is the structured search entry point, exposed unchanged as the
// search_logs tool and as POST /api/search.
type Service struct {
	Locator    *archive.Locator
	Bucket     string
	Normalizer timekey.Normalizer

	// FetchConcurrency caps parallel object fetches per key; zero means the
	// default.
	FetchConcurrency int
}

// New wires a Service over an object store.
func New(store archive.ObjectStore, bucket string) *Service {
	return &Service{
		Locator: &archive.Locator{Store: store},
		Bucket:  bucket,
	}
}

// Search scans the archive for searchID across the given time ranges and
// returns the grouped result. Ranges that fail normalization are logged and
// skipped; per-object failures degrade the result. The call either returns
// a complete result or, on cancellation, no result at all.
func (s *Service) Search(ctx context.Context, searchID string, timeRanges []string) (*models.SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if searchID == "" {
		return nil, errors.New("search_id is required")
	}
	if len(timeRanges) == 0 {
		return nil, errors.New("at least one time_range is required")
	}

	resp := &models.SearchResponse{
		SearchID:   searchID,
		TimeRanges: timeRanges,
		Results:    models.GroupedResult{},
	}

	for _, rangeStr := range timeRanges {
		key, err := s.Normalizer.Normalize(rangeStr)
		if err != nil {
			log.WithField("time_range", rangeStr).Warn("skipping unparseable time range")
			continue
		}

		candidates, err := s.Locator.ListCandidates(ctx, s.Bucket, key, archive.PolicyExhaustive)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).WithField("key", key).Warn("listing candidates failed, key contributes nothing")
			continue
		}

		grouped, err := s.scanObjects(ctx, candidates, searchID)
		if err != nil {
			return nil, err
		}
		for _, g := range grouped {
			for name, lines := range g {
				for _, line := range lines {
					resp.Results[name] = append(resp.Results[name], models.LogRecord{
						ContainerName: name,
						Message:       line,
						Timestamp:     rangeStr,
					})
					resp.TotalResults++
				}
			}
		}
	}

	return resp, nil
}

// scanObjects fetches and scans candidates concurrently. Results come back
// indexed by discovery order so the merge stays deterministic regardless of
// fetch completion order.
func (s *Service) scanObjects(ctx context.Context, candidates []string, searchID string) ([]map[string][]string, error) {
	grouped := make([]map[string][]string, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency())
	for i, name := range candidates {
		g.Go(func() error {
			data, err := s.Locator.Store.Get(gctx, s.Bucket, name)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.WithError(err).WithField("object", name).Warn("fetch failed, object contributes nothing")
				return nil
			}
			matches, err := extract.Matches(data, searchID)
			if err != nil {
				log.WithError(err).WithField("object", name).Warn("scan failed, object contributes nothing")
				return nil
			}
			grouped[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search aborted: %w", err)
	}
	return grouped, nil
}

// ScanPrefixes is the sequential maintenance scan: it walks the prefix
// templates without a time key, stopping at the first layout that holds any
// objects, and groups every line containing searchID. This is the fail-fast
// counterpart of Search's exhaustive discovery.
func (s *Service) ScanPrefixes(ctx context.Context, searchID string) (models.GroupedResult, error) {
	if searchID == "" {
		return nil, errors.New("search_id is required")
	}

	candidates, err := s.Locator.ListCandidates(ctx, s.Bucket, "", archive.PolicyFailFast)
	if err != nil {
		return nil, err
	}

	grouped, err := s.scanObjects(ctx, candidates, searchID)
	if err != nil {
		return nil, err
	}

	results := models.GroupedResult{}
	for _, g := range grouped {
		for name, lines := range g {
			for _, line := range lines {
				results[name] = append(results[name], models.LogRecord{
					ContainerName: name,
					Message:       line,
				})
			}
		}
	}
	return results, nil
}

func (s *Service) fetchConcurrency() int {
	if s.FetchConcurrency > 0 {
		return s.FetchConcurrency
	}
	return defaultFetchConcurrency
}
