package search

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// fakeStore maps prefixes to object names and object names to gzipped
// content.
type fakeStore struct {
	listings map[string][]string
	objects  map[string][]byte
	gets     int
}

func (f *fakeStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	return f.listings[prefix], nil
}

func (f *fakeStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	f.gets++
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return data, nil
}

func gzipLines(t *testing.T, lines ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	for _, line := range lines {
		gz.Write([]byte(line + "\n"))
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

func TestSearch_DisjointKeysSumCounts(t *testing.T) {
	store := &fakeStore{
		listings: map[string][]string{
			"logs/202502020000": {"feb.gz"},
			"logs/202503010000": {"mar.gz"},
		},
		objects: map[string][]byte{
			"feb.gz": gzipLines(t,
				`{"container_name":"api"} id123 feb one`,
				`{"container_name":"api"} id123 feb two`,
			),
			"mar.gz": gzipLines(t, `{"container_name":"worker"} id123 mar one`),
		},
	}
	svc := New(store, "archive")
	// FetchConcurrency 1 keeps the fake's counters race-free.
	svc.FetchConcurrency = 1

	resp, err := svc.Search(context.Background(), "id123", []string{"202502020000", "202503010000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalResults != 3 {
		t.Errorf("TotalResults = %d, want 3", resp.TotalResults)
	}
	if len(resp.Results["api"]) != 2 || len(resp.Results["worker"]) != 1 {
		t.Errorf("groups = %v", resp.Results)
	}
	if resp.Results["api"][0].Timestamp != "202502020000" {
		t.Errorf("record timestamp = %q, want the requested range", resp.Results["api"][0].Timestamp)
	}
}

func TestSearch_OverlappingKeysAreNotDeduplicated(t *testing.T) {
	shared := gzipLines(t, `{"container_name":"api"} id123 shared`)
	store := &fakeStore{
		listings: map[string][]string{
			"logs/202502020000": {"shared.gz"},
			"logs/202502020100": {"shared.gz"},
		},
		objects: map[string][]byte{"shared.gz": shared},
	}
	svc := New(store, "archive")
	svc.FetchConcurrency = 1

	resp, err := svc.Search(context.Background(), "id123", []string{"202502020000", "202502020100"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalResults != 2 {
		t.Errorf("TotalResults = %d, want 2 (both keys count)", resp.TotalResults)
	}
}

func TestSearch_InvalidRangeIsSkipped(t *testing.T) {
	store := &fakeStore{
		listings: map[string][]string{"logs/202502020000": {"feb.gz"}},
		objects:  map[string][]byte{"feb.gz": gzipLines(t, `{"container_name":"api"} id123 hit`)},
	}
	svc := New(store, "archive")
	svc.FetchConcurrency = 1

	resp, err := svc.Search(context.Background(), "id123", []string{"garbage", "202502020000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalResults != 1 {
		t.Errorf("TotalResults = %d, want 1 from the valid range", resp.TotalResults)
	}
}

func TestSearch_EmptyCandidateSetContributesNothing(t *testing.T) {
	svc := New(&fakeStore{}, "archive")
	svc.FetchConcurrency = 1

	resp, err := svc.Search(context.Background(), "id123", []string{"202502020000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalResults != 0 || len(resp.Results) != 0 {
		t.Errorf("resp = %+v, want empty", resp)
	}
}

func TestSearch_MissingArguments(t *testing.T) {
	svc := New(&fakeStore{}, "archive")

	if _, err := svc.Search(context.Background(), "", []string{"202502020000"}); err == nil {
		t.Error("expected error for empty search_id")
	}
	if _, err := svc.Search(context.Background(), "id123", nil); err == nil {
		t.Error("expected error for empty time_ranges")
	}
}

func TestSearch_FailedObjectDegrades(t *testing.T) {
	store := &fakeStore{
		listings: map[string][]string{"logs/202502020000": {"good.gz", "missing.gz"}},
		objects:  map[string][]byte{"good.gz": gzipLines(t, `{"container_name":"api"} id123 ok`)},
	}
	svc := New(store, "archive")
	svc.FetchConcurrency = 1

	resp, err := svc.Search(context.Background(), "id123", []string{"202502020000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalResults != 1 {
		t.Errorf("TotalResults = %d, want 1 despite the failed object", resp.TotalResults)
	}
}

func TestSearch_CancelledContextAborts(t *testing.T) {
	store := &fakeStore{
		listings: map[string][]string{"logs/202502020000": {"feb.gz"}},
		objects:  map[string][]byte{"feb.gz": gzipLines(t, `id123`)},
	}
	svc := New(store, "archive")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Search(ctx, "id123", []string{"202502020000"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestScanPrefixes_FailFast(t *testing.T) {
	store := &fakeStore{
		listings: map[string][]string{
			// logs/ is empty; the kubernetes layout has the objects; the
			// bare-root listing would return extras that must never be
			// scanned.
			"kubernetes.var.log.containers/": {"k1.gz"},
			"": {"root1.gz", "root2.gz"},
		},
		objects: map[string][]byte{
			"k1.gz":    gzipLines(t, `{"container_name":"api"} id123 k8s line`),
			"root1.gz": gzipLines(t, `{"container_name":"api"} id123 root line`),
		},
	}
	svc := New(store, "archive")
	svc.FetchConcurrency = 1

	results, err := svc.ScanPrefixes(context.Background(), "id123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results["api"]) != 1 {
		t.Fatalf("results = %v, want one line from the kubernetes layout", results)
	}
	if got := results["api"][0].Message; got != `{"container_name":"api"} id123 k8s line` {
		t.Errorf("message = %q, want the kubernetes object's line", got)
	}
	if store.gets != 1 {
		t.Errorf("gets = %d, want 1 (root objects never fetched)", store.gets)
	}
}
