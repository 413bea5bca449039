// Package extract scans gzipped log objects for lines containing a search
// identifier and groups the matches by originating container.
package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// UnknownContainer is the group for matched lines that carry no
// container_name marker.
const UnknownContainer = "Unknown"

// maxLineSize bounds a single log line; archive lines can be large JSON
// envelopes.
const maxLineSize = 1024 * 1024

var containerNamePattern = regexp.MustCompile(`"container_name":"([^"]+)"`)

// ContainerName extracts the container_name field from a log line, or
// UnknownContainer when the marker is absent.
func ContainerName(line string) string {
	if m := containerNamePattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return UnknownContainer
}

// Matches decompresses a gzipped log object and returns every line
// containing searchID as a literal, case-sensitive substring, grouped by
// container name with source order preserved. Invalid byte sequences are
// replaced rather than failing the scan. A decompression or read error
// returns a nil map; callers treat that as an empty contribution from the
// object.
func Matches(compressed []byte, searchID string) (map[string][]string, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	defer gz.Close()

	grouped := make(map[string][]string)
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.ToValidUTF8(scanner.Text(), "�")
		if !strings.Contains(line, searchID) {
			continue
		}
		line = strings.TrimSpace(line)
		name := ContainerName(line)
		grouped[name] = append(grouped[name], line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log stream: %w", err)
	}
	return grouped, nil
}
