package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownGlobalKeys are the valid top-level keys in the config file.
var knownGlobalKeys = map[string]bool{
	"client_id": true, "client_secret": true, "callback_port": true,
	"provider": true, "folder_name": true, "staging_dir": true,
	"ludusavi_binary": true, "notify_url": true,
	"log_level": true, "log_format": true,
	"s3": true, "watch": true,
}

// knownGlobalKeysList is the sorted slice form of knownGlobalKeys for
// Levenshtein matching. Sorted for deterministic suggestions when two
// candidates have the same edit distance.
var knownGlobalKeysList = sortedKeys(knownGlobalKeys)

// knownSectionKeys are the valid keys inside the s3 and watch sections,
// keyed by section name.
var knownSectionKeys = map[string]map[string]bool{
	"s3": {
		"bucket": true, "region": true, "endpoint": true,
		"access_key_id": true, "secret_access_key": true, "force_path_style": true,
	},
	"watch": {
		"shop": true, "object_id": true, "path": true,
		"wine_prefix": true, "debounce": true,
	},
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	for _, key := range undecoded {
		if err := buildKeyError(key.String()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// buildKeyError creates a descriptive error for an unknown key, optionally
// suggesting the closest known key. Keys nested under a known section are
// checked against that section's key set.
func buildKeyError(keyStr string) error {
	parts := strings.SplitN(keyStr, ".", 2)
	top := parts[0]

	if len(parts) > 1 {
		section, ok := knownSectionKeys[top]
		if !ok {
			return fmt.Errorf("unknown config section %q", top)
		}

		leaf := parts[1]
		if section[leaf] {
			return nil
		}

		suggestion := closestMatch(leaf, sortedKeys(section))
		if suggestion != "" {
			return fmt.Errorf("unknown key %q in [%s] — did you mean %q?", leaf, top, suggestion)
		}

		return fmt.Errorf("unknown key %q in [%s]", leaf, top)
	}

	suggestion := closestMatch(top, knownGlobalKeysList)
	if suggestion != "" {
		return fmt.Errorf("unknown config key %q — did you mean %q?", top, suggestion)
	}

	return fmt.Errorf("unknown config key %q", top)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Use single-row optimization to avoid allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
