package mapping

import (
	"strconv"
	"strings"
)

// Extract resolves a dotted path against a JSON-compatible map. Segments
// may carry an [i] index or [*] wildcard: an explicit index selects one
// element (out of range is a miss), [*] yields the whole array. The second
// return value reports whether the path resolved.
func Extract(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = data

	for _, segment := range strings.Split(path, ".") {
		key, index, wildcard, ok := parseSegment(segment)
		if !ok {
			return nil, false
		}

		if key != "" {
			m, isMap := current.(map[string]any)
			if !isMap {
				return nil, false
			}

			value, present := m[key]
			if !present {
				return nil, false
			}

			current = value
		}

		if wildcard {
			if _, isArr := current.([]any); !isArr {
				return nil, false
			}

			continue
		}

		if index >= 0 {
			arr, isArr := current.([]any)
			if !isArr || index >= len(arr) {
				return nil, false
			}

			current = arr[index]
		}
	}

	return current, true
}

// Write sets value at a dotted path inside dst, creating intermediate maps
// as needed. Array addressing is not supported on the write side; a segment
// that collides with a non-map value is overwritten with a map.
func Write(dst map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := dst

	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}

		current = next
	}

	current[segments[len(segments)-1]] = value
}

// parseSegment splits "items[2]" into ("items", 2, false), "items[*]" into
// ("items", -1, true) and a plain key into (key, -1, false).
func parseSegment(segment string) (key string, index int, wildcard bool, ok bool) {
	open := strings.IndexByte(segment, '[')
	if open < 0 {
		return segment, -1, false, segment != ""
	}

	if !strings.HasSuffix(segment, "]") {
		return "", 0, false, false
	}

	key = segment[:open]
	inner := segment[open+1 : len(segment)-1]

	if inner == "*" {
		return key, -1, true, true
	}

	idx, err := strconv.Atoi(inner)
	if err != nil || idx < 0 {
		return "", 0, false, false
	}

	return key, idx, false, true
}
