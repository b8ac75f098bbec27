package storage

import (
	"bytes"
	"encoding/json"
	"time"
)

// naiveLayout matches ISO-8601 timestamps without a UTC offset, with or
// without fractional seconds
const naiveLayout = "2006-01-02T15:04:05.999999999"

// timeFields are the document members that hold timestamps
var timeFields = map[string]bool{
	"createdAt":   true,
	"lastUpdated": true,
	"lastCheck":   true,
	"timestamp":   true,
	"completedAt": true,
	"appliedAt":   true,
}

// normalizeTimestamps rewrites offset-less timestamps in time fields to
// RFC 3339, reading them as local time. Documents that need no rewrite, or
// that are not valid JSON, are returned unchanged.
func normalizeTimestamps(data []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return data
	}
	if !rewriteTimestamps(v) {
		return data
	}
	out, err := json.Marshal(v)
	if err != nil {
		return data
	}
	return out
}

func rewriteTimestamps(v interface{}) bool {
	changed := false
	switch node := v.(type) {
	case map[string]interface{}:
		for key, val := range node {
			if s, ok := val.(string); ok && timeFields[key] {
				if t, err := time.ParseInLocation(naiveLayout, s, time.Local); err == nil {
					node[key] = t.Format(time.RFC3339Nano)
					changed = true
				}
				continue
			}
			if rewriteTimestamps(val) {
				changed = true
			}
		}
	case []interface{}:
		for _, item := range node {
			if rewriteTimestamps(item) {
				changed = true
			}
		}
	}
	return changed
}
