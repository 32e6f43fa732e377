package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key derives a deterministic cache key from a registry name, an operation
// name and an arbitrary parameter map. Parameters are serialised in sorted
// key order so that logically equal maps always hash to the same key.
func Key(registry, op string, params map[string]any) string {
	return registry + ":" + op + ":" + digest(params)
}

// PointKey builds the cache key for a single-entity lookup using the
// entity's natural key verbatim.
func PointKey(registry string, naturalKey any) string {
	return fmt.Sprintf("%s:get:%v", registry, naturalKey)
}

func digest(params map[string]any) string {
	if len(params) == 0 {
		return "all"
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		raw, err := json.Marshal(params[k])
		if err != nil {
			sb.WriteString(fmt.Sprintf("%v", params[k]))
			continue
		}
		sb.Write(raw)
	}

	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
