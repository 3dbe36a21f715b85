package normalize

import (
	"bytes"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

type object = map[string]any

// decodeRaw decodes upstream JSON keeping numbers as json.Number, float64 cannot hold
// every 64 bit identifier exactly.
func decodeRaw(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var root any
	err := decoder.Decode(&root)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// getPath follows a dot separated list of keys through nested objects.
func getPath(value any, path string) any {
	current := value
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(object)
		if !ok {
			return nil
		}
		current, ok = obj[key]
		if !ok {
			return nil
		}
	}
	return current
}

func getObject(value any, path string) object {
	obj, _ := getPath(value, path).(object)
	return obj
}

func getList(value any, path string) []any {
	list, _ := getPath(value, path).([]any)
	return list
}

func getString(value any, path string) string {
	str, _ := getPath(value, path).(string)
	return str
}

func getBool(value any, path string) bool {
	b, _ := getPath(value, path).(bool)
	return b
}

// getInt accepts both JSON numbers and numeric strings, upstream is not consistent about
// which one it uses (ex. view counts are strings).
func getInt(value any, path string) (int64, bool) {
	return toInt(getPath(value, path))
}

func toInt(value any) (int64, bool) {
	switch v := value.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// firstString returns the first non-empty string found among the paths.
func firstString(value any, paths ...string) string {
	for _, p := range paths {
		if str := getString(value, p); str != "" {
			return str
		}
	}
	return ""
}

func stringsAt(value any, path, key string) []string {
	list := getList(value, path)
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if str := getString(item, key); str != "" {
			out = append(out, str)
		}
	}
	return out
}
