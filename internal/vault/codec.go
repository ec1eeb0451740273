package vault

import "encoding/json"

// Codec controls the serialized form of entities before encryption. Field and
// payload naming is a serialization concern, not store logic: the production
// build ships the compact codec so a decrypted record leaks no readable
// schema, while development uses plain JSON.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec serializes entities with their declared JSON field names.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// fieldAliases maps debug JSON field names to their obfuscated forms.
// Unlisted keys pass through unchanged.
var fieldAliases = map[string]string{
	"id":                   "a",
	"name":                 "b",
	"isActive":             "c",
	"createdAt":            "d",
	"updatedAt":            "e",
	"urlPattern":           "f",
	"action":               "g",
	"enabled":              "h",
	"applyToAllSubdomains": "i",
	"profileIds":           "j",
	"lockOptions":          "k",
	"redirectOptions":      "l",
	"lockMode":             "m",
	"timedDurationMinutes": "n",
	"customVerifier":       "o",
	"customSalt":           "p",
	"targetUrl":            "q",
	"userId":               "r",
	"encryptedHash":        "s",
	"salt":                 "t",
	"iv":                   "u",
}

var fieldAliasesReverse = func() map[string]string {
	rev := make(map[string]string, len(fieldAliases))
	for k, v := range fieldAliases {
		rev[v] = k
	}
	return rev
}()

// CompactCodec serializes like JSONCodec but rewrites object keys through the
// alias table, recursively, in both directions.
type CompactCodec struct{}

func (CompactCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return json.Marshal(renameKeys(tree, fieldAliases))
}

func (CompactCodec) Unmarshal(data []byte, v any) error {
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	restored, err := json.Marshal(renameKeys(tree, fieldAliasesReverse))
	if err != nil {
		return err
	}
	return json.Unmarshal(restored, v)
}

func renameKeys(tree any, table map[string]string) any {
	switch node := tree.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			if alias, ok := table[k]; ok {
				k = alias
			}
			out[k] = renameKeys(v, table)
		}
		return out
	case []any:
		for i, v := range node {
			node[i] = renameKeys(v, table)
		}
		return node
	default:
		return node
	}
}
