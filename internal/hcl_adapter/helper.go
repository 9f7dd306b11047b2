package hcl_adapter

import (
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// environment builds the variables of the evaluation context from
// KEY=VALUE pairs. Entries without "=" are ignored.
func environment(environ []string) map[string]cty.Value {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	if len(env) == 0 {
		return map[string]cty.Value{"env": cty.EmptyObjectVal}
	}

	val, err := gocty.ToCtyValue(env, cty.Map(cty.String))
	if err != nil {
		// A map of strings always converts.
		panic(err)
	}
	return map[string]cty.Value{"env": cty.ObjectVal(val.AsValueMap())}
}

// anchor resolves p against dir unless p is absolute or empty.
func anchor(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
