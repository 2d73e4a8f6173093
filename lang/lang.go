// Package lang resolves user-facing strings from the embedded locale catalogs.
package lang

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Base is the last language tried before falling back to the raw key.
const Base = "en"

//go:embed locales/*.yaml
var localesFS embed.FS

// Vars are the {placeholder} values substituted into a template.
type Vars map[string]any

// Catalog holds every loaded language. It is read-only after construction and
// safe for concurrent use.
type Catalog struct {
	def     string
	msgs    map[string]map[string]string
	codes   []string
	matcher language.Matcher
}

// Load reads the embedded locale files.
func Load(defaultCode string) (*Catalog, error) {
	names, err := fs.Glob(localesFS, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}
	msgs := make(map[string]map[string]string, len(names))
	for _, name := range names {
		b, err := localesFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		m := map[string]string{}
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		msgs[strings.TrimSuffix(path.Base(name), ".yaml")] = m
	}
	if _, ok := msgs[Base]; !ok {
		return nil, fmt.Errorf("base locale %q missing", Base)
	}
	return New(defaultCode, msgs), nil
}

// New builds a catalog from in-memory messages keyed by language code.
func New(defaultCode string, msgs map[string]map[string]string) *Catalog {
	c := &Catalog{msgs: msgs}
	for code := range msgs {
		c.codes = append(c.codes, code)
	}
	sort.Strings(c.codes)
	tags := make([]language.Tag, 0, len(c.codes))
	for _, code := range c.codes {
		tags = append(tags, language.Make(code))
	}
	c.matcher = language.NewMatcher(tags)
	c.def = c.Normalize(defaultCode)
	if c.def == "" {
		c.def = Base
	}
	return c
}

// Default is the process-wide language for users who never chose one.
func (c *Catalog) Default() string { return c.def }

// Languages returns the supported codes in sorted order.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.codes))
	copy(out, c.codes)
	return out
}

// Normalize maps a client language tag such as "lt-LT" or "en_US" to a
// supported code, or "" if nothing matches.
func (c *Catalog) Normalize(code string) string {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	_, idx, conf := c.matcher.Match(tag)
	if conf == language.No {
		return ""
	}
	return c.codes[idx]
}

// T looks key up in code, then the default language, then Base, and finally
// returns the key itself. A template whose placeholders are not all supplied
// is returned unformatted.
func (c *Catalog) T(code, key string, vars Vars) string {
	tmpl, ok := c.lookup(code, key)
	if !ok {
		return key
	}
	out, missing := substitute(tmpl, vars)
	if missing != "" {
		slog.Warn("missing placeholder", "key", key, "lang", code, "placeholder", missing)
		return tmpl
	}
	return out
}

func (c *Catalog) lookup(code, key string) (string, bool) {
	for _, l := range []string{code, c.Normalize(code), c.def, Base} {
		if l == "" {
			continue
		}
		if s, ok := c.msgs[l][key]; ok {
			return s, true
		}
	}
	return "", false
}

// substitute replaces {name} placeholders. It returns the first placeholder
// without a value, if any. Braces that do not form an identifier are kept.
func substitute(tmpl string, vars Vars) (string, string) {
	if !strings.Contains(tmpl, "{") {
		return tmpl, ""
	}
	var b strings.Builder
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			return b.String(), ""
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			return b.String(), ""
		}
		name := tmpl[open+1 : open+end]
		b.WriteString(tmpl[:open])
		if !isIdent(name) {
			b.WriteString(tmpl[open : open+end+1])
		} else if v, ok := vars[name]; ok {
			fmt.Fprint(&b, v)
		} else {
			return "", name
		}
		tmpl = tmpl[open+end+1:]
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
