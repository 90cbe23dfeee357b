package etl

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ── Resource ───────────────────────────────────────────────
// A Resource is a parsed positional reference: a file path, a file:// or
// mem:// URL, or a database URL naming a table, query or collection.

// ResourceKind selects which source/destination handles a Resource.
type ResourceKind string

const (
	KindCSV      ResourceKind = "csv_file"
	KindJSON     ResourceKind = "json_file"
	KindParquet  ResourceKind = "parquet_file"
	KindDatabase ResourceKind = "database"
	KindMongo    ResourceKind = "mongodb"
)

// Resource describes where a table lives.
type Resource struct {
	Kind     ResourceKind      `json:"kind"`
	Raw      string            `json:"raw"`
	Location string            `json:"location"`         // file path/URL, or driver DSN
	Driver   string            `json:"driver,omitempty"` // sqlite | mysql | postgres | mongodb
	Table    string            `json:"table,omitempty"`  // SQL table or Mongo collection
	Query    string            `json:"query,omitempty"`  // SQL query, overrides Table on read
	Options  map[string]string `json:"options,omitempty"`
}

// Name returns a short human-readable label used in notices and errors.
func (r Resource) Name() string {
	switch r.Kind {
	case KindDatabase, KindMongo:
		if r.Table != "" {
			return r.Driver + ":" + r.Table
		}
		return r.Driver + ":query"
	default:
		return filepath.Base(r.Location)
	}
}

// Option returns the named option or def when unset.
func (r Resource) Option(key, def string) string {
	if v, ok := r.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// IsFile reports whether the resource is file-backed.
func (r Resource) IsFile() bool {
	switch r.Kind {
	case KindCSV, KindJSON, KindParquet:
		return true
	}
	return false
}

// URL returns the afs URL of a file-backed resource. Plain paths are made
// absolute and given the file scheme.
func (r Resource) URL() (string, error) {
	if strings.Contains(r.Location, "://") {
		return r.Location, nil
	}
	abs, err := filepath.Abs(r.Location)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// IsLocal reports whether the resource is a file on the local disk.
func (r Resource) IsLocal() bool {
	return r.IsFile() && !strings.Contains(r.Location, "://")
}

// DetectFileKind determines the file format from the extension.
func DetectFileKind(path string) (ResourceKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return KindCSV, true
	case ".json":
		return KindJSON, true
	case ".parquet":
		return KindParquet, true
	default:
		return "", false
	}
}

// ParseResource turns a command-line reference into a Resource.
func ParseResource(ref string) (Resource, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Resource{}, fmt.Errorf("%w: empty reference", ErrUnsupportedResource)
	}

	scheme := ""
	if i := strings.Index(ref, "://"); i > 0 {
		scheme = strings.ToLower(ref[:i])
	}

	switch scheme {
	case "", "file", "mem":
		return parseFileResource(ref, scheme)
	case "sqlite":
		return parseSQLiteResource(ref)
	case "mysql", "postgres", "postgresql":
		return parseNetworkSQLResource(ref, scheme)
	case "mongodb", "mongodb+srv":
		return parseMongoResource(ref)
	default:
		return Resource{}, fmt.Errorf("%w: unknown scheme %q in %q", ErrUnsupportedResource, scheme, ref)
	}
}

func parseFileResource(ref, scheme string) (Resource, error) {
	location := ref
	query := ""
	if i := strings.Index(ref, "?"); i >= 0 {
		location, query = ref[:i], ref[i+1:]
	}
	opts, err := parseOptions(query)
	if err != nil {
		return Resource{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedResource, ref, err)
	}

	kind, ok := DetectFileKind(location)
	if f, set := opts["format"]; set {
		kind, ok = ResourceKind(f+"_file"), true
	}
	if !ok {
		return Resource{}, fmt.Errorf("%w: cannot detect file format of %q", ErrUnsupportedResource, ref)
	}
	if strings.EqualFold(filepath.Ext(location), ".tsv") {
		if _, set := opts["delimiter"]; !set {
			opts["delimiter"] = "\t"
		}
	}
	if scheme == "file" {
		location = strings.TrimPrefix(location, "file://")
	}
	return Resource{Kind: kind, Raw: ref, Location: location, Options: opts}, nil
}

func parseSQLiteResource(ref string) (Resource, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return Resource{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedResource, ref, err)
	}
	path := u.Host + u.Path
	if path == "" {
		return Resource{}, fmt.Errorf("%w: sqlite reference %q has no file path", ErrUnsupportedResource, ref)
	}
	res := Resource{
		Kind:     KindDatabase,
		Raw:      ref,
		Driver:   "sqlite",
		Location: path,
		Table:    u.Query().Get("table"),
		Query:    u.Query().Get("query"),
		Options:  flattenQuery(u.Query(), "table", "query"),
	}
	if res.Table == "" && res.Query == "" {
		return Resource{}, fmt.Errorf("%w: sqlite reference %q needs ?table= or ?query=", ErrUnsupportedResource, ref)
	}
	return res, nil
}

func parseNetworkSQLResource(ref, scheme string) (Resource, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return Resource{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedResource, ref, err)
	}
	driver := "mysql"
	if scheme != "mysql" {
		driver = "postgres"
	}
	q := u.Query()
	res := Resource{
		Kind:    KindDatabase,
		Raw:     ref,
		Driver:  driver,
		Table:   q.Get("table"),
		Query:   q.Get("query"),
		Options: flattenQuery(q, "table", "query"),
	}
	if res.Table == "" && res.Query == "" {
		return Resource{}, fmt.Errorf("%w: %s reference needs ?table= or ?query=", ErrUnsupportedResource, driver)
	}

	// Strip our own parameters before handing the URL to the driver layer.
	q.Del("table")
	q.Del("query")
	q.Del("mode")
	u.RawQuery = q.Encode()
	res.Location = u.String()
	return res, nil
}

func parseMongoResource(ref string) (Resource, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return Resource{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedResource, ref, err)
	}
	q := u.Query()
	res := Resource{
		Kind:    KindMongo,
		Raw:     ref,
		Driver:  "mongodb",
		Table:   q.Get("collection"),
		Options: map[string]string{"database": strings.TrimPrefix(u.Path, "/")},
	}
	for _, k := range []string{"filter", "mode"} {
		if v := q.Get(k); v != "" {
			res.Options[k] = v
		}
	}
	if res.Table == "" {
		return Resource{}, fmt.Errorf("%w: mongodb reference needs ?collection=", ErrUnsupportedResource)
	}
	if res.Options["database"] == "" {
		return Resource{}, fmt.Errorf("%w: mongodb reference needs a database path", ErrUnsupportedResource)
	}
	q.Del("collection")
	q.Del("filter")
	q.Del("mode")
	u.RawQuery = q.Encode()
	res.Location = u.String()
	return res, nil
}

// ParseDelimiter validates a single-character delimiter option.
func ParseDelimiter(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid csv delimiter %q", s)
	}
	return r, nil
}

func parseOptions(raw string) (map[string]string, error) {
	opts := make(map[string]string)
	if raw == "" {
		return opts, nil
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	for k := range q {
		opts[k] = q.Get(k)
	}
	return opts, nil
}

func flattenQuery(q url.Values, skip ...string) map[string]string {
	opts := make(map[string]string, len(q))
outer:
	for k := range q {
		for _, s := range skip {
			if k == s {
				continue outer
			}
		}
		opts[k] = q.Get(k)
	}
	return opts
}
