package nsconfig

import (
	"slices"
	"sort"

	"github.com/xkilldash9x/nsreconcile/internal/filter"
	"github.com/xkilldash9x/nsreconcile/internal/identity"
	"github.com/xkilldash9x/nsreconcile/internal/rawdoc"
	"github.com/xkilldash9x/nsreconcile/internal/validation"
)

// Outer document keys other than the filter keys.
const (
	keyFilters = "filters"
	keyConfigs = "configs"
	keyKey     = "key"
	keySummary = "summary"
	keyLabels  = "labels"
	keyFilter  = "filter"
	keyMaxRows = "max-rows"
)

var (
	// outerKeys are permitted at the top of the document.
	outerKeys = append(slices.Clone(filter.Keys), keyFilters, keyConfigs, keyKey, keySummary, keyLabels)

	issuesJobKeys = []string{keyFilter, keyKey, keyLabels, keySummary, keyMaxRows}
	sarifJobKeys  = []string{keyFilter, keyKey, keySummary}

	// jobKeys are permitted in a named job before its type is known.
	jobKeys = issuesJobKeys
)

// Document is a validated policy document. It is never modified after
// parsing, so one Document can resolve any number of jobs.
type Document struct {
	path string

	outerFilter filter.Filter
	filters     map[string]filter.Filter
	key         *identity.KeyPolicy
	summary     SummaryLevel
	labels      identity.LabelPolicy

	configs map[string]*jobEntry
	names   []string
}

// jobEntry is a named job validated as far as possible without knowing the
// job type. Type specific key checks happen on resolve.
type jobEntry struct {
	obj     *rawdoc.Object
	filter  filter.Filter
	key     *identity.KeyPolicy
	summary SummaryLevel
	labels  *identity.LabelPolicy
	maxRows *int
}

func newDocument(path string) *Document {
	return &Document{
		path:        path,
		outerFilter: filter.Filter{},
		filters:     map[string]filter.Filter{},
		summary:     SummaryShort,
		labels:      identity.DefaultLabels(),
		configs:     map[string]*jobEntry{},
	}
}

// Path returns the file the document was loaded from, "" when it was
// parsed from memory or no file was found.
func (d *Document) Path() string { return d.path }

// Names returns the named jobs in document order.
func (d *Document) Names() []string { return slices.Clone(d.names) }

// FilterNames returns the named filters, sorted.
func (d *Document) FilterNames() []string {
	out := make([]string, 0, len(d.filters))
	for name := range d.filters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Filter returns a copy of a named filter, unmerged with the job default.
// The empty name is the outer filter.
func (d *Document) Filter(name string) (filter.Filter, bool) {
	if name == "" {
		return filter.Merge(filter.Filter{}, d.outerFilter), true
	}
	f, ok := d.filters[name]
	if !ok {
		return filter.Filter{}, false
	}
	return filter.Merge(filter.Filter{}, f), true
}

func parse(data []byte, path string, o options) (*Document, error) {
	doc := newDocument(path)

	root, err := rawdoc.Parse(data)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return doc, nil
	}

	outer, err := root.Object("config")
	if err != nil {
		return nil, err
	}
	if err := outer.CheckKeys(outerKeys, "config"); err != nil {
		return nil, err
	}

	if doc.key, err = parseKeyBlock(outer); err != nil {
		return nil, err
	}
	if doc.summary, err = parseSummary(outer, SummaryShort); err != nil {
		return nil, err
	}
	if err := doc.parseFilters(outer, o.knownChecks); err != nil {
		return nil, err
	}
	if err := doc.parseConfigs(outer, o.knownChecks); err != nil {
		return nil, err
	}
	if v, ok := outer.Get(keyLabels); ok {
		if doc.labels, err = identity.ParseLabels(v); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (d *Document) parseFilters(outer *rawdoc.Object, known []string) error {
	var err error
	if d.outerFilter, err = filter.Parse(outer, known); err != nil {
		return err
	}

	v, ok := outer.Get(keyFilters)
	if !ok {
		return nil
	}
	filters, err := v.Object("filters")
	if err != nil {
		return err
	}
	for _, name := range filters.Keys() {
		item, _ := filters.Get(name)
		f, err := parseFilterObject(item, known)
		if err != nil {
			return err
		}
		d.filters[name] = f
	}
	return nil
}

func parseFilterObject(v *rawdoc.Value, known []string) (filter.Filter, error) {
	obj, err := v.Object("filter")
	if err != nil {
		return filter.Filter{}, err
	}
	if err := obj.CheckKeys(filter.Keys, "filter"); err != nil {
		return filter.Filter{}, err
	}
	return filter.Parse(obj, known)
}

func (d *Document) parseConfigs(outer *rawdoc.Object, known []string) error {
	v, ok := outer.Get(keyConfigs)
	if !ok {
		return nil
	}
	configs, err := v.Object("configs")
	if err != nil {
		return err
	}
	for _, name := range configs.Keys() {
		item, _ := configs.Get(name)
		entry, err := d.parseJob(item, known)
		if err != nil {
			return err
		}
		d.configs[name] = entry
		d.names = append(d.names, name)
	}
	return nil
}

func (d *Document) parseJob(v *rawdoc.Value, known []string) (*jobEntry, error) {
	obj, err := v.Object("config")
	if err != nil {
		return nil, err
	}
	if err := obj.CheckKeys(jobKeys, "config"); err != nil {
		return nil, err
	}

	entry := &jobEntry{obj: obj, filter: d.outerFilter}

	if fv, ok := obj.Get(keyFilter); ok {
		switch {
		case fv.IsString():
			name, _ := fv.String(keyFilter)
			f, ok := d.Filter(name)
			if !ok {
				return nil, validation.Valuef(fv.Path(), fv.Line(), "Filter %s is not defined", name)
			}
			entry.filter = f
		case fv.IsObject():
			if entry.filter, err = parseFilterObject(fv, known); err != nil {
				return nil, err
			}
		default:
			return nil, validation.Typef(fv.Path(), fv.Line(), "filter must be a filter name or a filter object")
		}
	}

	if entry.key, err = parseKeyBlock(obj); err != nil {
		return nil, err
	}
	if entry.summary, err = parseSummary(obj, d.summary); err != nil {
		return nil, err
	}

	if lv, ok := obj.Get(keyLabels); ok {
		labels, err := identity.ParseLabels(lv)
		if err != nil {
			return nil, err
		}
		entry.labels = &labels
	}

	if mv, ok := obj.Get(keyMaxRows); ok {
		rows, err := mv.NonNegativeInt(keyMaxRows)
		if err != nil {
			return nil, err
		}
		entry.maxRows = &rows
	}
	return entry, nil
}

// parseKeyBlock returns nil when obj has no key block.
func parseKeyBlock(obj *rawdoc.Object) (*identity.KeyPolicy, error) {
	v, ok := obj.Get(keyKey)
	if !ok {
		return nil, nil
	}
	block, err := v.Object("key settings")
	if err != nil {
		return nil, err
	}
	if err := block.CheckKeys(identity.KeyBlockKeys, "key settings"); err != nil {
		return nil, err
	}
	policy, err := identity.ParseKeyPolicy(block)
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func parseSummary(obj *rawdoc.Object, fallback SummaryLevel) (SummaryLevel, error) {
	v, ok := obj.Get(keySummary)
	if !ok {
		return fallback, nil
	}
	if v.IsString() {
		s, _ := v.String(keySummary)
		if level, ok := ParseSummaryLevel(s); ok {
			return level, nil
		}
	}
	return "", validation.Typef(v.Path(), v.Line(), `summary must be one of "none", "short" or "long"`)
}
