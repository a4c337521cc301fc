package grounding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Context is the mutable, append-only accumulator shared across every
// grounding in a single introspect() call. It is created empty, mutated by
// groundings in phase order, and discarded when introspection returns — it
// must never outlive the call that created it.
type Context struct {
	Info          *DialectInfo
	Tables        []Table
	Views         []View
	Relationships []Relationship
	Report        string

	logger *zap.Logger

	tableIndex        map[string]int
	viewIndex         map[string]int
	seenRelationships map[string]bool
	mu                sync.Mutex
}

// ContextOption configures a new Context.
type ContextOption func(*Context)

// WithLogger attaches a structured logger used for per-entity warnings. The
// default is a no-op logger, so the library is silent unless a caller opts
// in.
func WithLogger(l *zap.Logger) ContextOption {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewContext builds an empty Context ready for a single introspect() run.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		logger:            zap.NewNop(),
		tableIndex:        map[string]int{},
		viewIndex:         map[string]int{},
		seenRelationships: map[string]bool{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Logger returns the context's structured logger, for groundings to record
// per-entity warnings against.
func (c *Context) Logger() *zap.Logger { return c.logger }

// Table looks up a table already recorded in the context by qualified name.
func (c *Context) Table(name string) (Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.tableIndex[name]
	if !ok {
		return Table{}, false
	}
	return c.Tables[i], true
}

// HasTable reports whether a table by this name was already recorded,
// without requiring the caller to discard the returned value.
func (c *Context) HasTable(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tableIndex[name]
	return ok
}

// AddTable appends a newly discovered table. Groundings must never replace
// an existing entry — subsequent groundings annotate it in place via
// MutateTable instead.
func (c *Context) AddTable(t Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tableIndex[t.Name]; ok {
		return
	}
	c.tableIndex[t.Name] = len(c.Tables)
	c.Tables = append(c.Tables, t)
}

// MutateTable applies fn to the table named name in place, for groundings
// that annotate rather than create (row-count, indexes, constraints,
// column-stats, column-values). It is a no-op if the table is absent.
func (c *Context) MutateTable(name string, fn func(*Table)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.tableIndex[name]
	if !ok {
		return
	}
	fn(&c.Tables[i])
}

// tableRowCount is the row-count lookup the fragment emitter uses for
// cardinality inference.
func (c *Context) tableRowCount(name string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.tableIndex[name]
	if !ok || c.Tables[i].RowCount == nil {
		return 0, false
	}
	return *c.Tables[i].RowCount, true
}

// View looks up a view already recorded in the context by qualified name.
func (c *Context) View(name string) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.viewIndex[name]
	if !ok {
		return View{}, false
	}
	return c.Views[i], true
}

// AddView appends a newly discovered view.
func (c *Context) AddView(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.viewIndex[v.Name]; ok {
		return
	}
	c.viewIndex[v.Name] = len(c.Views)
	c.Views = append(c.Views, v)
}

// MutateView applies fn to the view named name in place.
func (c *Context) MutateView(name string, fn func(*View)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.viewIndex[name]
	if !ok {
		return
	}
	fn(&c.Views[i])
}

// AddRelationship records r if its dedup key — table|sorted(from)|
// referenced_table|sorted(to) — has not already been seen, and reports
// whether it was newly added.
func (c *Context) AddRelationship(r Relationship) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := relationshipKey(r)
	if c.seenRelationships[key] {
		return false
	}
	c.seenRelationships[key] = true
	c.Relationships = append(c.Relationships, r)
	return true
}

// catalogEntry backs the minimal read projection AsCatalog returns.
type catalogEntry struct {
	columns []string
	pk      []string
}

// Catalog is a minimal, read-only schema-lookup surface for downstream
// consumers that only need column lists and primary keys, without walking
// the full fragment stream.
type Catalog interface {
	Columns(qualifiedName string) ([]string, bool)
	PrimaryKeys(qualifiedName string) ([]string, bool)
}

type catalog struct {
	entries map[string]catalogEntry
}

func (c *catalog) Columns(qualifiedName string) ([]string, bool) {
	e, ok := c.entries[qualifiedName]
	if !ok {
		return nil, false
	}
	return e.columns, true
}

func (c *catalog) PrimaryKeys(qualifiedName string) ([]string, bool) {
	e, ok := c.entries[qualifiedName]
	if !ok {
		return nil, false
	}
	return e.pk, true
}

// AsCatalog projects the context's current tables into a minimal read
// interface, grounded on the retrieval pack's richcatalog.Catalog shape.
func (c *Context) AsCatalog() Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make(map[string]catalogEntry, len(c.Tables))
	for _, t := range c.Tables {
		cols := make([]string, 0, len(t.Columns))
		for _, col := range t.Columns {
			cols = append(cols, col.Name)
		}
		var pk []string
		for _, con := range t.Constraints {
			if con.Type == ConstraintPrimaryKey {
				pk = append(pk, con.Columns...)
			}
		}
		entries[t.Name] = catalogEntry{columns: cols, pk: pk}
	}
	return &catalog{entries: entries}
}

// checksumView is the canonical, order-stable shape Checksum hashes over.
type checksumView struct {
	Tables        []Table        `json:"tables"`
	Views         []View         `json:"views"`
	Relationships []Relationship `json:"relationships"`
}

// Checksum returns a SHA-256 hex digest over a canonical JSON encoding of
// the context's tables, views, and relationships, so a caller can cheaply
// detect whether a second introspection run changed anything without
// diffing the full fragment stream.
func (c *Context) Checksum() string {
	c.mu.Lock()
	tables := append([]Table(nil), c.Tables...)
	views := append([]View(nil), c.Views...)
	rels := append([]Relationship(nil), c.Relationships...)
	c.mu.Unlock()

	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	sort.Slice(rels, func(i, j int) bool {
		return relationshipKey(rels[i]) < relationshipKey(rels[j])
	})

	b, err := json.Marshal(checksumView{Tables: tables, Views: views, Relationships: rels})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
