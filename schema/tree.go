package schema

import (
	"context"
	"fmt"
	"sort"
)

// Mode tells how a table is placed in the generated collections.
type Mode int

const (
	// Simple makes the table a collection of its own.
	Simple Mode = iota
	// Embedded nests the table inside every table that references it.
	Embedded
	// Referenced makes the table a collection and replaces the foreign key
	// columns of the tables that reference it by a sub document holding the
	// referenced key.
	Referenced
	// NxN turns a relationship table into an array inside every table it
	// references.
	NxN
)

var modes = [...]string{"simples", "embutida", "referenciada", "NxN"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modes) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modes[m]
}

// Schema holds the catalog information the script generation needs.
type Schema struct {
	Tables      []string
	Columns     map[string][]string
	PrimaryKeys map[string][]string
	ForeignKeys map[string]map[string]FK // table -> referenced table -> key
}

// LoadSchema reads every table of the catalog.
func LoadSchema(ctx context.Context, c *Catalog) (*Schema, error) {
	tables, err := c.Tables(ctx)
	if err != nil {
		return nil, err
	}
	s := &Schema{
		Tables:      tables,
		Columns:     map[string][]string{},
		PrimaryKeys: map[string][]string{},
		ForeignKeys: map[string]map[string]FK{},
	}
	for _, t := range tables {
		if s.Columns[t], err = c.Columns(ctx, t); err != nil {
			return nil, err
		}
		if s.PrimaryKeys[t], err = c.PrimaryKey(ctx, t); err != nil {
			return nil, err
		}
		if s.ForeignKeys[t], err = c.ForeignKeys(ctx, t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Schema) has(table string) bool {
	_, ok := s.Columns[table]
	return ok
}

// Node is a table and what was placed inside it.
type Node struct {
	Name       string
	Embedded   []*Node
	Referenced []string
	NxN        []string
}

// Tree is the set of collections to generate.
type Tree struct {
	schema *Schema
	Roots  []*Node
}

// NewTree returns an empty tree over s.
func NewTree(s *Schema) *Tree {
	return &Tree{schema: s}
}

// Add places table according to mode. Embedded and NxN tables attach to
// nodes already in the tree, so add the tables they relate to first.
func (t *Tree) Add(table string, mode Mode) error {
	if !t.schema.has(table) {
		return fmt.Errorf("tabela [%s] não encontrada", table)
	}
	for _, r := range t.Roots {
		if r.Name == table {
			return fmt.Errorf("tabela [%s] já adicionada", table)
		}
	}
	switch mode {
	case Simple:
		t.addRoot(table)
	case Referenced:
		t.walk(func(n *Node) {
			if t.references(n.Name, table) {
				n.Referenced = append(n.Referenced, table)
			}
		})
		t.addRoot(table)
	case Embedded:
		var found bool
		t.walk(func(n *Node) {
			if n.Name != table && t.references(n.Name, table) {
				n.Embedded = append(n.Embedded, &Node{Name: table})
				found = true
			}
		})
		if !found {
			return fmt.Errorf("nenhuma tabela adicionada referencia [%s]", table)
		}
	case NxN:
		var found bool
		for _, r := range t.Roots {
			if t.references(table, r.Name) {
				r.NxN = append(r.NxN, table)
				found = true
			}
		}
		if !found {
			return fmt.Errorf("[%s] não referencia nenhuma tabela adicionada", table)
		}
	default:
		return fmt.Errorf("modo %s inválido", mode)
	}
	return nil
}

func (t *Tree) addRoot(table string) {
	t.Roots = append(t.Roots, &Node{Name: table})
	sort.Slice(t.Roots, func(i, j int) bool { return t.Roots[i].Name < t.Roots[j].Name })
}

// references reports whether table has a foreign key to foreign.
func (t *Tree) references(table, foreign string) bool {
	_, ok := t.schema.ForeignKeys[table][foreign]
	return ok
}

// walk visits roots and embedded nodes, parents first. Nodes appended during
// the walk are not visited.
func (t *Tree) walk(fn func(n *Node)) {
	var visit func(nodes []*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			children := n.Embedded
			fn(n)
			visit(children)
		}
	}
	visit(t.Roots)
}
