package schema

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/candidatos-info/validadores/validator"
	"go.mongodb.org/mongo-driver/bson"
)

// Documents builds one document per row of the root table. Primary key
// columns go under _id, embedded tables become sub documents, referenced
// tables become a sub document with the referenced key and NxN tables
// become arrays. NULLs and empty strings are left out.
func (t *Tree) Documents(ctx context.Context, c *Catalog, table string) ([]bson.D, error) {
	var root *Node
	for _, r := range t.Roots {
		if r.Name == table {
			root = r
		}
	}
	if root == nil {
		return nil, fmt.Errorf("tabela [%s] não é uma coleção", table)
	}
	rows, err := c.Rows(ctx, table, nil, nil)
	if err != nil {
		return nil, err
	}
	docs := make([]bson.D, 0, len(rows))
	for _, row := range rows {
		d, err := t.document(ctx, c, root, row, false)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (t *Tree) document(ctx context.Context, c *Catalog, n *Node, row map[string]interface{}, embedded bool) (bson.D, error) {
	fks := t.schema.ForeignKeys[n.Name]
	embeddedBy := map[string]*Node{}
	for _, e := range n.Embedded {
		for _, col := range fks[e.Name].Columns {
			embeddedBy[col] = e
		}
	}
	referencedBy := map[string]string{}
	for _, r := range n.Referenced {
		for _, col := range fks[r].Columns {
			referencedBy[col] = r
		}
	}
	done := map[string]bool{}
	put := func(d bson.D, col string) (bson.D, error) {
		if e, ok := embeddedBy[col]; ok {
			if done[e.Name] {
				return d, nil
			}
			done[e.Name] = true
			fk := fks[e.Name]
			rows, err := c.Rows(ctx, e.Name, fk.ForeignColumns, values(row, fk.Columns))
			if err != nil || len(rows) == 0 {
				return d, err
			}
			sub, err := t.document(ctx, c, e, rows[0], true)
			if err != nil {
				return d, err
			}
			return append(d, bson.E{Key: e.Name, Value: sub}), nil
		}
		if r, ok := referencedBy[col]; ok {
			if done[r] {
				return d, nil
			}
			done[r] = true
			fk := fks[r]
			var ref bson.D
			for i, fc := range fk.ForeignColumns {
				if v := value(row[fk.Columns[i]]); v != nil {
					ref = append(ref, bson.E{Key: fc, Value: v})
				}
			}
			if len(ref) == 0 {
				return d, nil
			}
			return append(d, bson.E{Key: r, Value: ref}), nil
		}
		if v := value(row[col]); v != nil {
			d = append(d, bson.E{Key: col, Value: v})
		}
		return d, nil
	}

	var doc, id bson.D
	var err error
	pk := map[string]bool{}
	for _, col := range t.schema.PrimaryKeys[n.Name] {
		pk[col] = true
		if embedded {
			doc, err = put(doc, col)
		} else {
			id, err = put(id, col)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(id) > 0 {
		doc = append(doc, bson.E{Key: "_id", Value: id})
	}
	for _, col := range t.schema.Columns[n.Name] {
		if pk[col] {
			continue
		}
		if doc, err = put(doc, col); err != nil {
			return nil, err
		}
	}
	for _, rel := range n.NxN {
		fk := t.schema.ForeignKeys[rel][n.Name]
		rows, err := c.Rows(ctx, rel, fk.Columns, values(row, fk.ForeignColumns))
		if err != nil {
			return nil, err
		}
		back := map[string]bool{}
		for _, col := range fk.Columns {
			back[col] = true
		}
		var arr bson.A
		for _, r := range rows {
			var item bson.D
			for _, col := range t.schema.Columns[rel] {
				if v := value(r[col]); v != nil && !back[col] {
					item = append(item, bson.E{Key: col, Value: v})
				}
			}
			if len(item) > 0 {
				arr = append(arr, item)
			}
		}
		if len(arr) > 0 {
			doc = append(doc, bson.E{Key: rel, Value: arr})
		}
	}
	return doc, nil
}

func values(row map[string]interface{}, cols []string) []interface{} {
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		out[i] = row[c]
	}
	return out
}

// value normalizes a scanned column. nil means the column is left out.
func value(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		if len(x) == 0 {
			return nil
		}
		return string(x)
	case string:
		if x == "" {
			return nil
		}
		return x
	}
	return v
}

// Script returns a mongo shell script creating every collection of the tree
// and inserting its documents, in relaxed Extended JSON. Collections with a
// registered rule are created with it as validator and documents the rule
// rejects are logged and left out.
func (t *Tree) Script(ctx context.Context, c *Catalog) (string, error) {
	var buf bytes.Buffer
	sep := ""
	for _, r := range t.Roots {
		docs, err := t.Documents(ctx, c, r.Name)
		if err != nil {
			return "", err
		}
		buf.WriteString(sep)
		buf.WriteString("// " + r.Name + "\n")
		col, ok := validator.Lookup(r.Name)
		if ok {
			opts, err := bson.MarshalExtJSON(bson.D{{Key: "validator", Value: col.Rule.Filter()}}, false, false)
			if err != nil {
				return "", fmt.Errorf("falha ao serializar validador da coleção [%s], erro %w", r.Name, err)
			}
			fmt.Fprintf(&buf, "db.createCollection(%s, %s)\n", strconv.Quote(r.Name), opts)
		} else {
			fmt.Fprintf(&buf, "db.createCollection(%s)\n", strconv.Quote(r.Name))
		}
		var lines [][]byte
		for i, d := range docs {
			if ok {
				if err := col.Check(d.Map()); err != nil {
					log.Printf("linha %d de [%s] ignorada, erro %v", i+1, r.Name, err)
					continue
				}
			}
			b, err := bson.MarshalExtJSON(d, false, false)
			if err != nil {
				return "", fmt.Errorf("falha ao serializar documento de [%s], erro %w", r.Name, err)
			}
			lines = append(lines, b)
		}
		if len(lines) > 0 {
			fmt.Fprintf(&buf, "db.getCollection(%s).insertMany([\n", strconv.Quote(r.Name))
			for _, l := range lines {
				buf.WriteString("\t")
				buf.Write(l)
				buf.WriteString(",\n")
			}
			buf.WriteString("])\n")
		}
		sep = "\n"
	}
	return buf.String(), nil
}
