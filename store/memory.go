package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/candidatos-info/validadores/validator"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryCollection struct {
	docs    []bson.M
	ids     map[string]int              // ids[key(_id)] = position in docs
	indexes map[string]map[string][]int // indexes[field][key(value)] = positions
}

// Memory is a Repository kept in process memory.
type Memory struct {
	mu sync.Mutex
	db map[string]*memoryCollection
}

// NewMemory returns an empty in memory repository.
func NewMemory() *Memory {
	return &Memory{
		db: make(map[string]*memoryCollection),
	}
}

func (m *Memory) collection(name string) *memoryCollection {
	c, ok := m.db[name]
	if !ok {
		c = &memoryCollection{
			ids:     make(map[string]int),
			indexes: make(map[string]map[string][]int),
		}
		m.db[name] = c
	}
	return c
}

// Create makes an empty collection. Creating an existing one is a no-op.
func (m *Memory) Create(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection(collection)
	return nil
}

// Insert stores a deep copy of doc. Like MongoDB, an ObjectID is generated
// when doc has no _id.
func (m *Memory) Insert(ctx context.Context, collection string, doc bson.M) error {
	if err := validator.Check(collection, doc); err != nil {
		return err
	}
	stored := cloneDoc(doc)
	if _, ok := stored[validator.IDField]; !ok {
		stored[validator.IDField] = primitive.NewObjectID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(collection)
	id := key(stored[validator.IDField])
	if _, dup := c.ids[id]; dup {
		return fmt.Errorf("falha ao inserir documento na coleção [%s], _id %s, erro %w", collection, id, ErrDuplicateKey)
	}
	pos := len(c.docs)
	c.docs = append(c.docs, stored)
	c.ids[id] = pos
	for field, index := range c.indexes {
		if v, found := validator.Field(stored, field); found {
			k := key(v)
			index[k] = append(index[k], pos)
		}
	}
	return nil
}

// Replace swaps the document with the same _id, keeping indexes current.
func (m *Memory) Replace(ctx context.Context, collection string, doc bson.M) error {
	if err := validator.Check(collection, doc); err != nil {
		return err
	}
	rawID, ok := doc[validator.IDField]
	if !ok {
		return fmt.Errorf("falha ao substituir documento sem _id na coleção [%s], erro %w", collection, ErrNotFound)
	}
	stored := cloneDoc(doc)
	m.mu.Lock()
	defer m.mu.Unlock()
	id := key(rawID)
	c, ok := m.db[collection]
	if !ok {
		return fmt.Errorf("falha ao substituir documento na coleção [%s], _id %s, erro %w", collection, id, ErrNotFound)
	}
	pos, ok := c.ids[id]
	if !ok {
		return fmt.Errorf("falha ao substituir documento na coleção [%s], _id %s, erro %w", collection, id, ErrNotFound)
	}
	old := c.docs[pos]
	c.docs[pos] = stored
	for field, index := range c.indexes {
		if v, found := validator.Field(old, field); found {
			k := key(v)
			index[k] = without(index[k], pos)
			if len(index[k]) == 0 {
				delete(index, k)
			}
		}
		if v, found := validator.Field(stored, field); found {
			k := key(v)
			index[k] = append(index[k], pos)
		}
	}
	return nil
}

func without(positions []int, pos int) []int {
	out := positions[:0]
	for _, p := range positions {
		if p != pos {
			out = append(out, p)
		}
	}
	return out
}

// Find uses the index on field when there is one and scans otherwise.
// Returned documents are copies.
func (m *Memory) Find(ctx context.Context, collection, field string, value interface{}) ([]bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.db[collection]
	if !ok {
		return nil, nil
	}
	want := key(value)
	var out []bson.M
	if index, ok := c.indexes[field]; ok {
		for _, pos := range index[want] {
			out = append(out, cloneDoc(c.docs[pos]))
		}
		return out, nil
	}
	for _, doc := range c.docs {
		if v, found := validator.Field(doc, field); found && key(v) == want {
			out = append(out, cloneDoc(doc))
		}
	}
	return out, nil
}

// CreateIndex builds a hash index over the current documents of collection.
func (m *Memory) CreateIndex(ctx context.Context, collection, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(collection)
	index := make(map[string][]int)
	for pos, doc := range c.docs {
		if v, found := validator.Field(doc, field); found {
			k := key(v)
			index[k] = append(index[k], pos)
		}
	}
	c.indexes[field] = index
	return nil
}

// Drop removes the collection and its indexes.
func (m *Memory) Drop(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.db, collection)
	return nil
}

// Count returns how many documents collection holds.
func (m *Memory) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.db[collection]; ok {
		return len(c.docs)
	}
	return 0
}

// key renders v so that equal values share a key whatever their Go type:
// numbers go through validator.Number, so 1 and 1.0 collide as they do in
// a MongoDB match, and embedded documents become their fields sorted by name.
func key(v interface{}) string {
	var b strings.Builder
	writeKey(&b, v)
	return b.String()
}

func writeKey(b *strings.Builder, v interface{}) {
	if n, ok := validator.Number(v); ok {
		b.WriteString("n:")
		b.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
		return
	}
	switch x := v.(type) {
	case string:
		b.WriteString("s:")
		b.WriteString(strconv.Quote(x))
	case bson.M:
		writeFields(b, x)
	case map[string]interface{}:
		writeFields(b, x)
	case bson.D:
		m := make(map[string]interface{}, len(x))
		for _, e := range x {
			m[e.Key] = e.Value
		}
		writeFields(b, m)
	case bson.A:
		writeList(b, x)
	case []interface{}:
		writeList(b, x)
	case primitive.ObjectID:
		b.WriteString("o:")
		b.WriteString(x.Hex())
	default:
		fmt.Fprintf(b, "%T:%v", v, v)
	}
}

func writeFields(b *strings.Builder, m map[string]interface{}) {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	b.WriteString("{")
	for i, k := range names {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(strconv.Quote(k))
		b.WriteString(":")
		writeKey(b, m[k])
	}
	b.WriteString("}")
}

func writeList(b *strings.Builder, l []interface{}) {
	b.WriteString("[")
	for i, v := range l {
		if i > 0 {
			b.WriteString(",")
		}
		writeKey(b, v)
	}
	b.WriteString("]")
}

func cloneDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc)+1)
	for k, v := range doc {
		out[k] = clone(v)
	}
	return out
}

// clone copies embedded documents and arrays; scalars are shared.
func clone(v interface{}) interface{} {
	switch x := v.(type) {
	case bson.M:
		return cloneDoc(x)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = clone(e)
		}
		return out
	case bson.D:
		out := make(bson.D, len(x))
		for i, e := range x {
			out[i] = bson.E{Key: e.Key, Value: clone(e.Value)}
		}
		return out
	case bson.A:
		out := make(bson.A, len(x))
		for i, e := range x {
			out[i] = clone(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = clone(e)
		}
		return out
	}
	return v
}
