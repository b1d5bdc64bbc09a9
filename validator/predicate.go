package validator

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Predicate is a rule evaluated against a single document. Filter returns
// the same rule expressed as a MongoDB query, so one definition serves both
// the in-process check and the collection validator on the server.
type Predicate interface {
	Eval(doc bson.M) bool
	Filter() bson.D
	String() string
}

type exists struct {
	path string
	want bool
}

// Exists holds when the field at path is present, even if its value is nil.
func Exists(path string) Predicate { return exists{path: path, want: true} }

// Missing holds when the field at path is absent.
func Missing(path string) Predicate { return exists{path: path, want: false} }

func (e exists) Eval(doc bson.M) bool {
	_, found := Field(doc, e.path)
	return found == e.want
}

func (e exists) Filter() bson.D {
	return bson.D{{Key: e.path, Value: bson.D{{Key: "$exists", Value: e.want}}}}
}

func (e exists) String() string {
	if e.want {
		return e.path + " existe"
	}
	return e.path + " ausente"
}

type in struct {
	path   string
	values []interface{}
}

// In holds when the field at path equals one of values.
func In(path string, values ...interface{}) Predicate {
	return in{path: path, values: values}
}

func (p in) Eval(doc bson.M) bool {
	v, found := Field(doc, p.path)
	if !found {
		return false
	}
	for _, want := range p.values {
		if equal(v, want) {
			return true
		}
	}
	return false
}

func (p in) Filter() bson.D {
	return bson.D{{Key: p.path, Value: bson.D{{Key: "$in", Value: bson.A(p.values)}}}}
}

func (p in) String() string {
	return fmt.Sprintf("%s em %v", p.path, p.values)
}

type eq struct {
	path  string
	value interface{}
}

// Eq holds when the field at path equals value.
func Eq(path string, value interface{}) Predicate { return eq{path: path, value: value} }

func (p eq) Eval(doc bson.M) bool {
	v, found := Field(doc, p.path)
	return found && equal(v, p.value)
}

func (p eq) Filter() bson.D {
	return bson.D{{Key: p.path, Value: bson.D{{Key: "$eq", Value: p.value}}}}
}

func (p eq) String() string { return fmt.Sprintf("%s = %v", p.path, p.value) }

type bound struct {
	path  string
	op    string
	limit float64
}

// Gt holds when the field at path is a number strictly greater than n.
func Gt(path string, n float64) Predicate { return bound{path: path, op: "$gt", limit: n} }

// Lt holds when the field at path is a number strictly less than n.
func Lt(path string, n float64) Predicate { return bound{path: path, op: "$lt", limit: n} }

// Between holds when lo < value < hi.
func Between(path string, lo, hi float64) Predicate {
	return And(Gt(path, lo), Lt(path, hi))
}

func (b bound) Eval(doc bson.M) bool {
	v, found := Field(doc, b.path)
	if !found {
		return false
	}
	n, ok := Number(v)
	if !ok {
		return false
	}
	if b.op == "$gt" {
		return n > b.limit
	}
	return n < b.limit
}

func (b bound) Filter() bson.D {
	return bson.D{{Key: b.path, Value: bson.D{{Key: b.op, Value: b.limit}}}}
}

func (b bound) String() string {
	if b.op == "$gt" {
		return fmt.Sprintf("%s > %v", b.path, b.limit)
	}
	return fmt.Sprintf("%s < %v", b.path, b.limit)
}

type and []Predicate

// And holds when every predicate holds.
func And(preds ...Predicate) Predicate { return and(preds) }

func (a and) Eval(doc bson.M) bool {
	return a.failing(doc) == nil
}

// failing returns the first leaf rule that rejects doc, or nil.
func (a and) failing(doc bson.M) Predicate {
	for _, p := range a {
		if inner, ok := p.(and); ok {
			if f := inner.failing(doc); f != nil {
				return f
			}
			continue
		}
		if !p.Eval(doc) {
			return p
		}
	}
	return nil
}

func (a and) Filter() bson.D {
	return bson.D{{Key: "$and", Value: filters(a)}}
}

func (a and) String() string { return join(a, " e ") }

type or []Predicate

// Or holds when at least one predicate holds.
func Or(preds ...Predicate) Predicate { return or(preds) }

func (o or) Eval(doc bson.M) bool {
	for _, p := range o {
		if p.Eval(doc) {
			return true
		}
	}
	return false
}

func (o or) Filter() bson.D {
	return bson.D{{Key: "$or", Value: filters(o)}}
}

func (o or) String() string { return join(o, " ou ") }

// Case is one branch of a Switch.
type Case struct {
	Value interface{}
	Rule  Predicate
}

type switchOn struct {
	path  string
	cases []Case
}

// Switch selects the branch whose Value equals the discriminator field and
// evaluates its rule. A document whose discriminator matches no branch is
// rejected. Branch values must be distinct, which makes the branches
// mutually exclusive.
func Switch(discriminator string, cases ...Case) Predicate {
	return switchOn{path: discriminator, cases: cases}
}

func (s switchOn) Eval(doc bson.M) bool {
	v, found := Field(doc, s.path)
	if !found {
		return false
	}
	for _, c := range s.cases {
		if equal(v, c.Value) {
			return c.Rule.Eval(doc)
		}
	}
	return false
}

func (s switchOn) Filter() bson.D {
	branches := make(bson.A, 0, len(s.cases))
	for _, c := range s.cases {
		branches = append(branches, bson.D{{Key: "$and", Value: bson.A{
			Eq(s.path, c.Value).Filter(),
			c.Rule.Filter(),
		}}})
	}
	return bson.D{{Key: "$or", Value: branches}}
}

func (s switchOn) String() string {
	parts := make([]string, 0, len(s.cases))
	for _, c := range s.cases {
		parts = append(parts, fmt.Sprintf("(%s = %v: %s)", s.path, c.Value, c.Rule))
	}
	return strings.Join(parts, " ou ")
}

func filters(preds []Predicate) bson.A {
	out := make(bson.A, 0, len(preds))
	for _, p := range preds {
		out = append(out, p.Filter())
	}
	return out
}

func join(preds []Predicate, sep string) string {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		parts = append(parts, p.String())
	}
	return "(" + strings.Join(parts, sep) + ")"
}
