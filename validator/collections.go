// Package validator holds the write-time rules of the electoral database
// collections. Each rule only reads the document being written.
package validator

import (
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrValidationFailed is returned when a document does not satisfy the rule
// of its collection.
var ErrValidationFailed = errors.New("documento rejeitado pelo validador")

// Collection names as they exist in the database.
const (
	Estado         = "LE01ESTADO"
	Cidade         = "LE02CIDADE"
	Zona           = "LE03ZONA"
	Bairro         = "LE04BAIRRO"
	Urna           = "LE05URNA"
	Sessao         = "LE06SESSAO"
	Partido        = "LE07PARTIDO"
	Candidato      = "LE08CANDIDATO"
	Cargo          = "LE09CARGO"
	Candidatura    = "LE10CANDIDATURA"
	Pleito         = "LE11PLEITO"
	Pesquisa       = "LE12PESQUISA"
	IntencaoDeVoto = "LE13INTENCAODEVOTO"
)

// IDField is the field holding the composite identifier of a document.
const IDField = "_id"

const (
	anoMinimo = 1985 // exclusive
	anoMaximo = 2100 // exclusive
)

// Collection binds a rule to a named collection.
type Collection struct {
	Name     string
	Entity   string    // human readable entity name
	Identity []string  // fields of the composite identifier, under _id
	Rule     Predicate // full rule, identity checks included
}

// Validate reports whether doc may be written to the collection.
func (c *Collection) Validate(doc bson.M) bool {
	return c.Rule.Eval(doc)
}

// Check is Validate with diagnostics: the returned error wraps
// ErrValidationFailed and names the first rule that failed.
func (c *Collection) Check(doc bson.M) error {
	if c.Rule.Eval(doc) {
		return nil
	}
	failed := c.Rule
	if a, ok := c.Rule.(and); ok {
		if f := a.failing(doc); f != nil {
			failed = f
		}
	}
	return fmt.Errorf("%w: coleção %s, regra %s", ErrValidationFailed, c.Name, failed)
}

func identity(fields ...string) []string { return fields }

// rule builds the conjunction of identity presence checks and the
// collection specific checks.
func rule(id []string, checks ...Predicate) Predicate {
	preds := make([]Predicate, 0, len(id)+len(checks))
	for _, f := range id {
		preds = append(preds, Exists(IDField+"."+f))
	}
	return And(append(preds, checks...)...)
}

func newCollection(name, entity string, id []string, checks ...Predicate) *Collection {
	return &Collection{Name: name, Entity: entity, Identity: id, Rule: rule(id, checks...)}
}

var collections = map[string]*Collection{}

func register(c *Collection) { collections[c.Name] = c }

func init() {
	register(newCollection(Estado, "Estado", identity("Sigla"),
		Exists("Nome")))
	register(newCollection(Cidade, "Cidade", identity("Nome", "SiglaEstado"),
		Exists("Populacao")))
	register(newCollection(Zona, "Zona", identity("NroZona"),
		Exists("NroDeUrnasReservas")))
	register(newCollection(Bairro, "Bairro", identity("Nome", "NomeCidade", "SiglaEstado"),
		Exists("NroZona")))
	register(newCollection(Urna, "Urna", identity("NSerial"),
		In("Estado", "funcional", "manutencao")))
	register(newCollection(Sessao, "Sessão", identity("NroSessao"),
		Exists("NSerial")))
	register(newCollection(Partido, "Partido", identity("Sigla"),
		Exists("Nome")))
	register(newCollection(Candidato, "Candidato", identity("NroCand"),
		In("Tipo", "politico", "especial"),
		Exists("Nome")))
	register(newCollection(Cargo, "Cargo", identity("CodCargo"),
		In("PossuiVice", 0, 1),
		Gt("NroDeCadeiras", 0),
		In("Esfera", "F", "E", "M"),
		Exists("NomeDescritivo"),
		Gt("AnosMandato", 0),
		Between("AnoBase", anoMinimo, anoMaximo),
		Switch("Esfera",
			Case{Value: "F", Rule: And(Missing("NomeCidade"), Missing("SiglaEstado"))},
			Case{Value: "E", Rule: And(Missing("NomeCidade"), Exists("SiglaEstado"))},
			Case{Value: "M", Rule: And(Exists("NomeCidade"), Missing("SiglaEstado"))},
		)))
	register(newCollection(Candidatura, "Candidatura", identity("Reg"),
		Exists("CodCargo"),
		Between("Ano", anoMinimo, anoMaximo),
		Exists("NroCand"),
		Exists("Nome")))
	register(newCollection(Pleito, "Pleito", identity("NroSessao", "NroZona", "CodCargo", "Ano", "NroCand"),
		Exists("CodCargo"),
		Between("Ano", anoMinimo, anoMaximo),
		Exists("NroCand"),
		Exists("Nome")))
	register(newCollection(Pesquisa, "Pesquisa", identity("RegPesquisa"),
		Exists("PeriodoInicio"),
		Between("PeriodoFim", anoMinimo, anoMaximo)))
	register(newCollection(IntencaoDeVoto, "Intenção de voto", identity("RegPesquisa", "RegCandid"),
		Exists("Total")))
}

// Collections returns every validated collection ordered by name.
func Collections() []*Collection {
	out := make([]*Collection, 0, len(collections))
	for _, c := range collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the collection with the given name.
func Lookup(name string) (*Collection, bool) {
	c, ok := collections[name]
	return c, ok
}

// Validate reports whether doc may be written to the named collection. An
// unknown collection has no rule to satisfy, so false is returned only for
// known collections whose rule rejects doc.
func Validate(name string, doc bson.M) bool {
	c, ok := collections[name]
	if !ok {
		return true
	}
	return c.Validate(doc)
}

// Check returns nil when doc may be written to the named collection.
func Check(name string, doc bson.M) error {
	c, ok := collections[name]
	if !ok {
		return nil
	}
	return c.Check(doc)
}
