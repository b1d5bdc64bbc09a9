package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/candidatos-info/validadores/validator"
	"github.com/gocarina/gocsv"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/text/encoding/charmap"
)

// Rows of the CSV files, one type per collection. Headers are the field
// names of the documents; every cell is read as text and converted by
// builder.

type estadoRow struct {
	Sigla string `csv:"Sigla"`
	Nome  string `csv:"Nome"`
}

func (r *estadoRow) document() bson.M {
	b := newBuilder()
	b.id("Sigla", r.Sigla)
	b.text("Nome", r.Nome)
	return b.doc
}

type cidadeRow struct {
	Nome        string `csv:"Nome"`
	SiglaEstado string `csv:"SiglaEstado"`
	Populacao   string `csv:"Populacao"`
}

func (r *cidadeRow) document() bson.M {
	b := newBuilder()
	b.id("Nome", r.Nome)
	b.id("SiglaEstado", r.SiglaEstado)
	b.number("Populacao", r.Populacao)
	return b.doc
}

type zonaRow struct {
	NroZona            string `csv:"NroZona"`
	NroDeUrnasReservas string `csv:"NroDeUrnasReservas"`
}

func (r *zonaRow) document() bson.M {
	b := newBuilder()
	b.idNumber("NroZona", r.NroZona)
	b.number("NroDeUrnasReservas", r.NroDeUrnasReservas)
	return b.doc
}

type bairroRow struct {
	Nome        string `csv:"Nome"`
	NomeCidade  string `csv:"NomeCidade"`
	SiglaEstado string `csv:"SiglaEstado"`
	NroZona     string `csv:"NroZona"`
}

func (r *bairroRow) document() bson.M {
	b := newBuilder()
	b.id("Nome", r.Nome)
	b.id("NomeCidade", r.NomeCidade)
	b.id("SiglaEstado", r.SiglaEstado)
	b.number("NroZona", r.NroZona)
	return b.doc
}

type urnaRow struct {
	NSerial string `csv:"NSerial"`
	Estado  string `csv:"Estado"`
}

func (r *urnaRow) document() bson.M {
	b := newBuilder()
	b.idNumber("NSerial", r.NSerial)
	b.text("Estado", r.Estado)
	return b.doc
}

type sessaoRow struct {
	NroSessao string `csv:"NroSessao"`
	NSerial   string `csv:"NSerial"`
}

func (r *sessaoRow) document() bson.M {
	b := newBuilder()
	b.idNumber("NroSessao", r.NroSessao)
	b.number("NSerial", r.NSerial)
	return b.doc
}

type partidoRow struct {
	Sigla string `csv:"Sigla"`
	Nome  string `csv:"Nome"`
}

func (r *partidoRow) document() bson.M {
	b := newBuilder()
	b.id("Sigla", r.Sigla)
	b.text("Nome", r.Nome)
	return b.doc
}

type candidatoRow struct {
	NroCand string `csv:"NroCand"`
	Tipo    string `csv:"Tipo"`
	Nome    string `csv:"Nome"`
}

func (r *candidatoRow) document() bson.M {
	b := newBuilder()
	b.idNumber("NroCand", r.NroCand)
	b.text("Tipo", r.Tipo)
	b.text("Nome", r.Nome)
	return b.doc
}

type cargoRow struct {
	CodCargo       string `csv:"CodCargo"`
	PossuiVice     string `csv:"PossuiVice"`
	NroDeCadeiras  string `csv:"NroDeCadeiras"`
	Esfera         string `csv:"Esfera"`
	NomeDescritivo string `csv:"NomeDescritivo"`
	AnosMandato    string `csv:"AnosMandato"`
	AnoBase        string `csv:"AnoBase"`
	NomeCidade     string `csv:"NomeCidade"`
	SiglaEstado    string `csv:"SiglaEstado"`
}

func (r *cargoRow) document() bson.M {
	b := newBuilder()
	b.idNumber("CodCargo", r.CodCargo)
	b.number("PossuiVice", r.PossuiVice)
	b.number("NroDeCadeiras", r.NroDeCadeiras)
	b.text("Esfera", r.Esfera)
	b.text("NomeDescritivo", r.NomeDescritivo)
	b.number("AnosMandato", r.AnosMandato)
	b.number("AnoBase", r.AnoBase)
	b.text("NomeCidade", r.NomeCidade)
	b.text("SiglaEstado", r.SiglaEstado)
	return b.doc
}

type candidaturaRow struct {
	Reg      string `csv:"Reg"`
	CodCargo string `csv:"CodCargo"`
	Ano      string `csv:"Ano"`
	NroCand  string `csv:"NroCand"`
	Nome     string `csv:"Nome"`
}

func (r *candidaturaRow) document() bson.M {
	b := newBuilder()
	b.idNumber("Reg", r.Reg)
	b.number("CodCargo", r.CodCargo)
	b.number("Ano", r.Ano)
	b.number("NroCand", r.NroCand)
	b.text("Nome", r.Nome)
	return b.doc
}

type pleitoRow struct {
	NroSessao string `csv:"NroSessao"`
	NroZona   string `csv:"NroZona"`
	CodCargo  string `csv:"CodCargo"`
	Ano       string `csv:"Ano"`
	NroCand   string `csv:"NroCand"`
	Nome      string `csv:"Nome"`
}

// The ballot repeats CodCargo, Ano and NroCand outside the identifier.
func (r *pleitoRow) document() bson.M {
	b := newBuilder()
	b.idNumber("NroSessao", r.NroSessao)
	b.idNumber("NroZona", r.NroZona)
	b.idNumber("CodCargo", r.CodCargo)
	b.idNumber("Ano", r.Ano)
	b.idNumber("NroCand", r.NroCand)
	b.number("CodCargo", r.CodCargo)
	b.number("Ano", r.Ano)
	b.number("NroCand", r.NroCand)
	b.text("Nome", r.Nome)
	return b.doc
}

type pesquisaRow struct {
	RegPesquisa   string `csv:"RegPesquisa"`
	PeriodoInicio string `csv:"PeriodoInicio"`
	PeriodoFim    string `csv:"PeriodoFim"`
}

func (r *pesquisaRow) document() bson.M {
	b := newBuilder()
	b.idNumber("RegPesquisa", r.RegPesquisa)
	b.number("PeriodoInicio", r.PeriodoInicio)
	b.number("PeriodoFim", r.PeriodoFim)
	return b.doc
}

type intencaoDeVotoRow struct {
	RegPesquisa string `csv:"RegPesquisa"`
	RegCandid   string `csv:"RegCandid"`
	Total       string `csv:"Total"`
}

func (r *intencaoDeVotoRow) document() bson.M {
	b := newBuilder()
	b.idNumber("RegPesquisa", r.RegPesquisa)
	b.idNumber("RegCandid", r.RegCandid)
	b.number("Total", r.Total)
	return b.doc
}

type row interface {
	document() bson.M
}

func decode[T row](in io.Reader) ([]bson.M, error) {
	var rows []T
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, err
	}
	docs := make([]bson.M, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.document())
	}
	return docs, nil
}

var decoders = map[string]func(io.Reader) ([]bson.M, error){
	validator.Estado:         decode[*estadoRow],
	validator.Cidade:         decode[*cidadeRow],
	validator.Zona:           decode[*zonaRow],
	validator.Bairro:         decode[*bairroRow],
	validator.Urna:           decode[*urnaRow],
	validator.Sessao:         decode[*sessaoRow],
	validator.Partido:        decode[*partidoRow],
	validator.Candidato:      decode[*candidatoRow],
	validator.Cargo:          decode[*cargoRow],
	validator.Candidatura:    decode[*candidaturaRow],
	validator.Pleito:         decode[*pleitoRow],
	validator.Pesquisa:       decode[*pesquisaRow],
	validator.IntencaoDeVoto: decode[*intencaoDeVotoRow],
}

func init() {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		// Enforcing reading the files as ISO 8859-1 (latin 1), like the TSE ones
		r := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(in))
		r.LazyQuotes = true
		r.Comma = ';'
		return r
	})
}

// Parse decodes a latin 1, semicolon separated CSV into documents of
// collection. Identifier columns go under _id, empty cells are left out and
// numeric cells become numbers.
func Parse(collection string, in io.Reader) ([]bson.M, error) {
	dec, ok := decoders[collection]
	if !ok {
		return nil, fmt.Errorf("coleção [%s] desconhecida", collection)
	}
	docs, err := dec(in)
	if err != nil {
		return nil, fmt.Errorf("falha ao inflar documentos da coleção [%s] usando csv, erro %w", collection, err)
	}
	return docs, nil
}

type builder struct {
	doc bson.M
	ids bson.M
}

func newBuilder() *builder {
	b := &builder{doc: bson.M{}, ids: bson.M{}}
	b.doc[validator.IDField] = b.ids
	return b
}

func (b *builder) id(field, value string) {
	if value = strings.TrimSpace(value); value != "" {
		b.ids[field] = value
	}
}

func (b *builder) idNumber(field, value string) {
	if value = strings.TrimSpace(value); value != "" {
		b.ids[field] = parseNumber(value)
	}
}

func (b *builder) text(field, value string) {
	if value = strings.TrimSpace(value); value != "" {
		b.doc[field] = value
	}
}

func (b *builder) number(field, value string) {
	if value = strings.TrimSpace(value); value != "" {
		b.doc[field] = parseNumber(value)
	}
}

// parseNumber keeps value as text when it is not a number, so range
// checks reject it instead of the loader guessing.
func parseNumber(value string) interface{} {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(strings.Replace(value, ",", ".", 1), 64); err == nil {
		return f
	}
	return value
}
