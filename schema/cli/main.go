package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"strings"

	"github.com/candidatos-info/validadores/schema"
)

func main() {
	driver := flag.String("driver", "sqlite", "driver do banco relacional: sqlite ou postgres")
	dsn := flag.String("dsn", "", "string de conexão com o banco relacional")
	prefix := flag.String("prefixo", "LE", "prefixo das tabelas lidas")
	embedded := flag.String("embutidas", "", "tabelas embutidas em quem as referencia, separadas por vírgula e na ordem de inclusão")
	referenced := flag.String("referenciadas", "", "tabelas referenciadas, separadas por vírgula")
	nxn := flag.String("nxn", "", "tabelas de relacionamento NxN, separadas por vírgula")
	out := flag.String("script", "-", "arquivo onde o script do mongo shell será salvo; use - para imprimir na saída padrão")
	flag.Parse()
	if *dsn == "" {
		log.Fatal("informe -dsn")
	}
	catalog, err := schema.Open(*driver, *dsn, *prefix)
	if err != nil {
		log.Fatal(err)
	}
	defer catalog.Close()
	ctx := context.Background()
	s, err := schema.LoadSchema(ctx, catalog)
	if err != nil {
		log.Fatalf("falha ao ler esquema, erro %v", err)
	}
	modes := map[string]schema.Mode{}
	var order []string
	for _, m := range []struct {
		list string
		mode schema.Mode
	}{{*referenced, schema.Referenced}, {*embedded, schema.Embedded}, {*nxn, schema.NxN}} {
		for _, t := range split(m.list) {
			if _, ok := modes[t]; ok {
				log.Fatalf("tabela [%s] informada mais de uma vez", t)
			}
			modes[t] = m.mode
			order = append(order, t)
		}
	}
	tree := schema.NewTree(s)
	for _, t := range s.Tables {
		if _, ok := modes[t]; !ok {
			if err := tree.Add(t, schema.Simple); err != nil {
				log.Fatal(err)
			}
		}
	}
	for _, t := range order {
		if err := tree.Add(t, modes[t]); err != nil {
			log.Fatalf("falha ao incluir [%s] como %s, erro %v", t, modes[t], err)
		}
	}
	script, err := tree.Script(ctx, catalog)
	if err != nil {
		log.Fatal(err)
	}
	if *out == "-" {
		fmt.Print(script)
		return
	}
	if err := ioutil.WriteFile(*out, []byte(script), 0644); err != nil {
		log.Fatalf("falha ao salvar script em [%s], erro %v", *out, err)
	}
	log.Printf("script saved at %s\n", *out)
}

func split(list string) []string {
	var out []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
