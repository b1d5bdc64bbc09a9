package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"time"

	"github.com/briandowns/spinner"
	"github.com/candidatos-info/validadores/store"
	"github.com/candidatos-info/validadores/validator"
)

func main() {
	script := flag.String("script", "", "arquivo onde o script do mongo shell será salvo; use - para imprimir na saída padrão")
	dbURL := flag.String("dbURL", "", "URL de conexão com banco de dados onde os validadores serão aplicados")
	dbName := flag.String("dbName", "", "nome do banco de dados")
	flag.Parse()
	if *script == "" && *dbURL == "" {
		log.Fatal("informe -script ou -dbURL")
	}
	if *script != "" {
		s, err := validator.Script()
		if err != nil {
			log.Fatal(err)
		}
		if *script == "-" {
			fmt.Print(s)
		} else {
			if err := ioutil.WriteFile(*script, []byte(s), 0644); err != nil {
				log.Fatalf("falha ao salvar script em [%s], erro %v", *script, err)
			}
			log.Printf("script saved at %s\n", *script)
		}
	}
	if *dbURL == "" {
		return
	}
	if *dbName == "" {
		log.Fatal("informe o nome do banco de dados")
	}
	client, err := store.NewMongo(*dbURL, *dbName)
	if err != nil {
		log.Fatalf("falha ao se conectar com banco, erro %v", err)
	}
	defer client.Close(context.Background())
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" aplicando %d validadores", len(validator.Collections()))
	s.Start()
	err = client.ApplyValidators(context.Background())
	s.Stop()
	if err != nil {
		log.Fatalf("falha ao aplicar validadores, erro %v", err)
	}
	log.Printf("validators applied to %s\n", *dbName)
}
