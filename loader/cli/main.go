package main

import (
	"context"
	"flag"
	"log"

	"github.com/candidatos-info/validadores/loader"
	"github.com/candidatos-info/validadores/store"
	"github.com/candidatos-info/validadores/validator"
)

func main() {
	source := flag.String("coleta", "", "fonte do arquivo csv ou zip") // pode ser um path usando protocolo file:// ou http://
	outDir := flag.String("outdir", "", "diretório de saída onde os arquivos coletados serão colocados")
	collection := flag.String("colecao", "", "coleção a ser carregada; se vazio usa o nome do arquivo (ex: LE01ESTADO.csv)")
	dbURL := flag.String("dbURL", "", "URL de conexão com banco de dados")
	dbName := flag.String("dbName", "", "nome do banco de dados")
	project := flag.String("projeto", "", "projeto do Google Cloud para usar o datastore")
	flag.Parse()
	if *source == "" {
		log.Fatal("informe a fonte dos arquivos")
	}
	if *outDir == "" {
		log.Fatal("informe diretório de saída")
	}
	if *collection != "" {
		if _, ok := validator.Lookup(*collection); !ok {
			log.Fatalf("coleção [%s] desconhecida", *collection)
		}
	}
	ctx := context.Background()
	repo, closeRepo, err := store.Open(ctx, store.Config{DBURL: *dbURL, DBName: *dbName, DatastoreProject: *project})
	if err != nil {
		log.Fatalf("falha ao se conectar com banco, erro %v", err)
	}
	defer closeRepo()
	paths, err := loader.Collect(*source, *outDir)
	if err != nil {
		log.Fatalf("falha ao executar coleta, erro %v", err)
	}
	total, err := loader.LoadAll(ctx, repo, *collection, paths)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("lines [%d], inserted [%d], rejected [%d]\n", total.Read, total.Inserted, total.Rejected)
}
