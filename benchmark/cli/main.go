package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/candidatos-info/validadores/benchmark"
	"github.com/candidatos-info/validadores/filestorage"
	"github.com/candidatos-info/validadores/store"
	"github.com/matryer/try"
)

const (
	maxAttempts = 5 // number of times to retry
)

func main() {
	configFile := flag.String("config", "", "arquivo yaml de configuração do benchmark; se vazio usa os valores padrão")
	dbURL := flag.String("dbURL", "", "URL de conexão com banco de dados")
	dbName := flag.String("dbName", "", "nome do banco de dados")
	project := flag.String("projeto", "", "projeto do Google Cloud para usar o datastore")
	index := flag.Bool("indice", false, "cria índice no campo buscado antes das inserções")
	report := flag.String("relatorio", "", "destino do relatório csv") // gs://BUCKET/ARQUIVO, s3://BUCKET/ARQUIVO, drive://PASTA/ARQUIVO ou path local
	credentials := flag.String("credentials", "", "chave de credenciais do Google Drive")
	oauthToken := flag.String("OAuthToken", "", "arquivo com token OAuth do Google Drive")
	flag.Parse()
	cfg, err := benchmark.LoadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *index {
		cfg.Index = true
	}
	var dest filestorage.Destination
	var storage filestorage.FileStorage
	if *report != "" {
		dest, err = filestorage.ParseDestination(*report)
		if err != nil {
			log.Fatal(err)
		}
		storage, err = filestorage.New(dest, filestorage.Options{DriveCredentialsFile: *credentials, DriveOAuthTokenFile: *oauthToken})
		if err != nil {
			log.Fatalf("falha ao criar cliente de armazenamento, erro %v", err)
		}
	}
	ctx := context.Background()
	repo, closeRepo, err := store.Open(ctx, store.Config{DBURL: *dbURL, DBName: *dbName, DatastoreProject: *project})
	if err != nil {
		log.Fatalf("falha ao se conectar com banco, erro %v", err)
	}
	defer closeRepo()
	runner, err := benchmark.New(repo, cfg, os.Stderr)
	if err != nil {
		log.Fatal(err)
	}
	results, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("falha ao executar benchmark, erro %v", err)
	}
	b, err := benchmark.Report(results)
	if err != nil {
		log.Fatal(err)
	}
	if storage == nil {
		fmt.Print(string(b))
		return
	}
	fileName := dest.FileName
	if storage.FileExists(dest.Bucket, fileName) {
		fileName = withTimestamp(fileName, time.Now())
	}
	var location string
	err = try.Do(func(attempt int) (bool, error) {
		var err error
		location, err = storage.Upload(b, dest.Bucket, fileName)
		return attempt < maxAttempts, err
	})
	if err != nil {
		log.Fatalf("falha ao salvar relatório %s em %s, erro %v", fileName, dest.Bucket, err)
	}
	log.Printf("report saved at %s\n", location)
}

// withTimestamp turns report.csv into report-20201018T150405.csv.
func withTimestamp(fileName string, t time.Time) string {
	stamp := t.Format("20060102T150405")
	if i := strings.LastIndex(fileName, "."); i > 0 {
		return fileName[:i] + "-" + stamp + fileName[i:]
	}
	return fileName + "-" + stamp
}
