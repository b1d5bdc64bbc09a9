package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/candidatos-info/validadores/store"
	"github.com/candidatos-info/validadores/validator"
	"github.com/matryer/try"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	maxAttempts = 5 // number of times to retry an insert
)

// wait before attempt n is (n-1) * retryDelay
var retryDelay = 500 * time.Millisecond

// Result counts what happened to the documents of a load.
type Result struct {
	Read     int `json:"lidos"`
	Inserted int `json:"inseridos"`
	Rejected int `json:"rejeitados"`
}

// Load inserts docs into collection. Documents refused by the validator or
// clashing with an existing _id are counted and skipped; any other failure
// is retried with a growing delay and, once attempts run out or ctx is
// done, aborts the load.
func Load(ctx context.Context, repo store.Repository, collection string, docs []bson.M) (Result, error) {
	res := Result{Read: len(docs)}
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := try.Do(func(attempt int) (bool, error) {
			if attempt > 1 {
				select {
				case <-ctx.Done():
					return false, ctx.Err()
				case <-time.After(time.Duration(attempt-1) * retryDelay):
				}
			}
			err := repo.Insert(ctx, collection, doc)
			if rejected(err) || ctx.Err() != nil {
				return false, err
			}
			return attempt < maxAttempts, err
		})
		switch {
		case err == nil:
			res.Inserted++
		case rejected(err):
			res.Rejected++
			log.Printf("linha %d da coleção [%s] rejeitada: %v\n", i+2, collection, err)
		default:
			return res, fmt.Errorf("falha ao inserir documento %d na coleção [%s], erro %w", i+1, collection, err)
		}
	}
	return res, nil
}

// LoadFile parses the CSV file at path and loads it into collection.
func LoadFile(ctx context.Context, repo store.Repository, collection, path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("falha ao abrir arquivo %s, erro %w", path, err)
	}
	defer file.Close()
	docs, err := Parse(collection, file)
	if err != nil {
		return Result{}, err
	}
	if err := repo.Create(ctx, collection); err != nil {
		return Result{}, err
	}
	res, err := Load(ctx, repo, collection, docs)
	log.Printf("file [%s], lines [%d], inserted [%d], rejected [%d]\n", path, res.Read, res.Inserted, res.Rejected)
	return res, err
}

// LoadAll loads every file in paths. An empty collection is inferred from
// each file name (LE09CARGO.csv goes to LE09CARGO); files matching no
// collection are skipped.
func LoadAll(ctx context.Context, repo store.Repository, collection string, paths []string) (Result, error) {
	var total Result
	for _, path := range paths {
		name, ok := collectionFor(path, collection)
		if !ok {
			log.Printf("arquivo [%s] ignorado, nenhuma coleção com esse nome\n", path)
			continue
		}
		res, err := LoadFile(ctx, repo, name, path)
		total.Read += res.Read
		total.Inserted += res.Inserted
		total.Rejected += res.Rejected
		if err != nil {
			return total, fmt.Errorf("falha ao carregar arquivo [%s], erro %w", path, err)
		}
	}
	return total, nil
}

func collectionFor(path, collection string) (string, bool) {
	if collection == "" {
		collection = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	_, ok := validator.Lookup(collection)
	return collection, ok
}

func rejected(err error) bool {
	return errors.Is(err, validator.ErrValidationFailed) || errors.Is(err, store.ErrDuplicateKey)
}
