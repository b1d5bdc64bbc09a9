package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/candidatos-info/validadores/validator"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	timeout = 10 // in seconds

	// server error code for a write rejected by the collection validator
	documentValidationFailure = 121
)

// Mongo manages all interactions with mongodb
type Mongo struct {
	client *mongo.Client
	dbName string
}

// NewMongo returns a db connection that can be used for CRUD operations
func NewMongo(dbURL, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dbURL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB at link [%s], error %w", dbURL, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB at link [%s], error %w", dbURL, err)
	}
	return &Mongo{
		client: client,
		dbName: dbName,
	}, nil
}

// Close disconnects from the server.
func (c *Mongo) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *Mongo) db() *mongo.Database {
	return c.client.Database(c.dbName)
}

// Create creates the collection with its validator. When the collection
// already exists the validator is replaced through collMod.
func (c *Mongo) Create(ctx context.Context, collection string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout*time.Second)
	defer cancel()
	names, err := c.db().ListCollectionNames(ctx, bson.M{"name": collection})
	if err != nil {
		return fmt.Errorf("falha ao listar coleções do banco [%s], erro %w", c.dbName, err)
	}
	col, validated := validator.Lookup(collection)
	if len(names) > 0 {
		if !validated {
			return nil
		}
		if err := c.db().RunCommand(ctx, col.Command()).Err(); err != nil {
			return fmt.Errorf("falha ao aplicar validador na coleção [%s], erro %w", collection, err)
		}
		return nil
	}
	opts := options.CreateCollection()
	if validated {
		opts.SetValidator(col.Rule.Filter())
	}
	if err := c.db().CreateCollection(ctx, collection, opts); err != nil {
		return fmt.Errorf("falha ao criar coleção [%s], erro %w", collection, err)
	}
	return nil
}

// ApplyValidators creates every validated collection, or updates its
// validator when it already exists.
func (c *Mongo) ApplyValidators(ctx context.Context) error {
	for _, col := range validator.Collections() {
		if err := c.Create(ctx, col.Name); err != nil {
			return err
		}
	}
	return nil
}

// Insert checks doc locally first, so the caller gets the failing rule in
// the error; the server validator remains the final word.
func (c *Mongo) Insert(ctx context.Context, collection string, doc bson.M) error {
	if err := validator.Check(collection, doc); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout*time.Second)
	defer cancel()
	if _, err := c.db().Collection(collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("falha ao inserir documento na coleção [%s], erro %w", collection, classify(err))
	}
	return nil
}

// Replace swaps the document with the same _id through ReplaceOne.
func (c *Mongo) Replace(ctx context.Context, collection string, doc bson.M) error {
	if err := validator.Check(collection, doc); err != nil {
		return err
	}
	id, ok := doc[validator.IDField]
	if !ok {
		return fmt.Errorf("falha ao substituir documento sem _id na coleção [%s], erro %w", collection, ErrNotFound)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout*time.Second)
	defer cancel()
	res, err := c.db().Collection(collection).ReplaceOne(ctx, bson.M{validator.IDField: id}, doc)
	if err != nil {
		return fmt.Errorf("falha ao substituir documento na coleção [%s], erro %w", collection, classify(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("falha ao substituir documento na coleção [%s], _id %v, erro %w", collection, id, ErrNotFound)
	}
	return nil
}

// Find returns every document of collection whose field equals value.
func (c *Mongo) Find(ctx context.Context, collection, field string, value interface{}) ([]bson.M, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout*time.Second)
	defer cancel()
	cur, err := c.db().Collection(collection).Find(ctx, bson.M{field: value})
	if err != nil {
		return nil, fmt.Errorf("falha ao buscar documentos na coleção [%s] com %s = %v, erro %w", collection, field, value, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("falha ao ler documentos da coleção [%s], erro %w", collection, err)
	}
	return docs, nil
}

// CreateIndex creates an ascending index on field.
func (c *Mongo) CreateIndex(ctx context.Context, collection, field string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout*time.Second)
	defer cancel()
	model := mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}}
	if _, err := c.db().Collection(collection).Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("falha ao criar índice em [%s.%s], erro %w", collection, field, err)
	}
	return nil
}

// Drop removes the collection.
func (c *Mongo) Drop(ctx context.Context, collection string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout*time.Second)
	defer cancel()
	if err := c.db().Collection(collection).Drop(ctx); err != nil {
		return fmt.Errorf("falha ao remover coleção [%s], erro %w", collection, err)
	}
	return nil
}

// classify maps server errors onto the package sentinels.
func classify(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == documentValidationFailure {
				return fmt.Errorf("%w: %v", validator.ErrValidationFailed, err)
			}
		}
	}
	return err
}
