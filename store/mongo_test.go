package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/candidatos-info/validadores/validator"
	"go.mongodb.org/mongo-driver/bson"
)

// These tests need a running server, e.g. MONGO_URL=mongodb://localhost:27017
func newTestMongo(t *testing.T) *Mongo {
	dbURL := os.Getenv("MONGO_URL")
	if dbURL == "" {
		t.Skip("MONGO_URL not set")
	}
	dbName := fmt.Sprintf("validadores_test_%d", time.Now().UnixNano())
	c, err := NewMongo(dbURL, dbName)
	if err != nil {
		t.Fatalf("expected err nil when connecting to mongo, got %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		c.db().Drop(ctx)
		c.Close(ctx)
	})
	return c
}

func TestMongoServerValidator(t *testing.T) {
	c := newTestMongo(t)
	ctx := context.Background()
	if err := c.ApplyValidators(ctx); err != nil {
		t.Fatalf("expected err nil when applying validators, got %v", err)
	}
	// bypass the local check to exercise the server side rule
	_, err := c.db().Collection(validator.Urna).InsertOne(ctx, bson.M{"_id": bson.M{"NSerial": 1}, "Estado": "quebrada"})
	if !errors.Is(classify(err), validator.ErrValidationFailed) {
		t.Errorf("expected server to reject document with ErrValidationFailed, got %v", err)
	}
	if err := c.Insert(ctx, validator.Urna, bson.M{"_id": bson.M{"NSerial": 1}, "Estado": "funcional"}); err != nil {
		t.Errorf("expected err nil when inserting valid document, got %v", err)
	}
	err = c.Insert(ctx, validator.Urna, bson.M{"_id": bson.M{"NSerial": 1}, "Estado": "manutencao"})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	// applying twice goes through collMod
	if err := c.ApplyValidators(ctx); err != nil {
		t.Errorf("expected err nil when applying validators again, got %v", err)
	}
}

func TestMongoFindWithIndex(t *testing.T) {
	c := newTestMongo(t)
	ctx := context.Background()
	if err := c.Create(ctx, "benchmark"); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	if err := c.CreateIndex(ctx, "benchmark", "param1"); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	if err := c.Insert(ctx, "benchmark", bson.M{"param1": "abc"}); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	docs, err := c.Find(ctx, "benchmark", "param1", "abc")
	if err != nil || len(docs) != 1 {
		t.Errorf("expected one document, got %v, %v", docs, err)
	}
	if err := c.Drop(ctx, "benchmark"); err != nil {
		t.Errorf("expected err nil, got %v", err)
	}
}

func TestMongoReplace(t *testing.T) {
	c := newTestMongo(t)
	ctx := context.Background()
	if err := c.ApplyValidators(ctx); err != nil {
		t.Fatalf("expected err nil when applying validators, got %v", err)
	}
	id := bson.M{"NSerial": 1}
	if err := c.Insert(ctx, validator.Urna, bson.M{"_id": id, "Estado": "funcional"}); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	err := c.Replace(ctx, validator.Urna, bson.M{"_id": id, "Estado": "quebrada"})
	if !errors.Is(err, validator.ErrValidationFailed) {
		t.Errorf("expected ErrValidationFailed, got %v", err)
	}
	// bypass the local check to exercise the server side rule on updates
	_, err = c.db().Collection(validator.Urna).ReplaceOne(ctx, bson.M{"_id": id}, bson.M{"_id": id, "Estado": "quebrada"})
	if !errors.Is(classify(err), validator.ErrValidationFailed) {
		t.Errorf("expected server to reject replacement with ErrValidationFailed, got %v", err)
	}
	found, _ := c.Find(ctx, validator.Urna, "Estado", "funcional")
	if len(found) != 1 {
		t.Errorf("expected stored document unchanged, got %v", found)
	}
	if err := c.Replace(ctx, validator.Urna, bson.M{"_id": id, "Estado": "manutencao"}); err != nil {
		t.Errorf("expected err nil, got %v", err)
	}
	err = c.Replace(ctx, validator.Urna, bson.M{"_id": bson.M{"NSerial": 2}, "Estado": "funcional"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
