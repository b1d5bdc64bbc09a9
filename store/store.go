// Package store writes documents to the electoral collections, enforcing
// the validator of each collection before the write happens.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrDuplicateKey is returned when a document with the same _id exists.
	ErrDuplicateKey = errors.New("documento com _id duplicado")

	// ErrNotFound is returned when replacing a document whose _id is not stored.
	ErrNotFound = errors.New("documento não encontrado")
)

// Repository is a document store.
type Repository interface {
	// Create creates the collection, attaching its validator when it has one.
	Create(ctx context.Context, collection string) error

	// Insert writes doc, failing with validator.ErrValidationFailed when the
	// collection rule rejects it.
	Insert(ctx context.Context, collection string, doc bson.M) error

	// Replace swaps the stored document having the same _id as doc. The
	// collection rule is checked first, so a rejected replacement leaves the
	// stored document as it was. ErrNotFound is returned when no document has
	// that _id.
	Replace(ctx context.Context, collection string, doc bson.M) error

	// Find returns the documents whose field equals value. Dotted paths
	// reach into embedded documents.
	Find(ctx context.Context, collection, field string, value interface{}) ([]bson.M, error)

	CreateIndex(ctx context.Context, collection, field string) error

	Drop(ctx context.Context, collection string) error
}

var (
	_ Repository = (*Memory)(nil)
	_ Repository = (*Mongo)(nil)
	_ Repository = (*Datastore)(nil)
)
