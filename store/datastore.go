package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/datastore"
	"github.com/candidatos-info/validadores/validator"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Datastore keeps each collection as a Cloud Datastore kind. The key name
// is the composite identifier, its values joined by "_".
type Datastore struct {
	client *datastore.Client
}

// NewDatastore returns a Repository backed by client.
func NewDatastore(client *datastore.Client) *Datastore {
	return &Datastore{
		client: client,
	}
}

// Create is a no-op: kinds exist as soon as an entity is stored.
func (ds *Datastore) Create(ctx context.Context, collection string) error {
	return nil
}

// Insert fails with ErrDuplicateKey when an entity with the same key exists.
func (ds *Datastore) Insert(ctx context.Context, collection string, doc bson.M) error {
	if err := validator.Check(collection, doc); err != nil {
		return err
	}
	k := ds.key(collection, doc)
	props, err := toProperties(doc)
	if err != nil {
		return fmt.Errorf("falha ao converter documento da coleção [%s], erro %w", collection, err)
	}
	_, err = ds.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing datastore.PropertyList
		if err := tx.Get(k, &existing); err == nil {
			return ErrDuplicateKey
		} else if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err := tx.Put(k, &props)
		return err
	})
	if err != nil {
		return fmt.Errorf("falha ao salvar documento na coleção [%s] com chave [%s], erro %w", collection, k.Name, err)
	}
	return nil
}

// Find runs an equality query. Dotted paths reach properties of embedded
// entities, e.g. "_id.Sigla".
func (ds *Datastore) Find(ctx context.Context, collection, field string, value interface{}) ([]bson.M, error) {
	query := datastore.NewQuery(collection).Filter(field+" =", toValue(value))
	var entities []datastore.PropertyList
	if _, err := ds.client.GetAll(ctx, query, &entities); err != nil {
		return nil, fmt.Errorf("falha ao buscar na coleção [%s] usando %s = %v, erro %w", collection, field, value, err)
	}
	docs := make([]bson.M, 0, len(entities))
	for _, e := range entities {
		docs = append(docs, fromProperties(e))
	}
	return docs, nil
}

// CreateIndex is a no-op: Datastore indexes every property by default.
func (ds *Datastore) CreateIndex(ctx context.Context, collection, field string) error {
	return nil
}

// Replace overwrites an existing entity inside a transaction.
func (ds *Datastore) Replace(ctx context.Context, collection string, doc bson.M) error {
	if err := validator.Check(collection, doc); err != nil {
		return err
	}
	if _, ok := doc[validator.IDField]; !ok {
		return fmt.Errorf("falha ao substituir documento sem _id na coleção [%s], erro %w", collection, ErrNotFound)
	}
	k := ds.key(collection, doc)
	props, err := toProperties(doc)
	if err != nil {
		return fmt.Errorf("falha ao converter documento da coleção [%s], erro %w", collection, err)
	}
	_, err = ds.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing datastore.PropertyList
		if err := tx.Get(k, &existing); errors.Is(err, datastore.ErrNoSuchEntity) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		_, err := tx.Put(k, &props)
		return err
	})
	if err != nil {
		return fmt.Errorf("falha ao substituir documento na coleção [%s] com chave [%s], erro %w", collection, k.Name, err)
	}
	return nil
}

// Drop deletes every entity of the kind.
func (ds *Datastore) Drop(ctx context.Context, collection string) error {
	keys, err := ds.client.GetAll(ctx, datastore.NewQuery(collection).KeysOnly(), nil)
	if err != nil {
		return fmt.Errorf("falha ao listar chaves da coleção [%s], erro %w", collection, err)
	}
	const batch = 500 // datastore limit per call
	for len(keys) > 0 {
		n := len(keys)
		if n > batch {
			n = batch
		}
		if err := ds.client.DeleteMulti(ctx, keys[:n]); err != nil {
			return fmt.Errorf("falha ao remover entidades da coleção [%s], erro %w", collection, err)
		}
		keys = keys[n:]
	}
	return nil
}

// keyEscaper keeps the "_" separator unambiguous inside identity values.
var keyEscaper = strings.NewReplacer(`\`, `\\`, "_", `\_`)

func (ds *Datastore) key(collection string, doc bson.M) *datastore.Key {
	if c, ok := validator.Lookup(collection); ok {
		parts := make([]string, 0, len(c.Identity))
		for _, f := range c.Identity {
			v, _ := validator.Field(doc, validator.IDField+"."+f)
			parts = append(parts, keyEscaper.Replace(fmt.Sprint(v)))
		}
		return datastore.NameKey(collection, strings.Join(parts, "_"), nil)
	}
	if id, ok := doc[validator.IDField]; ok {
		return datastore.NameKey(collection, fmt.Sprint(id), nil)
	}
	return datastore.NameKey(collection, primitive.NewObjectID().Hex(), nil)
}

func toProperties(doc map[string]interface{}) (datastore.PropertyList, error) {
	names := make([]string, 0, len(doc))
	for k := range doc {
		names = append(names, k)
	}
	sort.Strings(names)
	props := make(datastore.PropertyList, 0, len(doc))
	for _, name := range names {
		v := doc[name]
		switch inner := v.(type) {
		case bson.M:
			sub, err := toProperties(inner)
			if err != nil {
				return nil, err
			}
			props = append(props, datastore.Property{Name: name, Value: &datastore.Entity{Properties: sub}})
			continue
		case map[string]interface{}:
			sub, err := toProperties(inner)
			if err != nil {
				return nil, err
			}
			props = append(props, datastore.Property{Name: name, Value: &datastore.Entity{Properties: sub}})
			continue
		}
		props = append(props, datastore.Property{Name: name, Value: toValue(v), NoIndex: isLongString(v)})
	}
	return props, nil
}

// toValue converts to the value types datastore accepts.
func toValue(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float32:
		return float64(n)
	case primitive.ObjectID:
		return n.Hex()
	}
	return v
}

// strings over 1500 bytes cannot be indexed
func isLongString(v interface{}) bool {
	s, ok := v.(string)
	return ok && len(s) > 1500
}

func fromProperties(props []datastore.Property) bson.M {
	doc := make(bson.M, len(props))
	for _, p := range props {
		if e, ok := p.Value.(*datastore.Entity); ok {
			doc[p.Name] = fromProperties(e.Properties)
			continue
		}
		doc[p.Name] = p.Value
	}
	return doc
}
