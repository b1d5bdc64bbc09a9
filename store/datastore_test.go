package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"cloud.google.com/go/datastore"
	"github.com/candidatos-info/validadores/validator"
	"go.mongodb.org/mongo-driver/bson"
)

func TestDatastoreKeyUsesIdentity(t *testing.T) {
	ds := NewDatastore(nil)
	doc := bson.M{"_id": bson.M{"Nome": "Campinas", "SiglaEstado": "SP"}, "Populacao": 1}
	k := ds.key(validator.Cidade, doc)
	if k.Kind != validator.Cidade {
		t.Errorf("expected kind %s, got %s", validator.Cidade, k.Kind)
	}
	if k.Name != "Campinas_SP" {
		t.Errorf("expected key name Campinas_SP, got %s", k.Name)
	}
}

func TestDatastoreKeySeparatorIsUnambiguous(t *testing.T) {
	ds := NewDatastore(nil)
	a := ds.key(validator.Cidade, bson.M{"_id": bson.M{"Nome": "a_b", "SiglaEstado": "c"}})
	b := ds.key(validator.Cidade, bson.M{"_id": bson.M{"Nome": "a", "SiglaEstado": "b_c"}})
	if a.Name == b.Name {
		t.Errorf("expected distinct key names, got %s for both", a.Name)
	}
	if a.Name != `a\_b_c` {
		t.Errorf("expected escaped key name a\\_b_c, got %s", a.Name)
	}
}

func TestPropertiesRoundTripNestedID(t *testing.T) {
	doc := bson.M{"_id": bson.M{"Sigla": "SP"}, "Nome": "São Paulo", "Populacao": 10}
	props, err := toProperties(doc)
	if err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	back := fromProperties(props)
	if !validator.Validate(validator.Estado, back) {
		t.Errorf("expected converted document %v to stay valid", back)
	}
	if back["Populacao"] != int64(10) {
		t.Errorf("expected ints stored as int64, got %T", back["Populacao"])
	}
}

// Runs against the emulator: gcloud beta emulators datastore start
func TestDatastoreInsert(t *testing.T) {
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("DATASTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := datastore.NewClient(ctx, "validadores-test")
	if err != nil {
		t.Fatalf("expected err nil when creating datastore client, got %v", err)
	}
	defer client.Close()
	ds := NewDatastore(client)
	defer ds.Drop(ctx, validator.Partido)
	doc := bson.M{"_id": bson.M{"Sigla": "PSB"}, "Nome": "Partido Socialista Brasileiro"}
	if err := ds.Insert(ctx, validator.Partido, doc); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	if err := ds.Insert(ctx, validator.Partido, doc); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	found, err := ds.Find(ctx, validator.Partido, "Nome", "Partido Socialista Brasileiro")
	if err != nil || len(found) != 1 {
		t.Errorf("expected one entity, got %v, %v", found, err)
	}
	err = ds.Replace(ctx, validator.Partido, bson.M{"_id": bson.M{"Sigla": "PSB"}})
	if !errors.Is(err, validator.ErrValidationFailed) {
		t.Errorf("expected ErrValidationFailed, got %v", err)
	}
	found, _ = ds.Find(ctx, validator.Partido, "_id.Sigla", "PSB")
	if len(found) != 1 || found[0]["Nome"] != "Partido Socialista Brasileiro" {
		t.Errorf("expected stored entity unchanged after rejected replace, got %v", found)
	}
	if err := ds.Replace(ctx, validator.Partido, bson.M{"_id": bson.M{"Sigla": "PSB"}, "Nome": "PSB"}); err != nil {
		t.Errorf("expected err nil, got %v", err)
	}
	err = ds.Replace(ctx, validator.Partido, bson.M{"_id": bson.M{"Sigla": "XYZ"}, "Nome": "X"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
