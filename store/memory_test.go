package store

import (
	"context"
	"errors"
	"testing"

	"github.com/candidatos-info/validadores/validator"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMemoryInsertRejectsInvalidDocument(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	doc := bson.M{"_id": bson.M{"NSerial": 1}, "Estado": "quebrada"}
	err := repo.Insert(ctx, validator.Urna, doc)
	if !errors.Is(err, validator.ErrValidationFailed) {
		t.Errorf("expected ErrValidationFailed, got %v", err)
	}
	if n := repo.Count(validator.Urna); n != 0 {
		t.Errorf("expected no document stored, got %d", n)
	}
}

func TestMemoryInsertAndFind(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	docs := []bson.M{
		{"_id": bson.M{"Sigla": "SP"}, "Nome": "São Paulo"},
		{"_id": bson.M{"Sigla": "RR"}, "Nome": "Roraima"},
	}
	for _, doc := range docs {
		if err := repo.Insert(ctx, validator.Estado, doc); err != nil {
			t.Fatalf("expected err nil when inserting %v, got %v", doc, err)
		}
	}
	found, err := repo.Find(ctx, validator.Estado, "_id.Sigla", "RR")
	if err != nil {
		t.Errorf("expected err nil, got %v", err)
	}
	if len(found) != 1 || found[0]["Nome"] != "Roraima" {
		t.Errorf("expected to find Roraima, got %v", found)
	}
}

func TestMemoryDuplicateKey(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	doc := bson.M{"_id": bson.M{"Sigla": "PSB"}, "Nome": "Partido Socialista Brasileiro"}
	if err := repo.Insert(ctx, validator.Partido, doc); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	err := repo.Insert(ctx, validator.Partido, bson.M{"_id": bson.M{"Sigla": "PSB"}, "Nome": "outro"})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestMemoryGeneratesID(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	doc := bson.M{"param1": "a"}
	for i := 0; i < 2; i++ {
		if err := repo.Insert(ctx, "benchmark", doc); err != nil {
			t.Fatalf("expected err nil, got %v", err)
		}
	}
	if _, ok := doc["_id"]; ok {
		t.Errorf("expected caller document to stay untouched")
	}
	if n := repo.Count("benchmark"); n != 2 {
		t.Errorf("expected 2 documents, got %d", n)
	}
}

func TestMemoryIndex(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	if err := repo.Insert(ctx, "benchmark", bson.M{"param1": "a", "n": 1}); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	if err := repo.CreateIndex(ctx, "benchmark", "param1"); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	if err := repo.Insert(ctx, "benchmark", bson.M{"param1": "a", "n": 2}); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	found, _ := repo.Find(ctx, "benchmark", "param1", "a")
	if len(found) != 2 {
		t.Errorf("expected index to hold documents inserted before and after its creation, got %d", len(found))
	}
	found, _ = repo.Find(ctx, "benchmark", "n", 2.0)
	if len(found) != 1 {
		t.Errorf("expected numeric match regardless of type, got %d", len(found))
	}
}

func TestMemoryDrop(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	repo.Insert(ctx, "benchmark", bson.M{"param1": "a"})
	if err := repo.Drop(ctx, "benchmark"); err != nil {
		t.Errorf("expected err nil, got %v", err)
	}
	if n := repo.Count("benchmark"); n != 0 {
		t.Errorf("expected empty collection after drop, got %d", n)
	}
	found, err := repo.Find(ctx, "benchmark", "param1", "a")
	if err != nil || len(found) != 0 {
		t.Errorf("expected nothing found after drop, got %v, %v", found, err)
	}
}

func TestMemoryDuplicateKeyAcrossIDTypes(t *testing.T) {
	testCases := []struct {
		name   string
		first  interface{}
		second interface{}
	}{
		{"bson.M and map", bson.M{"Sigla": "SP"}, map[string]interface{}{"Sigla": "SP"}},
		{"bson.M and bson.D", bson.M{"Sigla": "SP"}, bson.D{{Key: "Sigla", Value: "SP"}}},
	}
	for _, tc := range testCases {
		repo := NewMemory()
		ctx := context.Background()
		if err := repo.Insert(ctx, validator.Estado, bson.M{"_id": tc.first, "Nome": "São Paulo"}); err != nil {
			t.Fatalf("%s: expected err nil, got %v", tc.name, err)
		}
		err := repo.Insert(ctx, validator.Estado, bson.M{"_id": tc.second, "Nome": "São Paulo"})
		if !errors.Is(err, ErrDuplicateKey) {
			t.Errorf("%s: expected ErrDuplicateKey, got %v", tc.name, err)
		}
		if n := repo.Count(validator.Estado); n != 1 {
			t.Errorf("%s: expected 1 document, got %d", tc.name, n)
		}
	}
}

func TestMemoryDuplicateKeyAcrossNumberTypes(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	if err := repo.Insert(ctx, validator.Zona, bson.M{"_id": bson.M{"NroZona": int16(33)}, "NroDeUrnasReservas": 1}); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	err := repo.Insert(ctx, validator.Zona, bson.M{"_id": bson.M{"NroZona": uint32(33)}, "NroDeUrnasReservas": 2})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestMemoryKeepsOwnCopies(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	id := bson.M{"Sigla": "SP"}
	if err := repo.Insert(ctx, validator.Estado, bson.M{"_id": id, "Nome": "São Paulo"}); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	id["Sigla"] = "RJ"
	found, _ := repo.Find(ctx, validator.Estado, "_id.Sigla", "SP")
	if len(found) != 1 {
		t.Fatalf("expected stored _id unaffected by caller, got %v", found)
	}
	found[0]["Nome"] = "alterado"
	found[0]["_id"].(bson.M)["Sigla"] = "MG"
	found, _ = repo.Find(ctx, validator.Estado, "_id.Sigla", "SP")
	if len(found) != 1 || found[0]["Nome"] != "São Paulo" {
		t.Errorf("expected stored document unaffected by changes to a found one, got %v", found)
	}
}

func TestMemoryReplace(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	if err := repo.Insert(ctx, validator.Urna, bson.M{"_id": bson.M{"NSerial": 1}, "Estado": "funcional"}); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	if err := repo.CreateIndex(ctx, validator.Urna, "Estado"); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	err := repo.Replace(ctx, validator.Urna, bson.M{"_id": bson.M{"NSerial": 1}, "Estado": "quebrada"})
	if !errors.Is(err, validator.ErrValidationFailed) {
		t.Errorf("expected ErrValidationFailed, got %v", err)
	}
	found, _ := repo.Find(ctx, validator.Urna, "Estado", "funcional")
	if len(found) != 1 {
		t.Errorf("expected stored document unchanged after rejected replace, got %v", found)
	}
	if err := repo.Replace(ctx, validator.Urna, bson.M{"_id": bson.M{"NSerial": 1}, "Estado": "manutencao"}); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	if found, _ := repo.Find(ctx, validator.Urna, "Estado", "funcional"); len(found) != 0 {
		t.Errorf("expected old value gone from index, got %v", found)
	}
	if found, _ := repo.Find(ctx, validator.Urna, "Estado", "manutencao"); len(found) != 1 {
		t.Errorf("expected replaced document found through index, got %v", found)
	}
	if n := repo.Count(validator.Urna); n != 1 {
		t.Errorf("expected 1 document, got %d", n)
	}
}

func TestMemoryReplaceMissing(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	testCases := []bson.M{
		{"_id": bson.M{"NSerial": 7}, "Estado": "funcional"},
		{"param1": "sem id"},
	}
	for _, doc := range testCases {
		collection := validator.Urna
		if _, ok := doc["_id"]; !ok {
			collection = "benchmark"
		}
		if err := repo.Replace(ctx, collection, doc); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for %v, got %v", doc, err)
		}
	}
}
