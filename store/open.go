package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/datastore"
)

// Config selects the Repository to open. MongoDB wins when DBURL is set,
// then Datastore when DatastoreProject is set; otherwise documents stay in
// memory.
type Config struct {
	DBURL            string
	DBName           string
	DatastoreProject string
}

// Open returns the configured Repository and a function releasing it.
func Open(ctx context.Context, cfg Config) (Repository, func(), error) {
	switch {
	case cfg.DBURL != "":
		if cfg.DBName == "" {
			return nil, nil, fmt.Errorf("informe o nome do banco")
		}
		c, err := NewMongo(cfg.DBURL, cfg.DBName)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close(context.Background()) }, nil
	case cfg.DatastoreProject != "":
		client, err := datastore.NewClient(ctx, cfg.DatastoreProject)
		if err != nil {
			return nil, nil, fmt.Errorf("falha ao criar cliente do datastore, erro %w", err)
		}
		return NewDatastore(client), func() { client.Close() }, nil
	}
	return NewMemory(), func() {}, nil
}
