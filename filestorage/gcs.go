package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GSCClient is a client for google cloud storage
type GSCClient struct {
	client *storage.Client
}

// NewGCSClient returns an instance of GCS
func NewGCSClient() (*GSCClient, error) {
	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("falha ao criar client do GCS, erro %w", err)
	}
	return &GSCClient{
		client: client,
	}, nil
}

// Upload copies b to the object fileName inside bucket
func (gcs *GSCClient) Upload(b []byte, bucket, fileName string) (string, error) {
	r := bytes.NewReader(b)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	wc := gcs.client.Bucket(bucket).Object(fileName).NewWriter(ctx)
	if _, err := io.Copy(wc, r); err != nil {
		return "", fmt.Errorf("falha ao copiar conteúdo de arquivo local para o bucket no GCS (%s/%s), erro %w", bucket, fileName, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("falha ao fechar storage.Writer object (%s/%s), erro %w", bucket, fileName, err)
	}
	return fmt.Sprintf("gs://%s/%s", bucket, fileName), nil
}

// FileExists checks the object attributes, any failure counts as absent,
// storage.ErrObjectNotExist included
func (gcs *GSCClient) FileExists(bucket, fileName string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := gcs.client.Bucket(bucket).Object(fileName).Attrs(ctx)
	return err == nil
}
