package filestorage

import (
	"fmt"
	"os"
	"path/filepath"
)

type localStorage struct {
}

// NewLocalStorage returns a new local storage instance, buckets are directories
func NewLocalStorage() FileStorage {
	return &localStorage{}
}

// Upload writes b into bucket/fileName, creating the directory when needed
func (l *localStorage) Upload(b []byte, bucket, fileName string) (string, error) {
	name := filepath.Join(bucket, fileName)
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return "", fmt.Errorf("falha ao criar diretório %s, erro %w", filepath.Dir(name), err)
	}
	if err := os.WriteFile(name, b, 0644); err != nil {
		return "", fmt.Errorf("falha ao salvar arquivo %s no caminho %s, erro %w", fileName, name, err)
	}
	return name, nil
}

// FileExists checks if file exists. If file exists
// it returns true, else false
func (l *localStorage) FileExists(bucket, fileName string) bool {
	_, err := os.Stat(filepath.Join(bucket, fileName))
	return err == nil
}
