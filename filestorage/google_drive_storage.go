package filestorage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

type googleDrive struct {
	service *drive.Service
}

// NewGoogleDriveStorage returns a new client to execute file operations
// with Google Drive.
func NewGoogleDriveStorage(credentialsFile, oauthToken string) (FileStorage, error) {
	if credentialsFile == "" || oauthToken == "" {
		return nil, fmt.Errorf("informe o arquivo de credenciais e o token oauth do Google Drive")
	}
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("falha ao ler arquivo de crendenciais [%s], erro %w", credentialsFile, err)
	}
	config, err := google.ConfigFromJSON(b, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("falha ao processar configuraçōes usando o arquivo [%s], erro %w", credentialsFile, err)
	}
	f, err := os.Open(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir arquivo de token oauth [%s], erro %w", oauthToken, err)
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err = json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("falha ao fazer bind do token OAuth, erro %w", err)
	}
	client := config.Client(context.Background(), tok)
	service, err := drive.New(client)
	if err != nil {
		return nil, fmt.Errorf("não foi possível criar Google Drive service, erro %w", err)
	}
	return &googleDrive{
		service: service,
	}, nil
}

// the bucket argument for Google Drive is the folder ID.
func (gd *googleDrive) Upload(b []byte, bucket, fileName string) (string, error) {
	f := &drive.File{
		MimeType: "text/csv",
		Name:     fileName,
		Parents:  []string{bucket},
	}
	created, err := gd.service.Files.Create(f).Media(bytes.NewReader(b)).Do()
	if err != nil {
		return "", fmt.Errorf("falha ao enviar arquivo [%s] para a pasta [%s] do Google Drive, erro %w", fileName, bucket, err)
	}
	return created.Id, nil
}

func (gd *googleDrive) FileExists(bucket, fileName string) bool {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", fileName, bucket)
	list, err := gd.service.Files.List().Q(q).Fields("files(id)").Do()
	return err == nil && len(list.Files) > 0
}
