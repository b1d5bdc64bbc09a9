// Package loader reads electoral CSV files and writes them into the
// validated collections.
package loader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Collect fetches source, a http(s):// or file:// URL, into outDir and
// returns the paths of the CSV files it holds. Zip archives are unpacked.
func Collect(source, outDir string) ([]string, error) {
	buf := new(bytes.Buffer)
	if err := Download(source, buf); err != nil {
		return nil, fmt.Errorf("falha ao fazer buscar arquivo com URL %s, erro %w", source, err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório %s, erro %w", outDir, err)
	}
	if strings.HasSuffix(strings.ToLower(source), ".zip") {
		paths, err := unzip(buf.Bytes(), outDir)
		if err != nil {
			return nil, fmt.Errorf("falha ao descomprimir arquivos baixados, erro %w", err)
		}
		return paths, nil
	}
	p := filepath.Join(outDir, path.Base(source))
	if err := os.WriteFile(p, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("falha ao salvar arquivo %s, erro %w", p, err)
	}
	return []string{p}, nil
}

// Download writes the content of url on w
func Download(url string, w io.Writer) error {
	t := &http.Transport{}
	c := &http.Client{Transport: t}
	switch {
	case strings.HasPrefix(url, "http"):
	case strings.HasPrefix(url, "file://"):
		t.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	default:
		return fmt.Errorf("protocolo não suportado em [%s]", url)
	}
	res, err := c.Get(url)
	if err != nil {
		return fmt.Errorf("problema ao baixar os arquivos da url %s, erro: %w", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("código de resposta esperado era 200, tivemos %d ao baixar %s", res.StatusCode, url)
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		return fmt.Errorf("falha ao ler os bytes da resposta da requisição, erro: %w", err)
	}
	return nil
}

// It unzips buf on unzipDestination and returns the paths of
// unzipped files with suffix .csv
func unzip(buf []byte, unzipDestination string) ([]string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, err
	}
	dest := filepath.Clean(unzipDestination)
	var paths []string
	for _, f := range zipReader.File {
		p := filepath.Join(dest, f.Name)
		rel, err := filepath.Rel(dest, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return nil, fmt.Errorf("caminho inválido no zip: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(p, 0755); err != nil {
				return nil, fmt.Errorf("falha ao criar diretório com nome %s, erro %w", p, err)
			}
			continue
		}
		if err := extract(f, p); err != nil {
			return nil, err
		}
		if strings.HasSuffix(strings.ToLower(p), ".csv") {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func extract(f *zip.File, p string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("falha ao criar diretório com nome %s, erro %w", filepath.Dir(p), err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("falha ao abrir arquivo %s, erro %w", f.Name, err)
	}
	defer rc.Close()
	out, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("falha ao abrir arquivo %s, erro %w", p, err)
	}
	if _, err = io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("falha ao copiar conteúdo para arquivo %s, erro %w", p, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("falha ao fechar arquivo criado em %s, erro %w", p, err)
	}
	return nil
}
