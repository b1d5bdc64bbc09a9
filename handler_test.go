package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/candidatos-info/validadores/loader"
	"github.com/candidatos-info/validadores/status"
	"github.com/candidatos-info/validadores/store"
	"github.com/candidatos-info/validadores/validator"
	"github.com/labstack/echo"
)

func serve(t *testing.T, h *handler, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.register(e)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestListCollections(t *testing.T) {
	rec := serve(t, newHandler(store.NewMemory(), t.TempDir()), http.MethodGet, "/colecoes", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var out []collectionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("expected err nil when decoding response, got %v", err)
	}
	if len(out) != 13 {
		t.Errorf("expected 13 collections, got %d", len(out))
	}
	if out[0].Name != validator.Estado || out[0].Identity[0] != "Sigla" {
		t.Errorf("expected LE01ESTADO identified by Sigla first, got %+v", out[0])
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		body  string
		valid bool
	}{
		{`{"_id": {"Sigla": "SP"}, "Nome": "São Paulo"}`, true},
		{`{"_id": {"Sigla": "SP"}}`, false},
		{`{"Sigla": "SP", "Nome": "São Paulo"}`, false},
	}
	h := newHandler(store.NewMemory(), t.TempDir())
	for _, tc := range testCases {
		rec := serve(t, h, http.MethodPost, "/colecoes/LE01ESTADO/validacao", tc.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var out validationResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("expected err nil when decoding response, got %v", err)
		}
		if out.Valid != tc.valid {
			t.Errorf("%s: expected valido %v, got %v", tc.body, tc.valid, out.Valid)
		}
		if !tc.valid && out.Err == "" {
			t.Errorf("%s: expected error message", tc.body)
		}
	}
}

func TestValidateUnknownCollection(t *testing.T) {
	rec := serve(t, newHandler(store.NewMemory(), t.TempDir()), http.MethodPost, "/colecoes/LE99NADA/validacao", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestValidateInvalidBody(t *testing.T) {
	rec := serve(t, newHandler(store.NewMemory(), t.TempDir()), http.MethodPost, "/colecoes/LE01ESTADO/validacao", "INVALID REQUEST BODY")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestInsert(t *testing.T) {
	repo := store.NewMemory()
	h := newHandler(repo, t.TempDir())
	testCases := []struct {
		body     string
		expected int
	}{
		{`{"_id": {"NroZona": 33}, "NroDeUrnasReservas": 12}`, http.StatusCreated},
		{`{"_id": {"NroZona": 33}, "NroDeUrnasReservas": 3}`, http.StatusConflict},
		{`{"_id": {"NroZona": 34}}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range testCases {
		rec := serve(t, h, http.MethodPost, "/colecoes/LE03ZONA/documentos", tc.body)
		if rec.Code != tc.expected {
			t.Errorf("%s: expected status %d, got %d", tc.body, tc.expected, rec.Code)
		}
	}
	if n := repo.Count(validator.Zona); n != 1 {
		t.Errorf("expected 1 stored zona, got %d", n)
	}
}

func TestReplace(t *testing.T) {
	repo := store.NewMemory()
	h := newHandler(repo, t.TempDir())
	if rec := serve(t, h, http.MethodPost, "/colecoes/LE05URNA/documentos", `{"_id": {"NSerial": 7}, "Estado": "funcional"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	testCases := []struct {
		body     string
		expected int
	}{
		{`{"_id": {"NSerial": 7}, "Estado": "quebrada"}`, http.StatusUnprocessableEntity},
		{`{"_id": {"NSerial": 8}, "Estado": "funcional"}`, http.StatusNotFound},
		{`{"_id": {"NSerial": 7}, "Estado": "manutencao"}`, http.StatusOK},
	}
	for _, tc := range testCases {
		rec := serve(t, h, http.MethodPut, "/colecoes/LE05URNA/documentos", tc.body)
		if rec.Code != tc.expected {
			t.Errorf("%s: expected status %d, got %d", tc.body, tc.expected, rec.Code)
		}
	}
	docs, err := repo.Find(context.Background(), validator.Urna, "Estado", "manutencao")
	if err != nil || len(docs) != 1 {
		t.Errorf("expected the replaced urna, got %v (err %v)", docs, err)
	}
	if n := repo.Count(validator.Urna); n != 1 {
		t.Errorf("expected 1 stored urna, got %d", n)
	}
}

func waitIdle(t *testing.T, h *handler) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		s := h.status
		h.mu.Unlock()
		if s == status.Idle {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("load did not finish")
}

func TestPostLoad(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "LE01ESTADO.csv")
	if err := os.WriteFile(src, []byte("Sigla;Nome\nSP;Sao Paulo\nRJ;Rio de Janeiro\n"), 0644); err != nil {
		t.Fatalf("expected err nil, got %v", err)
	}
	repo := store.NewMemory()
	h := newHandler(repo, filepath.Join(dir, "out"))
	rec := serve(t, h, http.MethodPost, "/carga", `{"url": "file://`+src+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	waitIdle(t, h)
	rec = serve(t, h, http.MethodGet, "/carga", "")
	var out struct {
		Status       status.Status `json:"status"`
		ErrorMessage string        `json:"errorMessage"`
		Result       loader.Result `json:"resultado"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("expected err nil when decoding response, got %v", err)
	}
	if out.ErrorMessage != "" {
		t.Errorf("expected no error, got %s", out.ErrorMessage)
	}
	if out.Result.Inserted != 2 {
		t.Errorf("expected 2 inserted, got %+v", out.Result)
	}
	if n := repo.Count(validator.Estado); n != 2 {
		t.Errorf("expected 2 stored estados, got %d", n)
	}
}

func TestPostLoadFailure(t *testing.T) {
	h := newHandler(store.NewMemory(), t.TempDir())
	rec := serve(t, h, http.MethodPost, "/carga", `{"url": "file:///nao/existe/LE01ESTADO.csv"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	waitIdle(t, h)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err == "" {
		t.Errorf("expected error message after failed collect")
	}
}

func TestPostLoadWhileBusy(t *testing.T) {
	h := newHandler(store.NewMemory(), t.TempDir())
	h.status = status.Processing
	rec := serve(t, h, http.MethodPost, "/carga", `{"url": "file:///tmp/LE01ESTADO.csv"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestPostLoadInvalidRequest(t *testing.T) {
	testCases := []string{
		"INVALID REQUEST BODY",
		`{}`,
	}
	for _, body := range testCases {
		rec := serve(t, newHandler(store.NewMemory(), t.TempDir()), http.MethodPost, "/carga", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", body, http.StatusBadRequest, rec.Code)
		}
	}
}
