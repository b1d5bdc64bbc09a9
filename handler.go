package main

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/candidatos-info/validadores/loader"
	"github.com/candidatos-info/validadores/metrics"
	"github.com/candidatos-info/validadores/status"
	"github.com/candidatos-info/validadores/store"
	"github.com/candidatos-info/validadores/validator"
	"github.com/labstack/echo"
	"go.mongodb.org/mongo-driver/bson"
)

// handler serves validation, insertion and background loads over HTTP.
type handler struct {
	repo    store.Repository
	baseDir string // where load jobs place collected files

	mu     sync.Mutex
	status status.Status // load status
	err    string        // last load error message
	last   loader.Result // counters of the last load
}

// used on postLoad
type loadRequest struct {
	Source     string `json:"url"`
	Collection string `json:"colecao"`
}

type collectionResponse struct {
	Name     string   `json:"nome"`
	Entity   string   `json:"entidade"`
	Identity []string `json:"identidade"`
	Rule     string   `json:"regra"`
}

type validationResponse struct {
	Collection string `json:"colecao"`
	Valid      bool   `json:"valido"`
	Err        string `json:"erro,omitempty"`
}

func newHandler(repo store.Repository, baseDir string) *handler {
	return &handler{
		repo:    repo,
		baseDir: baseDir,
		status:  status.Idle,
	}
}

func (h *handler) register(e *echo.Echo) {
	e.GET("/colecoes", h.listCollections)
	e.POST("/colecoes/:colecao/validacao", h.validate)
	e.POST("/colecoes/:colecao/documentos", h.insert)
	e.PUT("/colecoes/:colecao/documentos", h.replace)
	e.GET("/carga", h.getLoad)
	e.POST("/carga", h.postLoad)
}

func (h *handler) listCollections(c echo.Context) error {
	var out []collectionResponse
	for _, col := range validator.Collections() {
		out = append(out, collectionResponse{
			Name:     col.Name,
			Entity:   col.Entity,
			Identity: col.Identity,
			Rule:     col.Rule.String(),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// document reads the collection path parameter and the Extended JSON body.
func document(c echo.Context) (*validator.Collection, bson.M, error) {
	col, ok := validator.Lookup(c.Param("colecao"))
	if !ok {
		return nil, nil, echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("coleção [%s] desconhecida", c.Param("colecao")))
	}
	body, err := ioutil.ReadAll(c.Request().Body)
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("falha ao ler corpo da requisição: %q", err))
	}
	var doc bson.M
	if err := bson.UnmarshalExtJSON(body, false, &doc); err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("o corpo da requisicão enviado é inválido: %q", err))
	}
	return col, doc, nil
}

func (h *handler) validate(c echo.Context) error {
	col, doc, err := document(c)
	if err != nil {
		return err
	}
	res := validationResponse{Collection: col.Name, Valid: true}
	if err := col.Check(doc); err != nil {
		res.Valid = false
		res.Err = err.Error()
	}
	metrics.ObserveValidation(col.Name, res.Valid)
	return c.JSON(http.StatusOK, res)
}

func (h *handler) insert(c echo.Context) error {
	return h.write(c, http.StatusCreated, h.repo.Insert)
}

func (h *handler) replace(c echo.Context) error {
	return h.write(c, http.StatusOK, h.repo.Replace)
}

// write runs op (Insert or Replace) on the request document and maps its
// error to a status code.
func (h *handler) write(c echo.Context, success int, op func(context.Context, string, bson.M) error) error {
	col, doc, err := document(c)
	if err != nil {
		return err
	}
	start := time.Now()
	err = op(c.Request().Context(), col.Name, doc)
	res := validationResponse{Collection: col.Name, Valid: true}
	code, result := success, metrics.ResultValid
	switch {
	case err == nil:
	case errors.Is(err, validator.ErrValidationFailed):
		res.Valid = false
		code, result = http.StatusUnprocessableEntity, metrics.ResultInvalid
	case errors.Is(err, store.ErrDuplicateKey):
		code, result = http.StatusConflict, metrics.ResultDuplicate
	case errors.Is(err, store.ErrNotFound):
		code, result = http.StatusNotFound, metrics.ResultNotFound
	default:
		code, result = http.StatusInternalServerError, metrics.ResultError
	}
	metrics.ObserveInsert(col.Name, result, time.Since(start))
	if result != metrics.ResultError {
		metrics.ObserveValidation(col.Name, res.Valid)
	}
	if err != nil {
		res.Err = err.Error()
	}
	return c.JSON(code, res)
}

func (h *handler) getLoad(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":       h.status,
		"statusText":   h.status.String(),
		"errorMessage": h.err,
		"resultado":    h.last,
	})
}

func (h *handler) postLoad(c echo.Context) error {
	in := loadRequest{}
	if err := c.Bind(&in); err != nil {
		return c.String(http.StatusBadRequest, fmt.Sprintf("o corpo da requisicão enviado é inválido: %q", err))
	}
	if in.Source == "" {
		return c.String(http.StatusBadRequest, "informe a url dos arquivos")
	}
	if in.Collection != "" {
		if _, ok := validator.Lookup(in.Collection); !ok {
			return c.String(http.StatusNotFound, fmt.Sprintf("coleção [%s] desconhecida", in.Collection))
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status != status.Idle {
		return c.String(http.StatusServiceUnavailable, "sistema está processando dados")
	}
	h.setStatus(status.Collecting)
	h.err = ""
	go h.load(in)
	return c.String(http.StatusOK, "Requisição em processamento")
}

func (h *handler) load(in loadRequest) {
	defer func() {
		h.mu.Lock()
		h.setStatus(status.Idle)
		h.mu.Unlock()
	}()
	paths, err := loader.Collect(in.Source, h.baseDir)
	if err != nil {
		h.handleError(fmt.Sprintf("ocorreu uma falha ao coletar arquivos de %s, erro: %q", in.Source, err))
		return
	}
	h.mu.Lock()
	h.setStatus(status.Processing)
	h.mu.Unlock()
	res, err := loader.LoadAll(context.Background(), h.repo, in.Collection, paths)
	label := in.Collection
	if label == "" {
		label = "inferida"
	}
	metrics.AddLoad(label, res.Inserted, res.Rejected)
	h.mu.Lock()
	h.last = res
	h.mu.Unlock()
	if err != nil {
		h.handleError(err.Error())
	}
}

// setStatus must be called with mu held.
func (h *handler) setStatus(s status.Status) {
	h.status = s
	metrics.SetLoadStatus(int(s))
}

func (h *handler) handleError(message string) {
	log.Println(message)
	h.mu.Lock()
	h.err = message
	h.mu.Unlock()
}
