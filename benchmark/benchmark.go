// Package benchmark times inserts and lookups against a document store at
// increasing scales.
package benchmark

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"strconv"
	"time"

	"github.com/candidatos-info/validadores/store"
	"github.com/cheggaaa/pb/v3"
	"github.com/gocarina/gocsv"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	chars       = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	lookupField = "param1"
)

// Result is one round of the benchmark.
type Result struct {
	Scale   int           `csv:"escala"`
	Index   bool          `csv:"indice"`
	Inserts time.Duration `csv:"-"`
	Finds   time.Duration `csv:"-"`
	Found   int           `csv:"encontrados"`

	InsertSeconds float64 `csv:"insercoes_s"`
	FindSeconds   float64 `csv:"buscas_s"`
}

// Runner runs benchmark rounds against a repository.
type Runner struct {
	repo     store.Repository
	cfg      Config
	rnd      *rand.Rand
	progress io.Writer // progress bars go here, nil disables them
}

// New returns a Runner. Progress bars are written to progress unless it is nil.
func New(repo store.Repository, cfg Config, progress io.Writer) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Runner{
		repo:     repo,
		cfg:      cfg,
		rnd:      rand.New(rand.NewSource(seed)),
		progress: progress,
	}, nil
}

// Run executes one round per scale. Each round creates the collection,
// optionally indexes the lookup field, inserts n documents, performs n
// lookups on values it inserted and drops the collection.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(r.cfg.Scales))
	for _, n := range r.cfg.Scales {
		res, err := r.round(ctx, n)
		if err != nil {
			return results, err
		}
		log.Printf("%d inserts: %.3fs\n", n, res.InsertSeconds)
		log.Printf("%d finds: %.3fs\n", n, res.FindSeconds)
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) round(ctx context.Context, n int) (Result, error) {
	col := r.cfg.Collection
	res := Result{Scale: n, Index: r.cfg.Index}
	if err := r.repo.Create(ctx, col); err != nil {
		return res, err
	}
	defer r.repo.Drop(context.Background(), col)
	if r.cfg.Index {
		if err := r.repo.CreateIndex(ctx, col, lookupField); err != nil {
			return res, err
		}
	}

	cache := make([]string, 0, r.cfg.CacheSize)
	bar := r.bar(n, "inserts")
	start := time.Now()
	for i := 0; i < n; i++ {
		doc := r.document()
		if len(cache) < r.cfg.CacheSize {
			cache = append(cache, doc[lookupField].(string))
		}
		if err := r.repo.Insert(ctx, col, doc); err != nil {
			return res, fmt.Errorf("falha na inserção %d de %d, erro %w", i+1, n, err)
		}
		bar.Increment()
	}
	res.Inserts = time.Since(start)
	bar.Finish()

	bar = r.bar(n, "finds")
	start = time.Now()
	for i := 0; i < n; i++ {
		v := cache[r.rnd.Intn(len(cache))]
		docs, err := r.repo.Find(ctx, col, lookupField, v)
		if err != nil {
			return res, fmt.Errorf("falha na busca %d de %d, erro %w", i+1, n, err)
		}
		if len(docs) > 0 {
			res.Found++
		}
		bar.Increment()
	}
	res.Finds = time.Since(start)
	bar.Finish()

	res.InsertSeconds = res.Inserts.Seconds()
	res.FindSeconds = res.Finds.Seconds()
	return res, nil
}

func (r *Runner) bar(n int, label string) *pb.ProgressBar {
	bar := pb.New(n)
	if r.progress == nil {
		return bar
	}
	bar.SetWriter(r.progress)
	bar.Set("prefix", strconv.Itoa(n)+" "+label+" ")
	return bar.Start()
}

func (r *Runner) document() bson.M {
	doc := make(bson.M, r.cfg.Params)
	for i := 1; i <= r.cfg.Params; i++ {
		doc["param"+strconv.Itoa(i)] = r.randString()
	}
	return doc
}

func (r *Runner) randString() string {
	b := make([]byte, r.cfg.StringSize)
	for i := range b {
		b[i] = chars[r.rnd.Intn(len(chars))]
	}
	return string(b)
}

// Report renders results as CSV.
func Report(results []Result) ([]byte, error) {
	b, err := gocsv.MarshalBytes(&results)
	if err != nil {
		return nil, fmt.Errorf("falha ao gerar relatório csv, erro %w", err)
	}
	return b, nil
}
