package benchmark

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls a benchmark run.
type Config struct {
	Collection string `yaml:"colecao"`
	Scales     []int  `yaml:"escalas"`       // documents inserted, then looked up, per round
	Index      bool   `yaml:"indice"`        // index the lookup field before inserting
	Params     int    `yaml:"parametros"`    // fields per document
	StringSize int    `yaml:"tamanho_texto"` // characters per field
	CacheSize  int    `yaml:"cache"`         // lookup values kept per round
	Seed       int64  `yaml:"semente"`
}

// DefaultConfig returns the reference measurements: 10 fields of 2000
// characters, from 100 up to 100000 documents.
func DefaultConfig() Config {
	return Config{
		Collection: "benchmark",
		Scales:     []int{100, 1000, 10000, 100000},
		Params:     10,
		StringSize: 2000,
		CacheSize:  100,
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns
// the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("falha ao ler arquivo de configuração [%s], erro %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("falha ao interpretar arquivo de configuração [%s], erro %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Collection == "" {
		return fmt.Errorf("informe a coleção do benchmark")
	}
	if len(c.Scales) == 0 {
		return fmt.Errorf("informe ao menos uma escala")
	}
	for _, s := range c.Scales {
		if s <= 0 {
			return fmt.Errorf("escala inválida %d", s)
		}
	}
	if c.Params <= 0 || c.StringSize <= 0 || c.CacheSize <= 0 {
		return fmt.Errorf("parametros, tamanho_texto e cache devem ser positivos")
	}
	return nil
}
