package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/afg1/bqeval/ai"
	"github.com/afg1/bqeval/core"
	"github.com/afg1/bqeval/dataset"
	"github.com/afg1/bqeval/noise"
	"github.com/afg1/bqeval/vectordb"
	"github.com/afg1/bqeval/vectordb/qdrant"
)

// QdrantConfig holds the connection to the vector-search service.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls"`
}

// CollectionConfig describes the collection to create and query.
type CollectionConfig struct {
	Name          string `yaml:"name"`
	Dimension     int    `yaml:"dimension"`
	Distance      string `yaml:"distance"`
	OnDisk        bool   `yaml:"on_disk"`
	AlwaysRAM     bool   `yaml:"always_ram"`
	Shards        uint32 `yaml:"shards"`
	SegmentNumber uint64 `yaml:"segment_number"`
	Recreate      bool   `yaml:"recreate"`
}

// DatasetConfig maps dataset rows onto records.
type DatasetConfig struct {
	Path          string   `yaml:"path"`
	IDField       string   `yaml:"id_field,omitempty"`
	TextField     string   `yaml:"text_field"`
	VectorField   string   `yaml:"vector_field"`
	PayloadFields []string `yaml:"payload_fields,omitempty"`
	Limit         int      `yaml:"limit,omitempty"`
}

// UploadConfig controls how the dataset is loaded.
type UploadConfig struct {
	BatchSize         int           `yaml:"batch_size"`
	Workers           int           `yaml:"workers"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	IndexingThreshold uint64        `yaml:"indexing_threshold"`
	WaitReady         bool          `yaml:"wait_ready"`
	PollInterval      time.Duration `yaml:"poll_interval"`
}

// SweepConfig controls query preparation and the parameter grid.
type SweepConfig struct {
	Seed         int64     `yaml:"seed"`
	NoiseStdDev  float64   `yaml:"noise_stddev"`
	Queries      int       `yaml:"queries"`
	Oversampling []float64 `yaml:"oversampling"`
	Rescore      []bool    `yaml:"rescore"`
	Limits       []int     `yaml:"limits"`
	Parallelism  int       `yaml:"parallelism"`
	RateLimit    float64   `yaml:"rate_limit,omitempty"`
	Burst        int       `yaml:"burst,omitempty"`
}

// EmbeddingConfig points at an OpenAI-compatible embeddings endpoint used
// for ad-hoc text queries.
type EmbeddingConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
	Token string `yaml:"token,omitempty"`
}

// Config is the full harness configuration.
type Config struct {
	Qdrant      QdrantConfig     `yaml:"qdrant"`
	Collection  CollectionConfig `yaml:"collection"`
	Dataset     DatasetConfig    `yaml:"dataset"`
	Upload      UploadConfig     `yaml:"upload"`
	Sweep       SweepConfig      `yaml:"sweep"`
	Embedding   EmbeddingConfig  `yaml:"embedding"`
	DBPath      string           `yaml:"db_path"`
	MetricsAddr string           `yaml:"metrics_addr,omitempty"`
}

// DefaultConfig returns the settings of the reference binary quantization
// benchmark over the DBpedia OpenAI embeddings.
func DefaultConfig() *Config {
	spec := vectordb.DefaultCollectionSpec()
	grid := core.DefaultGrid()

	return &Config{
		Qdrant: QdrantConfig{
			Host: qdrant.DefaultHost,
			Port: qdrant.DefaultPort,
		},
		Collection: CollectionConfig{
			Name:          "dbpedia-bq",
			Dimension:     spec.Dimension,
			Distance:      string(spec.Distance),
			OnDisk:        spec.OnDisk,
			AlwaysRAM:     spec.AlwaysRAM,
			Shards:        spec.Shards,
			SegmentNumber: spec.SegmentNumber,
		},
		Dataset: DatasetConfig{
			TextField:   dataset.DefaultTextField,
			VectorField: dataset.DefaultVectorField,
		},
		Upload: UploadConfig{
			BatchSize:         256,
			Workers:           0,
			MaxRetries:        3,
			RetryDelay:        500 * time.Millisecond,
			IndexingThreshold: 20000,
			WaitReady:         true,
			PollInterval:      time.Second,
		},
		Sweep: SweepConfig{
			Seed:         noise.DefaultSeed,
			NoiseStdDev:  noise.DefaultStdDev,
			Queries:      100,
			Oversampling: grid.Oversampling,
			Rescore:      grid.Rescore,
			Limits:       grid.Limits,
			Parallelism:  1,
		},
		Embedding: EmbeddingConfig{
			Host:  "https://api.openai.com/v1",
			Model: "text-embedding-ada-002",
		},
		DBPath: "bqeval.db",
	}
}

// Load overlays the YAML file at path on DefaultConfig and validates the
// result. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write encodes the configuration as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return enc.Close()
}

// Validate checks that the configuration is complete and consistent.
// Dataset path is not checked here; only commands that read it require it.
func (c *Config) Validate() error {
	if c.Collection.Name == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidConfig)
	}
	if c.Qdrant.Port < 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("%w: qdrant port %d out of range", ErrInvalidConfig, c.Qdrant.Port)
	}
	if err := c.CollectionSpec().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Upload.BatchSize <= 0 {
		return fmt.Errorf("%w: upload batch_size must be greater than 0", ErrInvalidConfig)
	}
	if c.Upload.Workers < 0 {
		return fmt.Errorf("%w: upload workers must not be negative", ErrInvalidConfig)
	}
	if c.Upload.MaxRetries <= 0 {
		return fmt.Errorf("%w: upload max_retries must be greater than 0", ErrInvalidConfig)
	}
	if c.Sweep.Queries <= 0 {
		return fmt.Errorf("%w: sweep queries must be greater than 0", ErrInvalidConfig)
	}
	if c.Sweep.NoiseStdDev < 0 {
		return fmt.Errorf("%w: sweep noise_stddev must not be negative", ErrInvalidConfig)
	}
	if c.Sweep.Parallelism <= 0 {
		return fmt.Errorf("%w: sweep parallelism must be greater than 0", ErrInvalidConfig)
	}
	if c.Sweep.RateLimit < 0 {
		return fmt.Errorf("%w: sweep rate_limit must not be negative", ErrInvalidConfig)
	}
	if err := core.ValidateGrid(c.Grid()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// CollectionSpec returns the creation spec for the configured collection.
// Indexing is always disabled at creation; Upload.IndexingThreshold is
// applied after the upload.
func (c *Config) CollectionSpec() vectordb.CollectionSpec {
	return vectordb.CollectionSpec{
		Dimension:     c.Collection.Dimension,
		Distance:      vectordb.Distance(c.Collection.Distance),
		OnDisk:        c.Collection.OnDisk,
		AlwaysRAM:     c.Collection.AlwaysRAM,
		Shards:        c.Collection.Shards,
		SegmentNumber: c.Collection.SegmentNumber,
		Recreate:      c.Collection.Recreate,
	}
}

// Grid returns the sweep grid.
func (c *Config) Grid() core.Grid {
	return core.Grid{
		Oversampling: c.Sweep.Oversampling,
		Rescore:      c.Sweep.Rescore,
		Limits:       c.Sweep.Limits,
	}
}

// QdrantConnection returns the client connection settings.
func (c *Config) QdrantConnection() qdrant.Config {
	return qdrant.Config{
		Host:   c.Qdrant.Host,
		Port:   c.Qdrant.Port,
		APIKey: c.Qdrant.APIKey,
		UseTLS: c.Qdrant.UseTLS,
	}
}

// DatasetOptions returns reader options for the configured field mapping.
// The collection dimension is enforced on every row.
func (c *Config) DatasetOptions() []dataset.Option {
	opts := []dataset.Option{
		dataset.WithTextField(c.Dataset.TextField),
		dataset.WithVectorField(c.Dataset.VectorField),
		dataset.WithDimension(c.Collection.Dimension),
	}
	if c.Dataset.IDField != "" {
		opts = append(opts, dataset.WithIDField(c.Dataset.IDField))
	}
	if len(c.Dataset.PayloadFields) > 0 {
		opts = append(opts, dataset.WithPayloadFields(c.Dataset.PayloadFields...))
	}
	if c.Dataset.Limit > 0 {
		opts = append(opts, dataset.WithLimit(c.Dataset.Limit))
	}
	return opts
}

// EmbedderConfig returns the embedding service settings.
func (c *Config) EmbedderConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.Embedding.Host),
		ai.WithModel(c.Embedding.Model),
		ai.WithToken(c.Embedding.Token),
	)
}
