package dataset

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/afg1/bqeval/core"
	"github.com/buger/jsonparser"
)

const (
	// DefaultTextField is the row field holding the source text.
	DefaultTextField = "text"

	// DefaultVectorField is the row field holding the precomputed embedding.
	DefaultVectorField = "openai"

	// maxLineSize bounds a single JSON line; 3072-dim float vectors fit comfortably.
	maxLineSize = 64 * 1024 * 1024
)

// Reader iterates a JSON Lines embedding dataset.
// Each call to ForEach or Sample re-opens the source, so a Reader can be reused.
type Reader struct {
	name         string
	open         func() (io.ReadCloser, error)
	idField      []string
	textField    []string
	vectorField  []string
	payloadField []string
	dimension    int
	limit        int
	logger       *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader) error

// WithIDField sets the field used for point IDs.
// Numeric values are used as-is, strings are hashed with core.IDFromContent.
// Without an ID field the zero-based row position is used.
func WithIDField(field string) Option {
	return func(r *Reader) error {
		r.idField = splitPath(field)
		return nil
	}
}

// WithTextField sets the field holding the text. Nested fields use dots ("meta.text").
func WithTextField(field string) Option {
	return func(r *Reader) error {
		if field == "" {
			return fmt.Errorf("%w: text field name is empty", ErrMissingField)
		}
		r.textField = splitPath(field)
		return nil
	}
}

// WithVectorField sets the field holding the embedding array.
func WithVectorField(field string) Option {
	return func(r *Reader) error {
		if field == "" {
			return fmt.Errorf("%w: vector field name is empty", ErrMissingField)
		}
		r.vectorField = splitPath(field)
		return nil
	}
}

// WithPayloadFields copies additional string fields into Record.Payload.
func WithPayloadFields(fields ...string) Option {
	return func(r *Reader) error {
		for _, f := range fields {
			if f != "" {
				r.payloadField = append(r.payloadField, f)
			}
		}
		return nil
	}
}

// WithDimension enforces a vector dimension. By default the first row sets it.
func WithDimension(dim int) Option {
	return func(r *Reader) error {
		if dim < 0 {
			return fmt.Errorf("dimension must not be negative (got %d)", dim)
		}
		r.dimension = dim
		return nil
	}
}

// WithLimit caps the number of rows read. Zero means no limit.
func WithLimit(limit int) Option {
	return func(r *Reader) error {
		if limit < 0 {
			limit = 0
		}
		r.limit = limit
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// Open creates a Reader for a dataset file. Compression is inferred from the
// extension (.gz, .zst, .lz4).
func Open(path string, opts ...Option) (*Reader, error) {
	return newReader(path, func() (io.ReadCloser, error) { return openFile(path) }, opts...)
}

// FromBytes creates a Reader over an in-memory, uncompressed JSON Lines document.
func FromBytes(name string, data []byte, opts ...Option) (*Reader, error) {
	return newReader(name, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, opts...)
}

func newReader(name string, open func() (io.ReadCloser, error), opts ...Option) (*Reader, error) {
	r := &Reader{
		name:        name,
		open:        open,
		textField:   []string{DefaultTextField},
		vectorField: []string{DefaultVectorField},
		logger:      slog.Default().With("component", "dataset"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Name returns the dataset's path or label.
func (r *Reader) Name() string {
	return r.name
}

// ForEach reads the dataset and calls fn for each batch of at most batchSize records.
// Iteration stops on first error from fn or when all rows are read.
// Context cancellation is checked between batches.
func (r *Reader) ForEach(ctx context.Context, batchSize int, fn func([]*core.Record) error) error {
	if batchSize <= 0 {
		return ErrInvalidBatchSize
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	src, err := r.open()
	if err != nil {
		return fmt.Errorf("open dataset %s: %w", r.name, err)
	}
	defer src.Close()

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)

	dimension := r.dimension
	batch := make([]*core.Record, 0, batchSize)
	line := 0
	rows := 0

	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		record, err := r.parseRow(data, rows)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", r.name, line, err)
		}

		if dimension == 0 {
			dimension = len(record.Vector)
		} else if len(record.Vector) != dimension {
			return fmt.Errorf("%s:%d: %w: expected %d, got %d",
				r.name, line, ErrDimensionMismatch, dimension, len(record.Vector))
		}

		batch = append(batch, record)
		rows++

		if len(batch) == batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]*core.Record, 0, batchSize)

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		if r.limit > 0 && rows >= r.limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read dataset %s: %w", r.name, err)
	}

	if len(batch) > 0 {
		if err := fn(batch); err != nil {
			return err
		}
	}

	r.logger.Debug("dataset read", "name", r.name, "rows", rows, "dimension", dimension)
	return nil
}

// errStop ends a Sample scan early.
var errStop = errors.New("stop")

// Sample returns the first n records of the dataset.
func (r *Reader) Sample(ctx context.Context, n int) ([]*core.Record, error) {
	if n <= 0 {
		return nil, nil
	}

	records := make([]*core.Record, 0, n)
	err := r.ForEach(ctx, n, func(batch []*core.Record) error {
		records = append(records, batch...)
		if len(records) >= n {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if len(records) > n {
		records = records[:n]
	}
	return records, nil
}

// Count returns the number of rows ForEach would yield.
func (r *Reader) Count(ctx context.Context) (int, error) {
	total := 0
	err := r.ForEach(ctx, 1024, func(batch []*core.Record) error {
		total += len(batch)
		return nil
	})
	return total, err
}

func (r *Reader) parseRow(data []byte, position int) (*core.Record, error) {
	text, err := getString(data, r.textField)
	if err != nil {
		return nil, err
	}

	vector, err := getVector(data, r.vectorField)
	if err != nil {
		return nil, err
	}

	record := &core.Record{
		ID:     core.ID(position),
		Text:   text,
		Vector: vector,
	}

	if len(r.idField) > 0 {
		id, err := getID(data, r.idField)
		if err != nil {
			return nil, err
		}
		record.ID = id
	}

	for _, field := range r.payloadField {
		value, err := getString(data, splitPath(field))
		if errors.Is(err, ErrMissingField) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if record.Payload == nil {
			record.Payload = make(map[string]string, len(r.payloadField))
		}
		record.Payload[field] = value
	}

	if err := core.ValidateRecord(record); err != nil {
		return nil, err
	}
	return record, nil
}

func getString(data []byte, path []string) (string, error) {
	value, dataType, _, err := jsonparser.Get(data, path...)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) || dataType == jsonparser.Null {
		return "", fmt.Errorf("%w: %s", ErrMissingField, strings.Join(path, "."))
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	if dataType != jsonparser.String {
		return string(value), nil
	}
	s, err := jsonparser.ParseString(value)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	return s, nil
}

func getVector(data []byte, path []string) ([]float32, error) {
	field := strings.Join(path, ".")
	raw, dataType, _, err := jsonparser.Get(data, path...)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) || dataType == jsonparser.Null {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	if dataType != jsonparser.Array {
		return nil, fmt.Errorf("%w: %s is not an array", ErrMalformedRow, field)
	}

	vector := make([]float32, 0, 1536)
	var elemErr error
	_, err = jsonparser.ArrayEach(raw, func(value []byte, valueType jsonparser.ValueType, _ int, _ error) {
		if elemErr != nil {
			return
		}
		if valueType != jsonparser.Number {
			elemErr = fmt.Errorf("%w: %s contains a non-numeric element", ErrMalformedRow, field)
			return
		}
		f, err := jsonparser.ParseFloat(value)
		if err != nil {
			elemErr = fmt.Errorf("%w: %w", ErrMalformedRow, err)
			return
		}
		vector = append(vector, float32(f))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	if elemErr != nil {
		return nil, elemErr
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingField, field, core.ErrEmptyVector)
	}
	return vector, nil
}

func getID(data []byte, path []string) (core.ID, error) {
	value, dataType, _, err := jsonparser.Get(data, path...)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) || dataType == jsonparser.Null {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(path, "."))
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}

	switch dataType {
	case jsonparser.Number:
		id, err := strconv.ParseUint(string(value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: id %s is not an unsigned integer", ErrMalformedRow, value)
		}
		return core.ID(id), nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrMalformedRow, err)
		}
		if id, err := strconv.ParseUint(s, 10, 64); err == nil {
			return core.ID(id), nil
		}
		return core.IDFromContent(s), nil
	default:
		return 0, fmt.Errorf("%w: unsupported id type %s", ErrMalformedRow, dataType)
	}
}

func splitPath(field string) []string {
	if field == "" {
		return nil
	}
	return strings.Split(field, ".")
}
