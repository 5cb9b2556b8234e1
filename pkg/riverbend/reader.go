package riverbend

import (
	"context"
	"strconv"

	"github.com/riverbend-io/riverbend-client-go/pkg/riverbend/rbschema"
)

// StreamReader assembles the description of a streaming data source and
// submits it to its session to obtain a relation over the stream.
//
// All mutators return the same reader so calls chain, and none of them
// validate anything: the engine is the sole authority on formats, schemas,
// and option values. A reader may be loaded any number of times; each load
// submits an independent snapshot of the current description and leaves the
// reader reusable.
//
// A StreamReader is not safe for concurrent use; callers mutate and load it
// from one goroutine or use separate readers.
type StreamReader struct {
	session relationBuilder

	format  string
	schema  string
	options map[string]string
	paths   []string
}

func newStreamReader(session relationBuilder) *StreamReader {
	return &StreamReader{
		session: session,
		options: make(map[string]string),
	}
}

// Format sets the source connector identifier, for example a file format
// name or a named connector. Unset means the engine's default.
func (r *StreamReader) Format(source string) *StreamReader {
	r.format = source
	return r
}

// Schema sets the expected schema from a structured description. The
// description is rendered to its canonical DDL text before transmission.
// A nil StructType means "no schema" and leaves the description unchanged.
func (r *StreamReader) Schema(st *rbschema.StructType) *StreamReader {
	if st == nil {
		return r
	}
	r.schema = st.DDL()
	return r
}

// SchemaDDL sets the expected schema from a DDL string, overwriting any
// schema set before it through either entry point.
func (r *StreamReader) SchemaDDL(ddl string) *StreamReader {
	r.schema = ddl
	return r
}

// Option sets one source option, overwriting any existing value for the key.
func (r *StreamReader) Option(key, value string) *StreamReader {
	r.options[key] = value
	return r
}

// OptionBool sets one source option from a bool ("true"/"false").
func (r *StreamReader) OptionBool(key string, value bool) *StreamReader {
	return r.Option(key, strconv.FormatBool(value))
}

// OptionInt sets one source option from an integer in decimal form.
func (r *StreamReader) OptionInt(key string, value int64) *StreamReader {
	return r.Option(key, strconv.FormatInt(value, 10))
}

// OptionFloat sets one source option from a float in its shortest exact form.
func (r *StreamReader) OptionFloat(key string, value float64) *StreamReader {
	return r.Option(key, strconv.FormatFloat(value, 'g', -1, 64))
}

// Options merges the given options into the description, overwriting on key
// collision and leaving unrelated keys in place.
func (r *StreamReader) Options(opts map[string]string) *StreamReader {
	for k, v := range opts {
		r.options[k] = v
	}
	return r
}

// Load submits the current description with no input path and returns a
// relation over the described stream. Engine errors propagate unchanged.
func (r *StreamReader) Load(ctx context.Context) (*Relation, error) {
	return r.session.BuildRelation(ctx, r.description())
}

// LoadPath replaces any previously set input path with the given one, then
// submits like Load.
func (r *StreamReader) LoadPath(ctx context.Context, path string) (*Relation, error) {
	r.paths = r.paths[:0]
	r.paths = append(r.paths, path)
	return r.Load(ctx)
}

// JSON loads a stream of JSON files at the given path.
func (r *StreamReader) JSON(ctx context.Context, path string) (*Relation, error) {
	return r.Format("json").LoadPath(ctx, path)
}

// CSV loads a stream of CSV files at the given path.
func (r *StreamReader) CSV(ctx context.Context, path string) (*Relation, error) {
	return r.Format("csv").LoadPath(ctx, path)
}

// ORC loads a stream of ORC files at the given path.
func (r *StreamReader) ORC(ctx context.Context, path string) (*Relation, error) {
	return r.Format("orc").LoadPath(ctx, path)
}

// Parquet loads a stream of Parquet files at the given path.
func (r *StreamReader) Parquet(ctx context.Context, path string) (*Relation, error) {
	return r.Format("parquet").LoadPath(ctx, path)
}

// Text loads a stream of text files at the given path. The relation has a
// single "value" column holding one line per row.
func (r *StreamReader) Text(ctx context.Context, path string) (*Relation, error) {
	return r.Format("text").LoadPath(ctx, path)
}

// TextFile loads a stream of text files at the given path and narrows it to
// a typed view over the "value" column, one string per line in row order.
func (r *StreamReader) TextFile(ctx context.Context, path string) (*StringDataset, error) {
	rel, err := r.Text(ctx, path)
	if err != nil {
		return nil, err
	}
	narrowed, err := rel.Select(ctx, textColumn)
	if err != nil {
		return nil, err
	}
	return narrowed.Strings(textColumn), nil
}

// description snapshots the current state into the wire form. The options
// map is copied so later mutation never aliases an in-flight request.
func (r *StreamReader) description() SourceDescription {
	opts := make(map[string]string, len(r.options))
	for k, v := range r.options {
		opts[k] = v
	}
	paths := make([]string, len(r.paths))
	copy(paths, r.paths)

	return SourceDescription{
		Format:    r.format,
		Schema:    r.schema,
		Options:   opts,
		Paths:     paths,
		Streaming: true,
	}
}
