// riverbend-tail builds a streaming source description from flags, submits it
// to a Riverbend session, and prints the relation's records as JSON lines.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/riverbend-io/riverbend-client-go/internal/version"
	"github.com/riverbend-io/riverbend-client-go/pkg/redact"
	"github.com/riverbend-io/riverbend-client-go/pkg/riverbend"
	"github.com/riverbend-io/riverbend-client-go/pkg/riverbend/keepalive"
)

// optionFlags collects repeated -option key=value flags.
type optionFlags map[string]string

func (o optionFlags) String() string {
	parts := make([]string, 0, len(o))
	for k, v := range o {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (o optionFlags) Set(raw string) error {
	k, v, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("option must be key=value, got %q", raw)
	}
	o[strings.TrimSpace(k)] = v
	return nil
}

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	opts := optionFlags{}
	fs := flag.NewFlagSet("riverbend-tail", flag.ExitOnError)
	format := fs.String("format", "", "Source connector identifier (empty lets the engine pick its default)")
	schema := fs.String("schema", "", "DDL schema for the source (empty lets the engine infer)")
	path := fs.String("path", "", "Input path for the source (empty submits no path)")
	interval := fs.Duration("interval", 2*time.Second, "Poll interval between record reads")
	maxBatches := fs.Int("max-batches", 0, "Stop after this many reads (0 runs until interrupted)")
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Var(opts, "option", "Source option as key=value (repeatable)")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.Current)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *format, *schema, *path, opts, *interval, *maxBatches); err != nil && ctx.Err() == nil {
		logger.Printf("riverbend-tail: %s", redact.Secrets(err.Error()))
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	logger *log.Logger,
	format, schema, path string,
	opts map[string]string,
	interval time.Duration,
	maxBatches int,
) error {
	client, err := riverbend.NewClientFromEnv()
	if err != nil {
		return err
	}

	session, err := riverbend.NewSession(ctx, client)
	if err != nil {
		return err
	}
	logger.Printf("session %s created", session.ID())

	go func() {
		_ = keepalive.RunLoop(ctx, client, session.ID(), keepalive.Options{})
	}()

	reader := session.ReadStream().Options(opts)
	if strings.TrimSpace(format) != "" {
		reader = reader.Format(format)
	}
	if strings.TrimSpace(schema) != "" {
		reader = reader.SchemaDDL(schema)
	}

	var rel *riverbend.Relation
	if strings.TrimSpace(path) != "" {
		rel, err = reader.LoadPath(ctx, path)
	} else {
		rel, err = reader.Load(ctx)
	}
	if err != nil {
		return err
	}
	logger.Printf("relation %s columns=%v", rel.ID(), rel.Columns())

	enc := json.NewEncoder(os.Stdout)
	for batch := 0; maxBatches <= 0 || batch < maxBatches; batch++ {
		recs, err := rel.Records(ctx)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}
