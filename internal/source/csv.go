package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/resilience"
)

// CSVLoader reads one named column of a headed CSV file. Each data row
// becomes one document; short rows yield an empty document.
type CSVLoader struct {
	path   string
	column string
}

func NewCSVLoader(path, column string) *CSVLoader {
	return &CSVLoader{path: path, column: column}
}

func (l *CSVLoader) Load(ctx context.Context) (*Corpus, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, resilience.Permanent(fmt.Errorf("opening csv: %w", err))
		}
		return nil, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()
	return l.read(ctx, f)
}

func (l *CSVLoader) read(ctx context.Context, r io.Reader) (*Corpus, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("reading csv header: %w", err))
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == l.column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, resilience.Permanent(fmt.Errorf("csv column %q not found", l.column))
	}

	corpus := &Corpus{Documents: []string{}}
	for row := 1; ; row++ {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, resilience.Permanent(fmt.Errorf("reading csv row %d: %w", row, err))
		}
		doc := ""
		if col < len(record) {
			doc = record[col]
		}
		corpus.Documents = append(corpus.Documents, doc)
	}
	return corpus, nil
}
