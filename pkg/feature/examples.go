// Package feature reads the Examples table of a Gherkin feature file.
package feature

import (
	"fmt"
	"io"
	"os"
	"strings"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
)

// SearchKeyColumns are the header names accepted for the search key, in
// preference order.
var SearchKeyColumns = []string{"member_type", "member type"}

// Example is one data row of an Examples table. Index is 1-based.
type Example struct {
	Index  int
	Values map[string]string
}

// SearchKey returns the example's member type, or "" when it has none.
func (e Example) SearchKey() string {
	for _, col := range SearchKeyColumns {
		if v := strings.TrimSpace(e.Values[col]); v != "" {
			return v
		}
	}
	return ""
}

// ParseExamples reads the first Examples table in the file at path.
func ParseExamples(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature file: %w", err)
	}
	defer f.Close()
	return ReadExamples(f)
}

// ReadExamples parses r as a Gherkin document and returns the rows of the
// first Examples table, searching scenarios in file order (including those
// nested in rules). Headers are lower-cased and cells trimmed. A document
// without an Examples table yields an empty result; a document Gherkin
// rejects, such as a table with rows of different widths, is an error.
func ReadExamples(r io.Reader) ([]Example, error) {
	doc, err := gherkin.ParseGherkinDocument(r, (&messages.Incrementing{}).NewId)
	if err != nil {
		return nil, fmt.Errorf("parse feature file: %w", err)
	}
	if doc.Feature == nil {
		return nil, nil
	}

	table := firstExamples(doc.Feature)
	if table == nil || table.TableHeader == nil {
		return nil, nil
	}

	headers := make([]string, len(table.TableHeader.Cells))
	for i, c := range table.TableHeader.Cells {
		headers[i] = strings.ToLower(strings.TrimSpace(c.Value))
	}

	examples := make([]Example, 0, len(table.TableBody))
	for _, row := range table.TableBody {
		values := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row.Cells) {
				values[h] = strings.TrimSpace(row.Cells[i].Value)
			} else {
				values[h] = ""
			}
		}
		examples = append(examples, Example{Index: len(examples) + 1, Values: values})
	}
	return examples, nil
}

func firstExamples(f *messages.Feature) *messages.Examples {
	for _, child := range f.Children {
		switch {
		case child.Scenario != nil:
			if ex := scenarioExamples(child.Scenario); ex != nil {
				return ex
			}
		case child.Rule != nil:
			for _, rc := range child.Rule.Children {
				if rc.Scenario == nil {
					continue
				}
				if ex := scenarioExamples(rc.Scenario); ex != nil {
					return ex
				}
			}
		}
	}
	return nil
}

func scenarioExamples(s *messages.Scenario) *messages.Examples {
	if len(s.Examples) == 0 {
		return nil
	}
	return s.Examples[0]
}
