package knowledge

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Corpus maps namespaces (organization ids) to the documents indexed for them
type Corpus struct {
	Namespaces map[string][]Document `yaml:"namespaces"`
}

// LoadCorpus reads a YAML corpus file
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	return ParseCorpus(data)
}

// ParseCorpus decodes and validates a YAML corpus
func ParseCorpus(data []byte) (*Corpus, error) {
	var corpus Corpus
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}
	if len(corpus.Namespaces) == 0 {
		return nil, fmt.Errorf("corpus has no namespaces")
	}
	for namespace, docs := range corpus.Namespaces {
		seen := make(map[string]struct{}, len(docs))
		for i, doc := range docs {
			if strings.TrimSpace(doc.ID) == "" {
				return nil, fmt.Errorf("namespace %s: document %d has no id", namespace, i)
			}
			if strings.TrimSpace(doc.Text) == "" {
				return nil, fmt.Errorf("namespace %s: document %s has no text", namespace, doc.ID)
			}
			if _, dup := seen[doc.ID]; dup {
				return nil, fmt.Errorf("namespace %s: duplicate document id %s", namespace, doc.ID)
			}
			seen[doc.ID] = struct{}{}
		}
	}
	return &corpus, nil
}

// SortedNamespaces returns the namespace names in order
func (c *Corpus) SortedNamespaces() []string {
	names := make([]string, 0, len(c.Namespaces))
	for name := range c.Namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IndexCorpus indexes every namespace in batches of batchSize documents and
// returns the number of documents written
func IndexCorpus(ctx context.Context, indexer Indexer, corpus *Corpus, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	total := 0
	for _, namespace := range corpus.SortedNamespaces() {
		docs := corpus.Namespaces[namespace]
		for start := 0; start < len(docs); start += batchSize {
			end := min(start+batchSize, len(docs))
			if err := indexer.Index(ctx, namespace, docs[start:end]); err != nil {
				return total, fmt.Errorf("failed to index namespace %s: %w", namespace, err)
			}
			total += end - start
		}
	}
	return total, nil
}
