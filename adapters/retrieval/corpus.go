package retrieval

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// corpusFile is the YAML shape of a corpus file
type corpusFile struct {
	Documents []string `yaml:"documents"`
}

// LoadCorpus reads documents from path. YAML files (.yaml, .yml) hold a
// "documents" list; any other file is plain text with documents separated by
// blank lines.
func LoadCorpus(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var f corpusFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse corpus %s: %w", path, err)
		}
		return f.Documents, nil
	default:
		return splitParagraphs(string(data)), nil
	}
}

func splitParagraphs(text string) []string {
	var (
		docs    []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			docs = append(docs, strings.Join(current, "\n"))
			current = current[:0]
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	flush()
	return docs
}
