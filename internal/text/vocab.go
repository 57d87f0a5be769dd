// Package text turns sentiment-style text samples into token-index and one-hot matrices.
package text

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"gonum.org/v1/gonum/mat"
)

const (
	MaxWords         = 25
	SentimentClasses = 2
)

var tokenPattern = regexp.MustCompile(`[\w']+|[.,!?;]`)

// Vocabulary maps words to embedding rows.
type Vocabulary struct {
	Index      map[string]int
	Embeddings *mat.Dense
}

type embsFile struct {
	Vocab []string    `json:"vocab"`
	Emba  [][]float64 `json:"emba"`
}

// LoadVocabulary reads an embedding file of the form {"vocab": [...], "emba": [[...]]}.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := embsFile{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary %s: %w", path, err)
	}
	return NewVocabulary(raw.Vocab, raw.Emba)
}

func NewVocabulary(words []string, embeddings [][]float64) (*Vocabulary, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}
	if len(words) != len(embeddings) {
		return nil, fmt.Errorf("vocabulary has %d words and %d embeddings", len(words), len(embeddings))
	}

	dim := len(embeddings[0])
	table := mat.NewDense(len(words), dim, nil)
	index := make(map[string]int, len(words))
	for i, word := range words {
		if len(embeddings[i]) != dim {
			return nil, fmt.Errorf("embedding %d has %d values, expected %d", i, len(embeddings[i]), dim)
		}
		table.SetRow(i, embeddings[i])
		index[word] = i
	}

	return &Vocabulary{Index: index, Embeddings: table}, nil
}

// Encoder is the text-to-index collaborator used for sequence batches.
type Encoder struct {
	index   map[string]int
	classes int
}

// NewEncoder builds an encoder over a word index. Unknown words and padding map to len(index).
func NewEncoder(index map[string]int, classes int) *Encoder {
	return &Encoder{index: index, classes: classes}
}

func (enc *Encoder) UnknownIndex() int {
	return len(enc.index)
}

// Inputs encodes each text as a row of MaxWords token indices.
func (enc *Encoder) Inputs(texts []string) *mat.Dense {
	input := mat.NewDense(len(texts), MaxWords, nil)
	for i, line := range texts {
		words := tokenPattern.FindAllString(line, -1)
		for j := 0; j < MaxWords; j++ {
			token := enc.UnknownIndex()
			if j < len(words) {
				if idx, found := enc.index[words[j]]; found {
					token = idx
				}
			}
			input.Set(i, j, float64(token))
		}
	}
	return input
}

// Targets one-hot encodes labels.
func (enc *Encoder) Targets(labels []int) (*mat.Dense, error) {
	targets := mat.NewDense(len(labels), enc.classes, nil)
	for i, label := range labels {
		if label < 0 || label >= enc.classes {
			return nil, fmt.Errorf("label %d outside [0, %d)", label, enc.classes)
		}
		targets.Set(i, label, 1)
	}
	return targets, nil
}
