package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
)

// conceptAxes maps vocabulary onto fixed vector axes so tests get
// deterministic, semantically plausible similarities without a model.
var conceptAxes = map[string]int{
	"cooking": 0, "pasta": 0, "food": 0, "preparing": 0, "kitchen": 0,
	"meal": 0, "eating": 0, "chef": 0, "recipe": 0,

	"dog": 1, "cat": 1, "animal": 1, "puppy": 1, "pet": 1,

	"running": 2, "park": 2, "outdoor": 2, "nature": 2, "trail": 2,
	"hiking": 2,

	"man": 3, "woman": 3, "someone": 3, "person": 3, "people": 3,

	"laptop": 4, "typing": 4, "computer": 4, "screen": 4, "keyboard": 4,

	"city": 5, "skyline": 5, "street": 5, "building": 5,
}

const stubDims = 8

// StubEmbedder is a deterministic Embedder for tests. Known vocabulary
// lands on shared concept axes; unknown words add small hashed noise so
// unrelated texts are near-orthogonal instead of identical.
type StubEmbedder struct {
	Model string

	mu    sync.Mutex
	Err   error
	Calls []string
}

func NewStubEmbedder() *StubEmbedder {
	return &StubEmbedder{Model: "stub-embedding-v1"}
}

func (s *StubEmbedder) ModelID() string { return s.Model }

func (s *StubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, text)
	err := s.Err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty text")
	}

	vec := make([]float32, stubDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?\"'")
		if len(word) <= 2 {
			continue
		}
		if axis, ok := conceptAxes[word]; ok {
			vec[axis] += 1
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[6+int(h.Sum32()%2)] += 0.2
	}
	return vec, nil
}

// SetErr makes every following Embed call fail.
func (s *StubEmbedder) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// CallCount reports how many Embed calls were made.
func (s *StubEmbedder) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
