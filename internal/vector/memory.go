// Package vector provides the in-memory word embedding space used by the solver.
package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var (
	// ErrDimensionMismatch is returned when a vector does not match the space dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrZeroVector is returned when a query vector has no direction.
	ErrZeroVector = errors.New("zero query vector")
	// ErrNonFiniteVector is returned when a vector has a NaN or infinite component.
	ErrNonFiniteVector = errors.New("vector has non-finite components")
)

// VectorResult is a single nearest-neighbour hit.
type VectorResult struct {
	Word  string
	Score float64 // cosine similarity in [-1, 1]
}

// Space maps vocabulary words to unit vectors and answers brute-force k-nearest-neighbour
// queries by inner product. Vectors are normalized on insert, so inner product equals cosine.
// Insertion order is the native ranking used to break score ties.
type Space struct {
	dimensions int
	words      []string
	vectors    [][]float32
	index      map[string]int
	mu         sync.RWMutex
}

// NewSpace creates an empty space with the given dimension.
func NewSpace(dimensions int) (*Space, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Space{
		dimensions: dimensions,
		words:      make([]string, 0),
		vectors:    make([][]float32, 0),
		index:      make(map[string]int),
	}, nil
}

// Add appends words with their vectors. A word already present keeps its first vector.
// Nothing is added if any vector has the wrong dimension or a non-finite component.
func (s *Space) Add(ctx context.Context, words []string, vectors [][]float32) error {
	if len(words) != len(vectors) {
		return fmt.Errorf("words and vectors length mismatch")
	}
	for i, vec := range vectors {
		if len(vec) != s.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), s.dimensions)
		}
		if !finite(vec) {
			return fmt.Errorf("%w: %q", ErrNonFiniteVector, words[i])
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, word := range words {
		s.addLocked(word, vectors[i])
	}
	return nil
}

func (s *Space) addLocked(word string, vec []float32) {
	if _, ok := s.index[word]; ok {
		return
	}
	if !finite(vec) {
		return
	}
	v := make([]float32, s.dimensions)
	copy(v, vec)
	normalize(v)
	s.index[word] = len(s.words)
	s.words = append(s.words, word)
	s.vectors = append(s.vectors, v)
}

// Lookup returns a copy of the unit vector for word.
func (s *Space) Lookup(word string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[word]
	if !ok {
		return nil, false
	}
	v := make([]float32, s.dimensions)
	copy(v, s.vectors[i])
	return v, true
}

// Contains reports whether word is in the vocabulary.
func (s *Space) Contains(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[word]
	return ok
}

// NearestTo returns up to count words ordered by descending cosine similarity to vec.
// Words scoring below minSimilarity are dropped. Equal scores keep vocabulary order.
func (s *Space) NearestTo(ctx context.Context, vec []float32, count int, minSimilarity float64) ([]*VectorResult, error) {
	if len(vec) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(vec), s.dimensions)
	}
	if !finite(vec) {
		return nil, ErrNonFiniteVector
	}
	query := make([]float32, len(vec))
	copy(query, vec)
	if !normalize(query) {
		return nil, ErrZeroVector
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if count <= 0 || len(s.words) == 0 {
		return nil, nil
	}
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, 0, len(s.words))
	for i, v := range s.vectors {
		dot := InnerProduct(query, v)
		if !(dot >= minSimilarity) {
			continue
		}
		scores = append(scores, scored{pos: i, score: dot})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if count > len(scores) {
		count = len(scores)
	}
	result := make([]*VectorResult, count)
	for i := 0; i < count; i++ {
		result[i] = &VectorResult{Word: s.words[scores[i].pos], Score: scores[i].score}
	}
	return result, nil
}

// Words returns the vocabulary in insertion order.
func (s *Space) Words() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.words...)
}

// Save persists the space to path. Directory is created if needed. Format: dimension (4), n (4),
// then per word: wordLen (4), word bytes, vector (dimension*4 bytes), all little endian.
func (s *Space) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(s.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.words))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, word := range s.words {
		wordBytes := []byte(word)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(wordBytes))); err != nil {
			return fmt.Errorf("write word len: %w", err)
		}
		if _, err := w.Write(wordBytes); err != nil {
			return fmt.Errorf("write word: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(s.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return w.Flush()
}

// Load reads a snapshot from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the space is unchanged.
func (s *Space) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != s.dimensions {
		return fmt.Errorf("%w: file has %d, space expects %d", ErrDimensionMismatch, dim, s.dimensions)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = make([]string, 0, n)
	s.vectors = make([][]float32, 0, n)
	s.index = make(map[string]int, n)
	buf := make([]byte, s.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var wordLen uint32
		if err := binary.Read(r, binary.LittleEndian, &wordLen); err != nil {
			return fmt.Errorf("read word len: %w", err)
		}
		wordBytes := make([]byte, wordLen)
		if _, err := io.ReadFull(r, wordBytes); err != nil {
			return fmt.Errorf("read word: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		s.addLocked(string(wordBytes), bytesToFloat32Slice(buf))
	}
	return nil
}

// ReadSnapshotDimensions returns the dimension stored in a snapshot header.
func ReadSnapshotDimensions(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var dim uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return 0, fmt.Errorf("read dimensions: %w", err)
	}
	return int(dim), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of words in the space. A nil space is empty.
func (s *Space) Size() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// Dimensions returns the vector dimension.
func (s *Space) Dimensions() int {
	return s.dimensions
}

// Close is a no-op for Space.
func (s *Space) Close() error {
	return nil
}
