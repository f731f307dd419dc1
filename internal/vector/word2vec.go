package vector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Word2Vec model file formats.
const (
	FormatBinary = "word2vec-bin"
	FormatText   = "word2vec-text"
)

const loadBatch = 4096

// LoadWord2Vec reads a word2vec model in the given format and returns it as a Space.
// limit caps the number of words read (0 = all). Invalid UTF-8 bytes are dropped from words, and
// entries with NaN or infinite components are skipped.
func LoadWord2Vec(ctx context.Context, r io.Reader, format string, limit int) (*Space, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	header, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	count, dims, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < count {
		count = limit
	}
	space, err := NewSpace(dims)
	if err != nil {
		return nil, err
	}

	var next func() (string, []float32, error)
	switch format {
	case FormatBinary, "":
		next = binaryReader(br, dims)
	case FormatText:
		next = textReader(br, dims)
	default:
		return nil, fmt.Errorf("unknown model format: %s (supported: %s, %s)", format, FormatBinary, FormatText)
	}

	words := make([]string, 0, loadBatch)
	vectors := make([][]float32, 0, loadBatch)
	for i := 0; i < count; i++ {
		word, vec, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read entry %d: %w", i, err)
		}
		if word == "" || !finite(vec) {
			continue
		}
		words = append(words, word)
		vectors = append(vectors, vec)
		if len(words) == loadBatch {
			if err := space.Add(ctx, words, vectors); err != nil {
				return nil, err
			}
			words, vectors = words[:0], vectors[:0]
		}
	}
	if err := space.Add(ctx, words, vectors); err != nil {
		return nil, err
	}
	return space, nil
}

func parseHeader(line string) (count, dims int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("invalid header %q: want \"<count> <dimensions>\"", strings.TrimSpace(line))
	}
	if count, err = strconv.Atoi(fields[0]); err != nil {
		return 0, 0, fmt.Errorf("invalid word count: %w", err)
	}
	if dims, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid dimensions: %w", err)
	}
	if dims <= 0 {
		return 0, 0, fmt.Errorf("dimensions must be positive")
	}
	return count, dims, nil
}

// binaryReader reads "word<space><dims little-endian float32>" records. Writers differ on
// whether a newline follows each vector, so leading whitespace is stripped from the word.
func binaryReader(br *bufio.Reader, dims int) func() (string, []float32, error) {
	buf := make([]byte, dims*4)
	return func() (string, []float32, error) {
		raw, err := br.ReadBytes(' ')
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(raw)) == 0 {
				return "", nil, io.EOF
			}
			return "", nil, fmt.Errorf("read word: %w", err)
		}
		word := cleanWord(raw)
		if _, err := io.ReadFull(br, buf); err != nil {
			return "", nil, fmt.Errorf("read vector for %q: %w", word, err)
		}
		vec := make([]float32, dims)
		for i := range vec {
			vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : (i+1)*4]))
		}
		return word, vec, nil
	}
}

func textReader(br *bufio.Reader, dims int) func() (string, []float32, error) {
	return func() (string, []float32, error) {
		for {
			line, err := br.ReadString('\n')
			if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
				return "", nil, err
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if len(fields) != dims+1 {
				return "", nil, fmt.Errorf("%w: line for %q has %d values, expected %d",
					ErrDimensionMismatch, fields[0], len(fields)-1, dims)
			}
			vec := make([]float32, dims)
			for i, f := range fields[1:] {
				v, perr := strconv.ParseFloat(f, 32)
				if perr != nil {
					return "", nil, fmt.Errorf("parse value for %q: %w", fields[0], perr)
				}
				vec[i] = float32(v)
			}
			return cleanWord([]byte(fields[0])), vec, nil
		}
	}
}

func cleanWord(raw []byte) string {
	return strings.ToValidUTF8(strings.TrimSpace(string(raw)), "")
}
