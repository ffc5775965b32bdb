package ml

import (
	"encoding/binary"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClassifier memoizes single-row predictions of a deterministic
// classifier. Keys are the exact bit patterns of the row.
type CachedClassifier struct {
	inner Classifier
	cache *lru.Cache[string, []float64]
}

// NewCachedClassifier returns inner unchanged when size <= 0.
func NewCachedClassifier(inner Classifier, size int) (Classifier, error) {
	if size <= 0 {
		return inner, nil
	}
	cache, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("prediction cache: %w", err)
	}
	return &CachedClassifier{inner: inner, cache: cache}, nil
}

func (c *CachedClassifier) NumFeatures() int { return c.inner.NumFeatures() }

func (c *CachedClassifier) NumClasses() int { return c.inner.NumClasses() }

func (c *CachedClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	if len(X) != 1 {
		return c.inner.PredictProba(X)
	}
	key := rowKey(X[0])
	if row, ok := c.cache.Get(key); ok {
		return [][]float64{append([]float64(nil), row...)}, nil
	}
	out, err := c.inner.PredictProba(X)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, append([]float64(nil), out[0]...))
	return out, nil
}

func (c *CachedClassifier) Len() int { return c.cache.Len() }

func rowKey(row []float64) string {
	buf := make([]byte, 8*len(row))
	for i, v := range row {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return string(buf)
}
