package render

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/couchcryptid/methane-encoder-service/internal/domain"
	"github.com/couchcryptid/methane-encoder-service/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Source is a versioned record collection.
type Source interface {
	Version() uint64
	Snapshot() ([]domain.EmissionRecord, uint64)
}

// Cache memoizes marshalled feature collections. The key covers the dataset
// version and every config field, the lower bound included, so a threshold
// change always misses.
type Cache struct {
	entries *lru.Cache[uint64, []byte]
	metrics *observability.Metrics
}

// NewCache creates a cache holding up to size rendered bodies.
func NewCache(size int, metrics *observability.Metrics) (*Cache, error) {
	entries, err := lru.New[uint64, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create render cache: %w", err)
	}
	return &Cache{entries: entries, metrics: metrics}, nil
}

// Render returns the GeoJSON body for src under cfg.
func (c *Cache) Render(src Source, cfg domain.EncodingConfig, opts Options) ([]byte, error) {
	if body, ok := c.entries.Get(Fingerprint(src.Version(), cfg, opts)); ok {
		c.metrics.RenderCache.WithLabelValues("hit").Inc()
		return body, nil
	}
	c.metrics.RenderCache.WithLabelValues("miss").Inc()

	records, version := src.Snapshot()
	body, err := FeatureCollection(records, cfg, opts).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal feature collection: %w", err)
	}
	c.entries.Add(Fingerprint(version, cfg, opts), body)
	return body, nil
}

// Len returns the number of cached bodies.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Fingerprint hashes a dataset version, config snapshot and options.
func Fingerprint(version uint64, cfg domain.EncodingConfig, opts Options) uint64 {
	d := xxhash.New()
	var buf [8]byte

	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}

	writeUint(version)
	for _, f := range []float64{cfg.DomainMin, cfg.DomainMax, cfg.MinRadiusPixels, cfg.MaxRadiusPixels, cfg.LowerBound} {
		writeUint(math.Float64bits(f))
	}
	for _, i := range domain.Industries() {
		c := cfg.Palette.Color(i)
		_, _ = d.Write(c[:])
	}
	if opts.IncludeFiltered {
		_, _ = d.Write([]byte{1})
	} else {
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
