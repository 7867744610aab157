package ph

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/evancroft/phkeeper/controller/storage"
)

const bandKey = "band"

// Byte offsets within the persisted band record. The layout matches the
// device's original non-volatile image: two little-endian IEEE-754 float32
// fields in an 8 byte record.
const (
	bandLowOffset  = 0
	bandHighOffset = 4
	bandRecordSize = 8
)

// DefaultBand is used when storage has never been written (or the stored
// record fails to decode). It matches the firmware's compiled-in targets.
var DefaultBand = Band{Low: 6.0, High: 8.5}

// Band is the acceptable pH range.
type Band struct {
	Low  float32 `json:"low"`
	High float32 `json:"high"`
}

// Validate rejects inverted and non-finite bands. An inverted band makes
// the too-low/too-high branches ambiguous, so it is never accepted.
func (b Band) Validate() error {
	if !isFinite(float64(b.Low)) || !isFinite(float64(b.High)) {
		return fmt.Errorf("band values must be finite, got %v to %v", b.Low, b.High)
	}
	if b.Low > b.High {
		return fmt.Errorf("band low %.2f exceeds high %.2f", b.Low, b.High)
	}
	return nil
}

func (b Band) String() string {
	return fmt.Sprintf("%.2f to %.2f", b.Low, b.High)
}

func encodeBand(b Band) []byte {
	buf := make([]byte, bandRecordSize)
	binary.LittleEndian.PutUint32(buf[bandLowOffset:], math.Float32bits(b.Low))
	binary.LittleEndian.PutUint32(buf[bandHighOffset:], math.Float32bits(b.High))
	return buf
}

func decodeBand(buf []byte) (Band, error) {
	if len(buf) != bandRecordSize {
		return Band{}, fmt.Errorf("band record is %d bytes, want %d", len(buf), bandRecordSize)
	}
	b := Band{
		Low:  math.Float32frombits(binary.LittleEndian.Uint32(buf[bandLowOffset:])),
		High: math.Float32frombits(binary.LittleEndian.Uint32(buf[bandHighOffset:])),
	}
	return b, b.Validate()
}

// BandStore owns the active target band and its persisted image. Every
// external mutation persists immediately; there is no dirty-but-unsaved
// state visible outside.
type BandStore struct {
	store storage.Store

	mu   sync.Mutex
	band Band
}

// NewBandStore creates the bucket and loads the persisted band, falling back
// to DefaultBand on first boot.
func NewBandStore(store storage.Store) (*BandStore, error) {
	if err := store.CreateBucket(BandBucket); err != nil {
		return nil, err
	}
	s := &BandStore{store: store}
	if _, err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the persisted band into memory and returns it. Missing or
// undecodable records resolve to DefaultBand rather than propagating
// whatever bytes happen to be there.
func (s *BandStore) Load() (Band, error) {
	buf, err := s.store.GetBytes(BandBucket, bandKey)
	if err != nil {
		return Band{}, err
	}
	band := DefaultBand
	if buf != nil {
		if decoded, err := decodeBand(buf); err == nil {
			band = decoded
		}
	}
	s.mu.Lock()
	s.band = band
	s.mu.Unlock()
	return band, nil
}

// Save persists the in-memory band. The write is both-or-neither: the full
// 8 byte record goes down in one transaction.
func (s *BandStore) Save() error {
	s.mu.Lock()
	band := s.band
	s.mu.Unlock()
	return s.store.PutBytes(BandBucket, bandKey, encodeBand(band))
}

// Get returns the active in-memory band.
func (s *BandStore) Get() Band {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.band
}

// Set validates, updates and immediately persists the band. On any error
// the previous band stays active.
func (s *BandStore) Set(low, high float32) error {
	band := Band{Low: low, High: high}
	if err := band.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.band
	s.band = band
	s.mu.Unlock()
	if err := s.Save(); err != nil {
		s.mu.Lock()
		s.band = prev
		s.mu.Unlock()
		return err
	}
	return nil
}
