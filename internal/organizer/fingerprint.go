package organizer

import (
	"image"
	"math/bits"

	"github.com/corona10/goimagehash"
)

// duplicateThreshold is the maximum Hamming distance at which two
// fingerprints are considered the same picture.
const duplicateThreshold = 5

// fingerprintBlocks is the number of byte blocks a fingerprint is split into
// for index bucketing. With 8 blocks over 64 bits, two hashes within Hamming
// distance 7 must agree on at least one block, so bucket lookup never misses
// a match at the configured threshold.
const fingerprintBlocks = 8

// Fingerprint is a 64-bit average-hash summary of image content. Visually
// similar images, including resized or lightly edited copies, have a small
// Hamming distance.
type Fingerprint uint64

// Distance returns the Hamming distance between two fingerprints.
func (f Fingerprint) Distance(other Fingerprint) int {
	return bits.OnesCount64(uint64(f) ^ uint64(other))
}

// FingerprintImage computes the perceptual fingerprint of a decoded image.
func FingerprintImage(img image.Image) (Fingerprint, error) {
	h, err := goimagehash.AverageHash(img)
	if err != nil {
		return 0, err
	}
	return Fingerprint(h.GetHash()), nil
}

// indexEntry pairs a fingerprint with the destination path of the image that
// produced it.
type indexEntry struct {
	fp   Fingerprint
	path string
}

// DuplicateIndex maps fingerprints to already-placed images within the
// current run. Lookup is approximate: any indexed fingerprint within
// duplicateThreshold Hamming distance matches. The index only grows during a
// run and is owned by the single pipeline goroutine, so it needs no locking.
type DuplicateIndex struct {
	entries []indexEntry
	buckets map[uint32][]int
}

// NewDuplicateIndex creates an empty DuplicateIndex.
func NewDuplicateIndex() *DuplicateIndex {
	return &DuplicateIndex{
		buckets: make(map[uint32][]int),
	}
}

// Len returns the number of indexed fingerprints.
func (idx *DuplicateIndex) Len() int {
	return len(idx.entries)
}

// FindMatch returns the destination path of the earliest-indexed fingerprint
// within duplicateThreshold of fp. When several entries are in range the one
// inserted first wins, which keeps duplicate clustering deterministic under
// the pipeline's stable visitation order.
func (idx *DuplicateIndex) FindMatch(fp Fingerprint) (string, bool) {
	best := -1
	for block := 0; block < fingerprintBlocks; block++ {
		for _, i := range idx.buckets[blockKey(block, fp)] {
			if best >= 0 && i >= best {
				continue
			}
			if fp.Distance(idx.entries[i].fp) <= duplicateThreshold {
				best = i
			}
		}
	}
	if best < 0 {
		return "", false
	}
	return idx.entries[best].path, true
}

// Insert records fp with the destination path that now represents it. Called
// once per non-duplicate image, immediately after a negative FindMatch.
func (idx *DuplicateIndex) Insert(fp Fingerprint, destPath string) {
	i := len(idx.entries)
	idx.entries = append(idx.entries, indexEntry{fp: fp, path: destPath})
	for block := 0; block < fingerprintBlocks; block++ {
		key := blockKey(block, fp)
		idx.buckets[key] = append(idx.buckets[key], i)
	}
}

func blockKey(block int, fp Fingerprint) uint32 {
	return uint32(block)<<8 | uint32(uint64(fp)>>(uint(block)*8))&0xFF
}
