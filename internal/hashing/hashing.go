// Package hashing holds the 64-bit hash helpers used to key search states.
package hashing

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Mix is the splitmix64 finalizer. It spreads a sub-hash before it is
// combined with another so that swapping two sub-hashes changes the result.
func Mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Combine hashes an ordered pair of sub-hashes.
func Combine(a, b uint64) uint64 {
	return Mix(a) ^ Mix(b+0x9e3779b97f4a7c15)
}

// Ints hashes a sequence of ints, order-sensitive.
func Ints(xs []int) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, x := range xs {
		binary.LittleEndian.PutUint64(buf[:], uint64(x))
		d.Write(buf[:])
	}
	return d.Sum64()
}

// Pair hashes two ints.
func Pair(a, b int) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(a))
	binary.LittleEndian.PutUint64(buf[8:], uint64(b))
	return xxhash.Sum64(buf[:])
}

func String(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Value hashes an arbitrary model value. Values that print the same hash the
// same, which is consistent with equality for the plain data models store.
func Value(v any) uint64 {
	switch x := v.(type) {
	case nil:
		return 0
	case int:
		return Mix(uint64(x))
	case int64:
		return Mix(uint64(x))
	case string:
		return String(x)
	default:
		return String(fmt.Sprintf("%T:%v", v, v))
	}
}
