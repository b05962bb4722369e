package models

import (
	"strconv"
	"strings"
)

const jettonSuffix = ":jetton"

// CorrelationRef identifies a cell-chain message before its chain hash is known.
// Jetton flows take two hops (wallet -> jetton wallet -> destination).
type CorrelationRef struct {
	ID     uint64
	Jetton bool
}

func (r CorrelationRef) String() string {
	s := strconv.FormatUint(r.ID, 10)
	if r.Jetton {
		return s + jettonSuffix
	}
	return s
}

// Hops is how many final chain transactions must be observed before the
// operation counts as settled.
func (r CorrelationRef) Hops() int {
	if r.Jetton {
		return 2
	}
	return 1
}

// ParseCorrelationRef parses "<id>" or "<id>:jetton". Anything else, including
// real chain hashes, returns false.
func ParseCorrelationRef(s string) (CorrelationRef, bool) {
	ref := CorrelationRef{}
	if strings.HasSuffix(s, jettonSuffix) {
		ref.Jetton = true
		s = strings.TrimSuffix(s, jettonSuffix)
	}
	if s == "" || len(s) > 20 {
		return CorrelationRef{}, false
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return CorrelationRef{}, false
	}
	ref.ID = id
	return ref, true
}

// HopsFor returns how many hops a stored hash needs: one for real hashes.
func HopsFor(hash string) int {
	if ref, ok := ParseCorrelationRef(hash); ok {
		return ref.Hops()
	}
	return 1
}
