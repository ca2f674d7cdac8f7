package storage

import (
	"time"
)

// Record is one sealed entry of a namespace. Key may hold any bytes.
type Record struct {
	Key        string
	Ciphertext []byte
	Nonce      []byte
}

// diskRecord is the JSON form of a Record. The key is kept as bytes so
// keys that are not valid UTF-8 survive encoding unchanged.
type diskRecord struct {
	Key        []byte `json:"k"`
	Ciphertext []byte `json:"c"`
	Nonce      []byte `json:"n,omitempty"`
}

// Namespace holds the records of one namespace in insertion order
type Namespace struct {
	Name    string
	Records []Record
}

// Snapshot is the full persisted state of a store
type Snapshot struct {
	StoreID    string
	Encrypted  bool
	Created    time.Time
	Modified   time.Time
	Namespaces []Namespace
}

// Len returns the total number of records across all namespaces.
func (s *Snapshot) Len() int {
	n := 0
	for _, ns := range s.Namespaces {
		n += len(ns.Records)
	}
	return n
}
