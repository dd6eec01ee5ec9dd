package repository

import (
	"encoding/json"
	"fmt"
	"iter"
)

// Encode serialises a record for the backends that store opaque documents.
func Encode[T any](record T) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

func Decode[T any](data []byte) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

// DecodeSeq lazily decodes a snapshot of raw documents. Documents that fail
// to decode are passed to onError and skipped.
func DecodeSeq[T any](raw [][]byte, onError func(error)) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, data := range raw {
			record, err := Decode[T](data)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !yield(record) {
				return
			}
		}
	}
}
