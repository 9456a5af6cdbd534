package gridstore

// Codec serializes and deserializes the opaque object type an
// ObjectStorage holds. Implementations are supplied by the application —
// this package has no opinion on the wire representation of T itself, only
// on how encoded cells are framed together (see object.go).
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}
