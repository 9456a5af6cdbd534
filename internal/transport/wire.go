package transport

import (
	"bytes"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeRecords serializes records as a self-delimiting stream: msgpack
// values are self-framing, so encoding one after another into the same
// buffer and decoding them back with repeated Decode calls until io.EOF
// recovers exactly the original sequence, with no extra length prefixes
// needed.
func encodeRecords(records []Transportee) ([]byte, error) {
	if len(records) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// decodeRecords is encodeRecords' inverse: decode until the segment's
// end, per spec.md §4.5 step 3 ("decode each received segment as a
// stream of Transportee records until EOF").
func decodeRecords(raw []byte) ([]Transportee, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	var out []Transportee
	for {
		var rec Transportee
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		out = append(out, rec)
	}
}
