package directory

import (
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// recordCodec and listCodec serialize cache entries with msgpack, which keeps float64
// ratings bit-exact across a round trip.
type recordCodec struct{}

func (recordCodec) Encode(r Record) ([]byte, error) {
	return msgpack.Marshal(r)
}

func (recordCodec) Decode(data []byte) (Record, error) {
	var wire cachedRecord
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return Record{}, err
	}
	return wire.record(), nil
}

type listCodec struct{}

func (listCodec) Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return msgpack.Marshal(records)
}

func (listCodec) Decode(data []byte) ([]Record, error) {
	var wire []cachedRecord
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(wire))
	for _, w := range wire {
		records = append(records, w.record())
	}
	return records, nil
}

// cachedRecord is the decode-side shape of a cached Record.
type cachedRecord struct {
	Name        string       `msgpack:"name"`
	Category    string       `msgpack:"category"`
	Region      string       `msgpack:"region"`
	Rating      cachedRating `msgpack:"rating"`
	RatingCount int          `msgpack:"ratingCount"`
}

func (c cachedRecord) record() Record {
	return Record{
		Name:        c.Name,
		Category:    c.Category,
		Region:      c.Region,
		Rating:      float64(c.Rating),
		RatingCount: c.RatingCount,
	}
}

// cachedRating accepts numeric ratings and the textual form older writers stored.
// Unparseable text decodes as 0.
type cachedRating float64

func (r *cachedRating) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return err
	}

	switch x := v.(type) {
	case nil:
		*r = 0
	case float64:
		*r = cachedRating(x)
	case int64:
		*r = cachedRating(x)
	case uint64:
		*r = cachedRating(x)
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			f = 0
		}
		*r = cachedRating(f)
	default:
		return fmt.Errorf("unsupported rating type %T", v)
	}
	return nil
}
