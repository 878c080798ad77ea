package directory

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestRecordCodec_PreservesRatingExactly(t *testing.T) {
	in := Record{Name: "a", Category: "thai", Region: "eu", Rating: 2.7, RatingCount: 5}

	data, err := recordCodec{}.Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out, err := recordCodec{}.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out != in {
		t.Errorf("decoded %+v, want %+v", out, in)
	}
}

func TestRecordCodec_CoercesLegacyRatings(t *testing.T) {
	tests := []struct {
		name   string
		rating any
		want   float64
	}{
		{name: "text", rating: "4.5", want: 4.5},
		{name: "unparseable text", rating: "excellent", want: 0},
		{name: "integer", rating: 3, want: 3},
		{name: "float32", rating: float32(2.5), want: 2.5},
		{name: "missing", rating: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := msgpack.Marshal(map[string]any{
				"name":        "a",
				"category":    "thai",
				"region":      "eu",
				"rating":      tt.rating,
				"ratingCount": 2,
			})
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}

			got, err := recordCodec{}.Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got.Rating != tt.want {
				t.Errorf("Rating = %v, want %v", got.Rating, tt.want)
			}
			if got.RatingCount != 2 || got.Name != "a" {
				t.Errorf("other fields lost: %+v", got)
			}
		})
	}
}

func TestListCodec(t *testing.T) {
	in := []Record{
		{Name: "b", Category: "thai", Region: "eu", Rating: 5, RatingCount: 1},
		{Name: "a", Category: "thai", Region: "eu", Rating: 4.25, RatingCount: 4},
	}

	data, err := listCodec{}.Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out, err := listCodec{}.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("decoded %+v, want %+v in order", out, in)
	}

	empty, err := listCodec{}.Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil) failed: %v", err)
	}
	decoded, err := listCodec{}.Decode(empty)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded == nil || len(decoded) != 0 {
		t.Errorf("empty list decoded as %#v", decoded)
	}
}

func TestRecordCodec_RejectsGarbage(t *testing.T) {
	if _, err := (recordCodec{}).Decode([]byte{0xc1}); err == nil {
		t.Error("expected error decoding reserved msgpack byte")
	}
}
