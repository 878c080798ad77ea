package keyspace

import (
	"math"
	"strings"
	"testing"

	"github.com/YoadTamar/aws-hw2/pkg/testsupport"
)

type keyScenario struct {
	Name  string    `json:"name"`
	Cases []keyCase `json:"cases"`
}

type keyCase struct {
	Shape       string  `json:"shape"`
	Name        string  `json:"name"`
	Region      string  `json:"region"`
	Category    string  `json:"category"`
	MinRating   float64 `json:"minRating"`
	Limit       int     `json:"limit"`
	ExpectedKey string  `json:"expectedKey"`
}

func (c keyCase) key(t *testing.T) string {
	t.Helper()
	switch c.Shape {
	case "point":
		return Point(c.Name)
	case "region":
		return Region(c.Region, c.Limit)
	case "regionCategory":
		return RegionCategory(c.Region, c.Category, c.Limit)
	case "category":
		d, err := ParseDecirating(c.MinRating)
		if err != nil {
			t.Fatalf("ParseDecirating(%v) failed: %v", c.MinRating, err)
		}
		return Category(c.Category, d, c.Limit)
	}
	t.Fatalf("unknown shape %q", c.Shape)
	return ""
}

func TestKeys_FixtureScenarios(t *testing.T) {
	var fixtures struct {
		Scenarios []keyScenario `json:"scenarios"`
	}
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("key_scenarios.json"), &fixtures)

	if len(fixtures.Scenarios) == 0 {
		t.Fatal("no scenarios loaded")
	}

	for _, scenario := range fixtures.Scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			for _, tc := range scenario.Cases {
				if got := tc.key(t); got != tc.ExpectedKey {
					t.Errorf("%s key = %q, want %q", tc.Shape, got, tc.ExpectedKey)
				}
			}
		})
	}
}

func TestKeys_Deterministic(t *testing.T) {
	d, _ := ParseDecirating(2.5)
	first := Category("thai", d, 20)
	for i := 0; i < 10; i++ {
		if got := Category("thai", d, 20); got != first {
			t.Fatalf("Category key not stable: %q != %q", got, first)
		}
	}
}

func TestKeys_DistinctFiltersNeverCollide(t *testing.T) {
	seen := make(map[string]string)
	record := func(label, key string) {
		if prev, ok := seen[key]; ok {
			t.Errorf("key %q produced by both %s and %s", key, prev, label)
		}
		seen[key] = label
	}

	// Values that try to smuggle separators or other shapes into a segment.
	regions := []string{"eu", "eu::limit::10", "eu west", "eu+west"}
	categories := []string{"thai", "thai::minRating::1.0", "category"}

	limits := []int{1, 10, 100}

	for _, region := range regions {
		record("point/"+region, Point(region))
		for _, limit := range limits {
			record("region/"+region, Region(region, limit))
			for _, category := range categories {
				record("regionCategory/"+region+"/"+category, RegionCategory(region, category, limit))
			}
		}
	}
	for _, category := range categories {
		for _, limit := range limits {
			for _, d := range []Decirating{0, 10, 50} {
				record("category/"+category+"/"+d.String(), Category(category, d, limit))
			}
		}
	}
}

func TestKeys_RegionCategoryExtendsRegionKey(t *testing.T) {
	region := Region("eu", 10)
	combined := RegionCategory("eu", "thai", 10)

	if !strings.HasPrefix(combined, region+Separator) {
		t.Errorf("RegionCategory key %q should extend region key %q", combined, region)
	}
}

func TestParseDecirating(t *testing.T) {
	tests := []struct {
		name    string
		rating  float64
		want    Decirating
		str     string
		wantErr bool
	}{
		{name: "zero", rating: 0, want: 0, str: "0.0"},
		{name: "exact tenth", rating: 2.5, want: 25, str: "2.5"},
		{name: "rounds down", rating: 3.14, want: 31, str: "3.1"},
		{name: "rounds up", rating: 4.96, want: 50, str: "5.0"},
		{name: "half a tenth rounds up", rating: 2.95, want: 30, str: "3.0"},
		{name: "below half a tenth", rating: 0.04, want: 0, str: "0.0"},
		{name: "upper bound", rating: 5, want: 50, str: "5.0"},
		{name: "negative", rating: -0.1, wantErr: true},
		{name: "above five", rating: 5.01, wantErr: true},
		{name: "not a number", rating: math.NaN(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecirating(tt.rating)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %v", tt.rating)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseDecirating(%v) = %d, want %d", tt.rating, got, tt.want)
			}
			if got.String() != tt.str {
				t.Errorf("String() = %q, want %q", got.String(), tt.str)
			}
			if !got.Valid() {
				t.Errorf("decirating %d should be valid", got)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: -5, want: DefaultLimit},
		{in: 0, want: DefaultLimit},
		{in: 1, want: 1},
		{in: 42, want: 42},
		{in: 100, want: 100},
		{in: 101, want: 100},
		{in: 1000, want: 100},
	}

	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
