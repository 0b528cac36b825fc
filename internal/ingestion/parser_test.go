package ingestion

import "testing"

func TestParsePriceUpdate_Valid(t *testing.T) {
	data := []byte(`{"asset":"mAAPL","price":10000000,"timestamp":1700000000}`)

	u, err := ParsePriceUpdate(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Asset != "mAAPL" || u.Price != 10_000_000 || u.Timestamp != 1_700_000_000 {
		t.Errorf("unexpected update: %+v", u)
	}
}

func TestParsePriceUpdate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed json", `{"asset":`},
		{"missing asset", `{"price":1,"timestamp":1700000000}`},
		{"negative price", `{"asset":"mAAPL","price":-1,"timestamp":1700000000}`},
		{"zero timestamp", `{"asset":"mAAPL","price":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePriceUpdate([]byte(tt.data)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
