package plants

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validPlants = `[
  {
    "_meta": {"anything": ["goes", 1]},
    "id": 1,
    "name": "Fern",
    "personality": "shy",
    "scientific_name": "Nephrolepis exaltata",
    "actual_sensor": {"air_humidity": 42, "air_temperature": 21, "soil_humidity": 45, "soil_ph": 5.8, "light_level": 900},
    "ideal_min_sensor": {"air_humidity": 30, "air_temperature": 16, "soil_humidity": 50, "soil_ph": 5, "light_level": 200},
    "ideal_max_sensor": {"air_humidity": 60, "air_temperature": 24, "soil_humidity": 80, "soil_ph": 6.5, "light_level": 800}
  }
]`

func TestDecodeIgnoresMeta(t *testing.T) {
	list, err := Decode([]byte(validPlants))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("plants = %d", len(list))
	}
	if list[0] != fern() {
		t.Fatalf("plant = %#v", list[0])
	}
}

func TestDecodeRejectsInvalidFiles(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"empty":           `[]`,
		"missing sensor":  strings.Replace(validPlants, `"light_level": 900`, `"co2": 1`, 1),
		"ph out of range": strings.Replace(validPlants, `"soil_ph": 5.8`, `"soil_ph": 15`, 1),
		"unknown field":   strings.Replace(validPlants, `"id": 1,`, `"id": 1, "colour": "green",`, 1),
	}
	for name, doc := range cases {
		if _, err := Decode([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestFileSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plants.json")
	if err := os.WriteFile(path, []byte(validPlants), 0o600); err != nil {
		t.Fatal(err)
	}
	list, err := FileSource{Path: path}.Load(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("Load = %d plants, err %v", len(list), err)
	}
	if _, err := (FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}).Load(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBundledPlantsFileIsValid(t *testing.T) {
	list, err := FileSource{Path: filepath.Join("..", "..", "storage", "plants.json")}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	reg := NewStaticRegistry(list)
	p, ok, err := reg.Get(context.Background(), "Fern")
	if err != nil || !ok {
		t.Fatalf("Fern missing: %v", err)
	}
	r, _ := p.Reading(AirHumidity)
	if r.Actual != 42 || r.IdealMin != 30 || r.IdealMax != 60 {
		t.Fatalf("Fern air humidity = %#v", r)
	}
}
