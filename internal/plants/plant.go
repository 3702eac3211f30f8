package plants

import (
	"strconv"
	"strings"
)

// Sensor names understood by plant readings.
const (
	AirHumidity    = "air_humidity"
	AirTemperature = "air_temperature"
	SoilHumidity   = "soil_humidity"
	SoilPH         = "soil_ph"
	LightLevel     = "light_level"
)

// SensorNames lists every sensor in reporting order.
var SensorNames = []string{AirHumidity, AirTemperature, SoilHumidity, SoilPH, LightLevel}

// Sensor holds one value per sensor. Used for actual readings and ideal bounds.
type Sensor struct {
	AirHumidity    float64 `json:"air_humidity"`
	AirTemperature float64 `json:"air_temperature"`
	SoilHumidity   float64 `json:"soil_humidity"`
	SoilPH         float64 `json:"soil_ph"`
	LightLevel     float64 `json:"light_level"`
}

// Value returns the value of the named sensor.
func (s Sensor) Value(name string) (float64, bool) {
	switch name {
	case AirHumidity:
		return s.AirHumidity, true
	case AirTemperature:
		return s.AirTemperature, true
	case SoilHumidity:
		return s.SoilHumidity, true
	case SoilPH:
		return s.SoilPH, true
	case LightLevel:
		return s.LightLevel, true
	}
	return 0, false
}

// IsSensor reports whether name is a known sensor.
func IsSensor(name string) bool {
	_, ok := Sensor{}.Value(name)
	return ok
}

// SensorWords renders a sensor name for prose, e.g. "air humidity".
func SensorWords(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// Plant is one of the household plants.
type Plant struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Personality    string `json:"personality"`
	ScientificName string `json:"scientific_name"`
	Actual         Sensor `json:"actual_sensor"`
	IdealMin       Sensor `json:"ideal_min_sensor"`
	IdealMax       Sensor `json:"ideal_max_sensor"`
}

// Genus is the first word of the scientific name.
func (p Plant) Genus() string {
	genus, _, _ := strings.Cut(p.ScientificName, " ")
	return genus
}

// Reading is one sensor value with its ideal range.
type Reading struct {
	Sensor   string  `json:"sensor"`
	Actual   float64 `json:"actual"`
	IdealMin float64 `json:"ideal_min"`
	IdealMax float64 `json:"ideal_max"`
}

// Level classifies the reading against its ideal range: low, good or high.
func (r Reading) Level() string {
	switch {
	case r.Actual < r.IdealMin:
		return "low"
	case r.Actual > r.IdealMax:
		return "high"
	}
	return "good"
}

// Reading returns the named sensor reading.
func (p Plant) Reading(sensor string) (Reading, bool) {
	actual, ok := p.Actual.Value(sensor)
	if !ok {
		return Reading{}, false
	}
	lo, _ := p.IdealMin.Value(sensor)
	hi, _ := p.IdealMax.Value(sensor)
	return Reading{Sensor: sensor, Actual: actual, IdealMin: lo, IdealMax: hi}, true
}

// Status describes every sensor, e.g. "good air humidity, low soil ph, ...".
func (p Plant) Status() string {
	parts := make([]string, 0, len(SensorNames))
	for _, name := range SensorNames {
		r, _ := p.Reading(name)
		parts = append(parts, r.Level()+" "+SensorWords(name))
	}
	return strings.Join(parts, ", ")
}

// Summary is the short public view of a plant.
type Summary struct {
	Name           string `json:"name"`
	ScientificName string `json:"scientific_name"`
	Status         string `json:"status"`
}

// Summary returns the plant's summary.
func (p Plant) Summary() Summary {
	return Summary{Name: p.Name, ScientificName: p.ScientificName, Status: p.Status()}
}

// Exam is the detailed view of a plant with every reading.
type Exam struct {
	Name           string    `json:"name"`
	ScientificName string    `json:"scientific_name"`
	Personality    string    `json:"personality"`
	Readings       []Reading `json:"readings"`
}

// Exam returns the plant's detailed view.
func (p Plant) Exam() Exam {
	e := Exam{Name: p.Name, ScientificName: p.ScientificName, Personality: p.Personality}
	for _, name := range SensorNames {
		r, _ := p.Reading(name)
		e.Readings = append(e.Readings, r)
	}
	return e
}

// FormatValue renders a sensor value without trailing zeros.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
