package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/carie/internal/plants"
)

// ExaminePlant describes one plant.
type ExaminePlant struct {
	Plants *plants.Registry
}

func (ExaminePlant) Name() string      { return "examine_plant" }
func (ExaminePlant) InputSpec() string { return "plant_name" }
func (ExaminePlant) Description() string {
	return "selects one of our plants by its name and describes their overall characteristics"
}

func (c ExaminePlant) Invoke(ctx context.Context, arg string) ([]string, error) {
	p, ok, err := c.Plants.Get(ctx, arg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{unknownPlant(arg)}, nil
	}
	return []string{fmt.Sprintf("%s is a %s. It currently is %s.", p.Name, p.ScientificName, p.Status())}, nil
}

// ReadPlantSensor reports one sensor of one plant against its ideal range.
type ReadPlantSensor struct {
	Plants *plants.Registry
}

// SensorFormatHint is observed when the argument is not "plant, sensor".
const SensorFormatHint = "The action MUST follow the format read_plant_sensor[one of our plants name, one of the available sensors]"

func (ReadPlantSensor) Name() string      { return "read_plant_sensor" }
func (ReadPlantSensor) InputSpec() string { return "plant_name, sensor_name" }
func (ReadPlantSensor) Description() string {
	return "selects one of our plants by its name and read one of its sensors. Available sensors: " +
		strings.Join(plants.SensorNames, ", ")
}

func (c ReadPlantSensor) Invoke(ctx context.Context, arg string) ([]string, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 2 {
		return []string{SensorFormatHint}, nil
	}
	plantName, sensor := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if !plants.IsSensor(sensor) {
		return []string{fmt.Sprintf("We don't have a sensor named `%s`", sensor)}, nil
	}
	p, ok, err := c.Plants.Get(ctx, plantName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{unknownPlant(plantName)}, nil
	}
	r, _ := p.Reading(sensor)
	return []string{fmt.Sprintf("%s's %s currently is %s. Ideally it should be between %s and %s",
		p.Name, plants.SensorWords(sensor), plants.FormatValue(r.Actual),
		plants.FormatValue(r.IdealMin), plants.FormatValue(r.IdealMax))}, nil
}

// ListPlants lists every plant with its status. It takes no argument.
type ListPlants struct {
	Plants *plants.Registry
}

func (ListPlants) Name() string        { return "list_plants" }
func (ListPlants) InputSpec() string   { return " " }
func (ListPlants) Description() string { return "lists all of our plant's names and species" }

func (c ListPlants) Invoke(ctx context.Context, _ string) ([]string, error) {
	list, err := c.Plants.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, fmt.Sprintf("%s, currently has %s", p.Name, p.Status()))
	}
	return out, nil
}

func unknownPlant(name string) string {
	return fmt.Sprintf("We don't have a plant named `%s`", strings.TrimSpace(name))
}
