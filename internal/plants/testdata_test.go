package plants

func fern() Plant {
	return Plant{
		ID:             1,
		Name:           "Fern",
		Personality:    "shy",
		ScientificName: "Nephrolepis exaltata",
		Actual:         Sensor{AirHumidity: 42, AirTemperature: 21, SoilHumidity: 45, SoilPH: 5.8, LightLevel: 900},
		IdealMin:       Sensor{AirHumidity: 30, AirTemperature: 16, SoilHumidity: 50, SoilPH: 5, LightLevel: 200},
		IdealMax:       Sensor{AirHumidity: 60, AirTemperature: 24, SoilHumidity: 80, SoilPH: 6.5, LightLevel: 800},
	}
}
