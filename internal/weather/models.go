package weather

import "time"

// CurrentConditions holds the observed weather at fetch time.
type CurrentConditions struct {
	Condition   string  `json:"condition"`
	Temperature float64 `json:"temperatureC"`
}

// DayForecast is the one-day outlook.
type DayForecast struct {
	Condition      string  `json:"condition"`
	MinTemperature float64 `json:"minTemperatureC"`
	MaxTemperature float64 `json:"maxTemperatureC"`
}

// Snapshot is the combined weather view the briefing is built from.
// Immutable once fetched.
type Snapshot struct {
	Location  string            `json:"location"`
	Timestamp time.Time         `json:"timestamp"` // always UTC
	Current   CurrentConditions `json:"current"`
	Forecast  DayForecast       `json:"forecast"`
}
