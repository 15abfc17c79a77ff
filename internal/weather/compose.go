package weather

import (
	"fmt"

	"github.com/goccy/go-json"
)

// snapshotDoc is the slice of the provider response the composer needs;
// the full snapshot is stored opaque alongside it.
type snapshotDoc struct {
	Daily struct {
		TemperatureMax []float64 `json:"temperature_2m_max"`
		TemperatureMin []float64 `json:"temperature_2m_min"`
		PrecipProbMax  []int     `json:"precipitation_probability_max"`
		WeatherCode    []int     `json:"weathercode"`
	} `json:"daily"`
}

type profileDoc struct {
	Units string `json:"units"` // metric (default) | imperial
}

// contentDoc is the derived payload persisted with each record. The
// dispatcher later turns it into the notification message.
type contentDoc struct {
	Headline string `json:"headline"`
	Body     string `json:"body"`
}

// WMO weather interpretation codes, condensed to notification wording.
var codeText = map[int]string{
	0: "clear skies", 1: "mostly clear", 2: "partly cloudy", 3: "overcast",
	45: "fog", 48: "freezing fog",
	51: "light drizzle", 53: "drizzle", 55: "heavy drizzle",
	61: "light rain", 63: "rain", 65: "heavy rain",
	71: "light snow", 73: "snow", 75: "heavy snow",
	80: "rain showers", 81: "rain showers", 82: "violent rain showers",
	95: "thunderstorms", 96: "thunderstorms with hail", 99: "thunderstorms with hail",
}

func composeContent(snapshot, profile []byte) ([]byte, error) {
	var doc snapshotDoc
	if err := json.Unmarshal(snapshot, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(doc.Daily.TemperatureMax) == 0 || len(doc.Daily.TemperatureMin) == 0 {
		return nil, fmt.Errorf("snapshot missing daily temperatures")
	}

	var prof profileDoc
	if len(profile) > 0 {
		// profile is best-effort; a malformed one falls back to defaults
		_ = json.Unmarshal(profile, &prof)
	}

	hi, lo := doc.Daily.TemperatureMax[0], doc.Daily.TemperatureMin[0]
	unit := "°C"
	if prof.Units == "imperial" {
		hi, lo = hi*9/5+32, lo*9/5+32
		unit = "°F"
	}

	cond := "changing conditions"
	if len(doc.Daily.WeatherCode) > 0 {
		if s, ok := codeText[doc.Daily.WeatherCode[0]]; ok {
			cond = s
		}
	}

	body := fmt.Sprintf("High %.0f%s, low %.0f%s.", hi, unit, lo, unit)
	if len(doc.Daily.PrecipProbMax) > 0 && doc.Daily.PrecipProbMax[0] >= 30 {
		body = fmt.Sprintf("%s %d%% chance of precipitation.", body, doc.Daily.PrecipProbMax[0])
	}

	return json.Marshal(contentDoc{
		Headline: fmt.Sprintf("Today: %s", cond),
		Body:     body,
	})
}
