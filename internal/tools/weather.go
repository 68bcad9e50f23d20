package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/model"
	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

const (
	NameGetCurrentWeather = "get_current_weather"

	SourceWeather = "weather"
	// SourceWeatherMock flags synthetic readings so monitoring and tests
	// can tell them apart from real data.
	SourceWeatherMock = "mock"

	defaultWeatherBase = "https://api.openweathermap.org/data/2.5"

	unitCelsius    = "celsius"
	unitFahrenheit = "fahrenheit"
)

type WeatherConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	// AllowMock enables the synthetic fallback reading when no key is
	// configured or the upstream call fails. Off by default; without it
	// those conditions surface as tool errors.
	AllowMock bool `json:"allow_mock"`
}

type weatherArgs struct {
	Location string `json:"location"`
	Unit     string `json:"unit"`
}

type weatherReading struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
	Condition   string  `json:"condition"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Source      string  `json:"source"`
}

type weatherAPIResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// WeatherTool fetches the current weather for a city from an
// OpenWeatherMap-compatible API.
type WeatherTool struct {
	apiKey    string
	baseURL   string
	allowMock bool
	client    *http.Client
}

func NewWeatherTool(cfg WeatherConfig) *WeatherTool {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultWeatherBase
	}
	return &WeatherTool{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		baseURL:   base,
		allowMock: cfg.AllowMock,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *WeatherTool) Name() string {
	return NameGetCurrentWeather
}

func (t *WeatherTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        NameGetCurrentWeather,
			"description": "Get the current weather for a specific city.",
			"parameters": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"location": map[string]interface{}{
						"type":        "string",
						"description": "The city and state, e.g. San Francisco, CA",
					},
					"unit": map[string]interface{}{
						"type":        "string",
						"enum":        []string{unitCelsius, unitFahrenheit},
						"description": "The temperature unit to use.",
					},
				},
				"required": []string{"location"},
			},
		},
	}
}

func (t *WeatherTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	logger := logutil.GetLogger(ctx)
	params := &weatherArgs{}
	if err := json.Unmarshal(args, params); err != nil {
		return nil, fmt.Errorf("decode weather args: %w", err)
	}
	if params.Location == "" {
		return nil, fmt.Errorf("%w: empty weather location", appErr.ErrInvalid)
	}
	unit := strings.ToLower(params.Unit)
	if unit != unitFahrenheit {
		unit = unitCelsius
	}

	if t.apiKey == "" {
		if !t.allowMock {
			return nil, fmt.Errorf("%w: weather api key not configured", appErr.ErrUnavailable)
		}
		logger.Warn("weather api key missing, returning mock reading", zap.String("location", params.Location))
		return t.mockResult(params.Location, unit), nil
	}

	reading, err := t.fetch(ctx, params.Location, unit)
	if err != nil {
		if !t.allowMock {
			return nil, err
		}
		logger.Warn("weather api failed, returning mock reading",
			zap.String("location", params.Location),
			zap.Error(err),
		)
		return t.mockResult(params.Location, unit), nil
	}
	return readingResult(reading), nil
}

func (t *WeatherTool) fetch(ctx context.Context, location string, unit string) (*weatherReading, error) {
	apiUnit := "metric"
	if unit == unitFahrenheit {
		apiUnit = "imperial"
	}
	query := url.Values{}
	query.Set("q", location)
	query.Set("appid", t.apiKey)
	query.Set("units", apiUnit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/weather?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}
	rsp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: call weather api: %v", appErr.ErrToolExecution, err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: weather api status %d", appErr.ErrToolExecution, rsp.StatusCode)
	}
	decoded := &weatherAPIResponse{}
	if err := json.NewDecoder(rsp.Body).Decode(decoded); err != nil {
		return nil, fmt.Errorf("%w: decode weather response: %v", appErr.ErrToolExecution, err)
	}
	condition := ""
	if len(decoded.Weather) > 0 {
		condition = decoded.Weather[0].Description
	}
	return &weatherReading{
		Location:    decoded.Name,
		Temperature: decoded.Main.Temp,
		Unit:        unit,
		Condition:   condition,
		Humidity:    decoded.Main.Humidity,
		WindSpeed:   decoded.Wind.Speed,
		Source:      SourceWeather,
	}, nil
}

func (t *WeatherTool) mockResult(location string, unit string) *Result {
	temp := 22.0
	if unit == unitFahrenheit {
		temp = 72.0
	}
	res := readingResult(&weatherReading{
		Location:    location,
		Temperature: temp,
		Unit:        unit,
		Condition:   "Partly cloudy",
		Humidity:    65,
		WindSpeed:   10,
		Source:      SourceWeatherMock,
	})
	res.Text += "\n  Note: synthetic fallback reading, live weather data unavailable"
	return res
}

func readingResult(reading *weatherReading) *Result {
	text := fmt.Sprintf(
		"Weather in %s:\n  Temperature: %.1f°%s\n  Condition: %s\n  Humidity: %d%%\n  Wind Speed: %.1f km/h",
		reading.Location,
		reading.Temperature,
		strings.ToUpper(reading.Unit[:1]),
		reading.Condition,
		reading.Humidity,
		reading.WindSpeed,
	)
	return &Result{
		Text: text,
		Items: []model.ContextItem{{
			Text:     text,
			FileName: reading.Location,
			Source:   reading.Source,
		}},
	}
}
