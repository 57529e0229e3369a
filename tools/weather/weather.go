package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wayde1122/chat-box-code/config"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
)

const ToolName = "get_weather"

var ErrNoCity = errors.New("city is required")

// Day is one forecast day of a wttr.in report.
type Day struct {
	Date        string
	Description string
	AvgTempC    string
	MaxTempC    string
	MinTempC    string
}

// Report is the subset of the wttr.in j1 document the assistant uses.
type Report struct {
	City        string
	Description string
	TempC       string
	Days        []Day
}

// Day returns the forecast for date, if wttr.in has one.
func (r *Report) Day(date string) (Day, bool) {
	for _, d := range r.Days {
		if d.Date == date {
			return d, true
		}
	}
	return Day{}, false
}

type desc []struct {
	Value string `json:"value"`
}

func (d desc) first() string {
	if len(d) == 0 {
		return ""
	}
	return strings.TrimSpace(d[0].Value)
}

type wttrResponse struct {
	CurrentCondition []struct {
		TempC       string `json:"temp_C"`
		WeatherDesc desc   `json:"weatherDesc"`
	} `json:"current_condition"`
	Weather []struct {
		Date     string `json:"date"`
		AvgTempC string `json:"avgtempC"`
		MaxTempC string `json:"maxtempC"`
		MinTempC string `json:"mintempC"`
		Hourly   []struct {
			Time        string `json:"time"`
			WeatherDesc desc   `json:"weatherDesc"`
		} `json:"hourly"`
	} `json:"weather"`
}

// Tool is the get_weather adapter over wttr.in.
type Tool struct {
	baseURL string
	client  *core.HTTPClient
}

func New(cfg config.ToolsConfig) *Tool {
	cfg = cfg.Normalize()
	return &Tool{
		baseURL: cfg.WeatherBaseURL,
		client:  core.NewHTTPClient(cfg.Timeout, 1, 0),
	}
}

func (t *Tool) Name() string { return ToolName }

func (t *Tool) Description() string {
	return "get_weather(city: str, date?: str): current weather of a city, or the forecast for date (YYYY-MM-DD, within the next 3 days)"
}

// Call never fails; problems are described in the returned text.
func (t *Tool) Call(ctx context.Context, args map[string]string) string {
	city := strings.TrimSpace(args["city"])
	date := strings.TrimSpace(args["date"])
	if city == "" {
		return "Error: get_weather needs a city"
	}
	rep, err := t.Lookup(ctx, city)
	if err != nil {
		return fmt.Sprintf("Error: weather lookup for %s failed - %v", city, err)
	}
	if date == "" {
		return fmt.Sprintf("Current weather in %s: %s, %s°C", city, orUnknown(rep.Description), rep.TempC)
	}
	day, ok := rep.Day(date)
	if !ok {
		dates := make([]string, 0, len(rep.Days))
		for _, d := range rep.Days {
			dates = append(dates, d.Date)
		}
		available := strings.Join(dates, ", ")
		if available == "" {
			available = "none"
		}
		return fmt.Sprintf("Error: no forecast for %s, available dates: %s", date, available)
	}
	return fmt.Sprintf("Forecast for %s on %s: %s, average %s°C, high %s°C, low %s°C",
		city, date, orUnknown(day.Description), day.AvgTempC, day.MaxTempC, day.MinTempC)
}

// Lookup fetches and decodes the wttr.in report for city.
func (t *Tool) Lookup(ctx context.Context, city string) (*Report, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrNoCity
	}
	var raw wttrResponse
	u := fmt.Sprintf("%s/%s?format=j1", t.baseURL, url.PathEscape(city))
	if err := t.client.DoJSON(ctx, http.MethodGet, u, nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("wttr.in: %w", err)
	}
	rep := &Report{City: city}
	if len(raw.CurrentCondition) > 0 {
		rep.Description = raw.CurrentCondition[0].WeatherDesc.first()
		rep.TempC = raw.CurrentCondition[0].TempC
	}
	for _, w := range raw.Weather {
		d := Day{Date: w.Date, AvgTempC: w.AvgTempC, MaxTempC: w.MaxTempC, MinTempC: w.MinTempC}
		// midday conditions stand for the whole day
		for _, h := range w.Hourly {
			if h.Time == "1200" {
				d.Description = h.WeatherDesc.first()
				break
			}
		}
		if d.Description == "" && len(w.Hourly) > 0 {
			d.Description = w.Hourly[0].WeatherDesc.first()
		}
		rep.Days = append(rep.Days, d)
	}
	return rep, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
