package travel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/tools/weather"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	dateLayout = "2006-01-02"
	maxDays    = 14
	maxHotels  = 5
)

var (
	ErrNoDestination = errors.New("destination is required")
	ErrInvalidDates  = errors.New("invalid travel dates")
)

var tracer = otel.Tracer("assistant/internal/travel")

const itinerarySystemPrompt = `You are a professional travel planner. Using the traveller's request, the weather
forecast, the attraction recommendations and the hotel options, write a day-by-day itinerary in markdown.

Rules:
1. One "## Day N (YYYY-MM-DD)" section per day, in order.
2. Two or three attractions per day with morning, lunch, afternoon and evening slots.
3. Prefer indoor attractions on rainy days.
4. Leave time for transport and rest.
5. End with a short "## Stay" section recommending one of the hotels.`

type Request struct {
	Destination string   `json:"destination"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Preferences []string `json:"preferences"`
}

// Brief is a generated travel plan.
type Brief struct {
	ID          string            `json:"id"`
	Destination string            `json:"destination"`
	StartDate   string            `json:"startDate"`
	EndDate     string            `json:"endDate"`
	Weather     []weather.Day     `json:"weather"`
	Attractions string            `json:"attractions"`
	Hotels      []core.SourceItem `json:"hotels"`
	Itinerary   string            `json:"itinerary"`
	Degraded    bool              `json:"degraded"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type WeatherLookup interface {
	Lookup(ctx context.Context, city string) (*weather.Report, error)
}

type AttractionRecommender interface {
	Recommend(ctx context.Context, city, weather string) (string, error)
}

// Planner fans out the weather, attraction and hotel lookups, then asks the
// model for one itinerary.
type Planner struct {
	llm         core.LLMProvider
	weather     WeatherLookup
	attractions AttractionRecommender
	search      core.SearchProvider
	backend     string
	logger      *log.Logger
	now         func() time.Time
}

type Option func(*Planner)

func WithLogger(l *log.Logger) Option { return func(p *Planner) { p.logger = l } }

// WithSearchBackend picks the backend used for the hotel search.
func WithSearchBackend(b string) Option { return func(p *Planner) { p.backend = b } }

func WithClock(now func() time.Time) Option { return func(p *Planner) { p.now = now } }

// NewPlanner wires the collaborators. llm may be nil, in which case every
// brief uses the default itinerary.
func NewPlanner(llm core.LLMProvider, w WeatherLookup, a AttractionRecommender, search core.SearchProvider, opts ...Option) *Planner {
	p := &Planner{llm: llm, weather: w, attractions: a, search: search, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New(log.Writer(), "[TRAVEL] ", log.LstdFlags)
	}
	return p
}

// Validate normalizes the request in place and returns the trip dates.
func (r *Request) Validate() ([]string, error) {
	r.Destination = strings.TrimSpace(r.Destination)
	if r.Destination == "" {
		return nil, ErrNoDestination
	}
	start, err := time.Parse(dateLayout, strings.TrimSpace(r.StartDate))
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q", ErrInvalidDates, r.StartDate)
	}
	end := start
	if strings.TrimSpace(r.EndDate) != "" {
		if end, err = time.Parse(dateLayout, strings.TrimSpace(r.EndDate)); err != nil {
			return nil, fmt.Errorf("%w: end date %q", ErrInvalidDates, r.EndDate)
		}
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalidDates)
	}
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if len(dates) == maxDays {
			return nil, fmt.Errorf("%w: trips are limited to %d days", ErrInvalidDates, maxDays)
		}
		dates = append(dates, d.Format(dateLayout))
	}
	r.StartDate, r.EndDate = dates[0], dates[len(dates)-1]
	return dates, nil
}

// Plan builds a brief. Lookup failures leave their section empty; a model
// failure yields the default itinerary.
func (p *Planner) Plan(ctx context.Context, req Request) (*Brief, error) {
	dates, err := req.Validate()
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "Planner.Plan")
	defer span.End()
	span.SetAttributes(attribute.String("travel.destination", req.Destination), attribute.Int("travel.days", len(dates)))

	brief := &Brief{
		ID:          uuid.NewString(),
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedAt:   p.now(),
	}
	p.logger.Printf("planning %s %s..%s (%s)", req.Destination, req.StartDate, req.EndDate, brief.ID)

	// lookups log their own failures and always return nil
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		brief.Weather = p.lookupWeather(gctx, req.Destination, dates)
		return nil
	})
	g.Go(func() error {
		brief.Attractions = p.lookupAttractions(gctx, req)
		return nil
	})
	g.Go(func() error {
		brief.Hotels = p.lookupHotels(gctx, req.Destination)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	itinerary, err := p.itinerary(ctx, req, brief)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Printf("itinerary generation failed, using default: %v", err)
		itinerary = DefaultItinerary(brief, dates)
		brief.Degraded = true
	}
	brief.Itinerary = itinerary
	return brief, nil
}

func (p *Planner) lookupWeather(ctx context.Context, city string, dates []string) []weather.Day {
	if p.weather == nil {
		return nil
	}
	rep, err := p.weather.Lookup(ctx, city)
	if err != nil {
		p.logger.Printf("weather lookup failed: %v", err)
		return nil
	}
	var out []weather.Day
	for _, d := range dates {
		if day, ok := rep.Day(d); ok {
			out = append(out, day)
		}
	}
	return out
}

func (p *Planner) lookupAttractions(ctx context.Context, req Request) string {
	if p.attractions == nil {
		return ""
	}
	conditions := "any"
	if len(req.Preferences) > 0 {
		conditions = "any, for travellers who enjoy " + strings.Join(req.Preferences, ", ")
	}
	text, err := p.attractions.Recommend(ctx, req.Destination, conditions)
	if err != nil {
		p.logger.Printf("attraction lookup failed: %v", err)
		return ""
	}
	return text
}

func (p *Planner) lookupHotels(ctx context.Context, city string) []core.SourceItem {
	if p.search == nil {
		return nil
	}
	items, err := p.search.Search(ctx, "best rated hotels in "+city, p.backend)
	if err != nil {
		p.logger.Printf("hotel search failed: %v", err)
		return nil
	}
	if len(items) > maxHotels {
		items = items[:maxHotels]
	}
	return items
}

func (p *Planner) itinerary(ctx context.Context, req Request, b *Brief) (string, error) {
	if p.llm == nil {
		return "", errors.New("no language model configured")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Destination: %s\nDates: %s to %s\n", req.Destination, req.StartDate, req.EndDate)
	if len(req.Preferences) > 0 {
		fmt.Fprintf(&sb, "Preferences: %s\n", strings.Join(req.Preferences, ", "))
	}
	sb.WriteString("\nWeather forecast:\n")
	sb.WriteString(orNone(weatherLines(b.Weather)))
	sb.WriteString("\n\nAttractions:\n")
	sb.WriteString(orNone(b.Attractions))
	sb.WriteString("\n\nHotels:\n")
	sb.WriteString(orNone(hotelLines(b.Hotels)))
	out, err := p.llm.Generate(ctx, sb.String(), itinerarySystemPrompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.New("empty itinerary")
	}
	return strings.TrimSpace(out), nil
}

// DefaultItinerary lays out the gathered data day by day without a model.
func DefaultItinerary(b *Brief, dates []string) string {
	byDate := make(map[string]weather.Day, len(b.Weather))
	for _, d := range b.Weather {
		byDate[d.Date] = d
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s itinerary\n", b.Destination)
	for i, date := range dates {
		fmt.Fprintf(&sb, "\n## Day %d (%s)\n\n", i+1, date)
		if d, ok := byDate[date]; ok {
			fmt.Fprintf(&sb, "- Weather: %s, %s-%s°C\n", d.Description, d.MinTempC, d.MaxTempC)
		}
		switch {
		case i == 0:
			sb.WriteString("- Morning: arrive and check in\n- Afternoon: explore the city centre\n")
		case i == len(dates)-1 && len(dates) > 1:
			sb.WriteString("- Morning: last sights and souvenirs\n- Afternoon: departure\n")
		default:
			sb.WriteString("- Morning: visit a recommended attraction\n- Afternoon: local food and a second attraction\n")
		}
	}
	if b.Attractions != "" {
		sb.WriteString("\n## Recommended attractions\n\n")
		sb.WriteString(b.Attractions)
		sb.WriteString("\n")
	}
	if len(b.Hotels) > 0 {
		sb.WriteString("\n## Stay\n\n")
		sb.WriteString(hotelLines(b.Hotels))
		sb.WriteString("\n")
	}
	return sb.String()
}

func weatherLines(days []weather.Day) string {
	lines := make([]string, 0, len(days))
	for _, d := range days {
		lines = append(lines, fmt.Sprintf("- %s: %s, %s-%s°C", d.Date, d.Description, d.MinTempC, d.MaxTempC))
	}
	return strings.Join(lines, "\n")
}

func hotelLines(hotels []core.SourceItem) string {
	lines := make([]string, 0, len(hotels))
	for _, h := range hotels {
		lines = append(lines, fmt.Sprintf("- [%s](%s)", h.Title, h.URL))
	}
	return strings.Join(lines, "\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
