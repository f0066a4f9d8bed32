package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const calendarDefaultBaseURL = "https://www.googleapis.com/calendar/v3"

// CalendarAdapter calls the Google Calendar API.
type CalendarAdapter struct {
	pool    *ConnectionPool
	baseURL string
}

// NewCalendarAdapter builds a Google Calendar adapter on the given pool.
// An empty baseURL uses the public Google API.
func NewCalendarAdapter(pool *ConnectionPool, baseURL string) *CalendarAdapter {
	if baseURL == "" {
		baseURL = calendarDefaultBaseURL
	}

	return &CalendarAdapter{pool: pool, baseURL: baseURL}
}

func (a *CalendarAdapter) Provider() string { return "google_calendar" }

func (a *CalendarAdapter) Call(ctx context.Context, operation string, parameters map[string]any, credentials Credentials) (map[string]any, error) {
	token := credentials["access_token"]
	if token == "" {
		return nil, &AuthenticationError{Provider: a.Provider(), Message: "credentials missing access_token"}
	}

	calendarID := stringParam(parameters, "calendar_id")
	if calendarID == "" {
		calendarID = "primary"
	}

	switch operation {
	case "create_event":
		return a.createEvent(ctx, calendarID, parameters, token)
	case "list_events":
		return a.listEvents(ctx, calendarID, parameters, token)
	default:
		return nil, &PermanentError{Provider: a.Provider(), Message: fmt.Sprintf("unsupported operation %q", operation)}
	}
}

func (a *CalendarAdapter) createEvent(ctx context.Context, calendarID string, parameters map[string]any, token string) (map[string]any, error) {
	summary, err := requireParam(a.Provider(), parameters, "summary")
	if err != nil {
		return nil, err
	}

	start, err := requireParam(a.Provider(), parameters, "start")
	if err != nil {
		return nil, err
	}

	end, err := requireParam(a.Provider(), parameters, "end")
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"summary": summary,
		"start":   map[string]any{"dateTime": start},
		"end":     map[string]any{"dateTime": end},
	}
	if description := stringParam(parameters, "description"); description != "" {
		payload["description"] = description
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", a.baseURL, url.PathEscape(calendarID))

	return doJSON(ctx, a.pool.Client(), a.Provider(), http.MethodPost, endpoint, token, payload)
}

func (a *CalendarAdapter) listEvents(ctx context.Context, calendarID string, parameters map[string]any, token string) (map[string]any, error) {
	query := url.Values{}
	if timeMin := stringParam(parameters, "time_min"); timeMin != "" {
		query.Set("timeMin", timeMin)
	}

	if timeMax := stringParam(parameters, "time_max"); timeMax != "" {
		query.Set("timeMax", timeMax)
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", a.baseURL, url.PathEscape(calendarID))
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	return doJSON(ctx, a.pool.Client(), a.Provider(), http.MethodGet, endpoint, token, nil)
}
