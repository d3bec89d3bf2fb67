package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pulsedash/dashcal/internal/agenda"
	"github.com/pulsedash/dashcal/internal/core"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

type calendarQuery struct {
	days     int
	month    time.Time
	selected time.Time
	limit    int
}

// parseQuery reads days, month, selected and limit. Missing values fall
// back to cfg; days=0 asks for the month grid.
func parseQuery(r *http.Request, cfg Config) (calendarQuery, error) {
	v := r.URL.Query()
	loc := cfg.Location

	var q calendarQuery
	var err error
	if q.days, err = parseIntParam(v.Get("days"), cfg.RollingDays); err != nil || q.days < 0 {
		return q, fmt.Errorf("invalid days %q", v.Get("days"))
	}
	if q.limit, err = parseIntParam(v.Get("limit"), cfg.Limit); err != nil {
		return q, fmt.Errorf("invalid limit %q", v.Get("limit"))
	}
	if s := v.Get("month"); s != "" {
		if q.month, err = time.ParseInLocation(monthLayout, s, loc); err != nil {
			return q, fmt.Errorf("invalid month %q, want YYYY-MM", s)
		}
	}
	if s := v.Get("selected"); s != "" {
		if q.selected, err = time.ParseInLocation(dateLayout, s, loc); err != nil {
			return q, fmt.Errorf("invalid selected %q, want YYYY-MM-DD", s)
		}
	}
	return q, nil
}

type calendarResponse struct {
	Mode           string     `json:"mode"`
	Title          string     `json:"title"`
	AgendaTitle    string     `json:"agenda_title"`
	AgendaSubtitle string     `json:"agenda_subtitle,omitempty"`
	Today          string     `json:"today"`
	Selected       string     `json:"selected"`
	Month          string     `json:"month,omitempty"`
	TimeZone       string     `json:"timezone"`
	RangeStart     time.Time  `json:"range_start"`
	RangeEnd       time.Time  `json:"range_end"`
	Days           []dayDTO   `json:"days"`
	Upcoming       []eventDTO `json:"upcoming"`
}

type dayDTO struct {
	Date       string   `json:"date"`
	Weekday    string   `json:"weekday"`
	InMonth    bool     `json:"in_month"`
	Today      bool     `json:"today"`
	Selected   bool     `json:"selected"`
	Indicators []string `json:"indicators"`
	Overflow   int      `json:"overflow"`
	Total      int      `json:"total"`
}

type eventDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Calendar    string    `json:"calendar,omitempty"`
	Color       string    `json:"color"`
	URL         string    `json:"url,omitempty"`
	AvatarURLs  []string  `json:"avatar_urls,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end,omitzero"`
	AllDay      bool      `json:"all_day"`
}

func newCalendarResponse(cal *agenda.Calendar, start, end time.Time) calendarResponse {
	title, sub := cal.AgendaHeading()
	resp := calendarResponse{
		Mode:           cal.Mode().String(),
		Title:          cal.Heading(),
		AgendaTitle:    title,
		AgendaSubtitle: sub,
		Today:          cal.Today().Format(dateLayout),
		Selected:       cal.Selected().Format(dateLayout),
		TimeZone:       cal.Location().String(),
		RangeStart:     start,
		RangeEnd:       end,
		Days:           []dayDTO{},
		Upcoming:       []eventDTO{},
	}
	if cal.Mode() == agenda.ModeMonthly {
		resp.Month = cal.MonthCursor().Format(monthLayout)
	}

	for _, cell := range cal.Cells() {
		colors := make([]string, len(cell.Indicators.Events))
		for i, e := range cell.Indicators.Events {
			colors[i] = e.DisplayColor()
		}
		resp.Days = append(resp.Days, dayDTO{
			Date:       cell.Day.Format(dateLayout),
			Weekday:    cell.Day.Format("Mon"),
			InMonth:    cell.InMonth,
			Today:      cell.Today,
			Selected:   cell.Selected,
			Indicators: colors,
			Overflow:   cell.Indicators.Overflow,
			Total:      cell.Indicators.Total,
		})
	}

	for _, e := range cal.Upcoming() {
		resp.Upcoming = append(resp.Upcoming, newEventDTO(e))
	}
	return resp
}

func newEventDTO(e core.Event) eventDTO {
	return eventDTO{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Calendar:    e.Calendar.Name,
		Color:       e.DisplayColor(),
		URL:         e.URL,
		AvatarURLs:  e.AvatarURLs,
		Start:       e.Start,
		End:         e.End,
		AllDay:      e.IsAllDay,
	}
}
