package outlook

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	abstractions "github.com/microsoft/kiota-abstractions-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	"github.com/pulsedash/dashcal/internal/core"
)

// FetchEvents retrieves events from the user's calendars matching the given options.
func (o *OutlookAdapter) FetchEvents(ctx context.Context, opts core.FetchOptions) ([]core.Event, error) {
	var results []core.Event

	calendarIDs := opts.CalendarIDs
	if len(calendarIDs) == 0 {
		for calID := range o.calendars {
			calendarIDs = append(calendarIDs, calID)
		}
	}

	seen := make(map[string]bool)
	for _, calID := range calendarIDs {
		if _, exists := o.calendars[calID]; !exists {
			continue
		}
		events, err := o.fetchEventsFromCalendar(ctx, calID, opts)
		if err != nil {
			log.Warn("skipping calendar", "provider", o.id, "calendar", calID, "err", err)
			continue
		}
		for _, e := range events {
			if e.uid != "" {
				if seen[e.uid] {
					continue
				}
				seen[e.uid] = true
			}
			results = append(results, e.Event)
		}
	}

	core.SortByStart(results)
	return results, nil
}

type fetched struct {
	core.Event
	uid string
}

func (o *OutlookAdapter) fetchEventsFromCalendar(ctx context.Context, calendarID string, opts core.FetchOptions) ([]fetched, error) {
	startStr := opts.Start.UTC().Format(time.RFC3339)
	endStr := opts.End.UTC().Format(time.RFC3339)
	selectFields := []string{
		"id", "iCalUId", "subject", "bodyPreview", "start", "end", "location",
		"isAllDay", "webLink", "isCancelled", "attendees",
	}
	orderBy := []string{"start/dateTime"}
	top := int32(100)

	headers := abstractions.NewRequestHeaders()
	headers.Add("Prefer", `outlook.timezone="UTC"`)

	var result models.EventCollectionResponseable
	var err error

	if calendarID == fallbackCalendarID {
		config := &users.ItemCalendarViewRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.ItemCalendarViewRequestBuilderGetQueryParameters{
				StartDateTime: &startStr,
				EndDateTime:   &endStr,
				Select:        selectFields,
				Orderby:       orderBy,
				Top:           &top,
			},
			Headers: headers,
		}
		result, err = o.client.Me().CalendarView().Get(ctx, config)
	} else {
		config := &users.ItemCalendarsItemCalendarViewRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.ItemCalendarsItemCalendarViewRequestBuilderGetQueryParameters{
				StartDateTime: &startStr,
				EndDateTime:   &endStr,
				Select:        selectFields,
				Orderby:       orderBy,
				Top:           &top,
			},
			Headers: headers,
		}
		result, err = o.client.Me().Calendars().ByCalendarId(calendarID).CalendarView().Get(ctx, config)
	}

	if err != nil {
		return nil, fmt.Errorf("fetch calendar view: %w", err)
	}

	cal := core.Calendar{ID: calendarID, Name: o.calendars[calendarID]}
	color := o.colors[calendarID]
	var results []fetched

	pageIterator, err := msgraphcore.NewPageIterator[models.Eventable](
		result,
		o.client.GetAdapter(),
		models.CreateEventCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return nil, fmt.Errorf("create page iterator: %w", err)
	}

	err = pageIterator.Iterate(ctx, func(item models.Eventable) bool {
		if derefBool(item.GetIsCancelled()) {
			return true
		}

		event := parseGraphEvent(o.ID(), item, cal, color)
		if !event.HasStart() {
			log.Warn("event without start", "provider", o.id, "id", event.ID)
		}
		if !opts.Keep(event) {
			return true
		}

		results = append(results, fetched{Event: event, uid: derefStr(item.GetICalUId())})
		return true
	})

	if err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return results, nil
}

// parseGraphEvent converts a Graph SDK event into our unified core.Event.
func parseGraphEvent(providerID string, item models.Eventable, cal core.Calendar, color string) core.Event {
	isAllDay := derefBool(item.GetIsAllDay())
	startTime := parseSDKDateTime(item.GetStart())
	endTime := parseSDKDateTime(item.GetEnd())
	if isAllDay {
		// all-day bounds are dates; keep them on the viewer's calendar day
		startTime = asLocalDate(startTime)
		endTime = asLocalDate(endTime)
	}

	location := ""
	if loc := item.GetLocation(); loc != nil {
		location = derefStr(loc.GetDisplayName())
	}

	return core.Event{
		ID:          derefStr(item.GetId()),
		ProviderID:  providerID,
		Calendar:    cal,
		Title:       derefStr(item.GetSubject()),
		Description: derefStr(item.GetBodyPreview()),
		Location:    location,
		Color:       color,
		URL:         derefStr(item.GetWebLink()),
		Start:       startTime,
		End:         endTime,
		IsAllDay:    isAllDay,
	}
}

// parseSDKDateTime converts a Graph SDK DateTimeTimeZone to time.Time.
// Times are in UTC because we set the Prefer: outlook.timezone="UTC" header.
func parseSDKDateTime(dt models.DateTimeTimeZoneable) time.Time {
	if dt == nil {
		return time.Time{}
	}
	dateTimeStr := dt.GetDateTime()
	if dateTimeStr == nil {
		return time.Time{}
	}
	layouts := []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, *dateTimeStr); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func asLocalDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
