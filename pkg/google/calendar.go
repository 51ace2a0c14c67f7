package google

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarEvent 待创建的日历事件
type CalendarEvent struct {
	Summary     string
	Description string
	Start       time.Time
	Duration    time.Duration
	TimeZone    string
	Attendees   []string
}

// CalendarClient Google Calendar 封装
type CalendarClient struct {
	svc        *calendar.Service
	calendarID string
}

// NewCalendarClient 创建 Calendar 客户端；calendarID 为空时使用 primary
func NewCalendarClient(ctx context.Context, creds CredentialProvider, calendarID string) (*CalendarClient, error) {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(creds))
	if err != nil {
		return nil, fmt.Errorf("初始化 Calendar 服务失败: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &CalendarClient{svc: svc, calendarID: calendarID}, nil
}

// CreateEvent 创建事件并通知参会人，返回事件 ID
func (c *CalendarClient) CreateEvent(ctx context.Context, ev CalendarEvent) (string, error) {
	end := ev.Start.Add(ev.Duration)
	e := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: ev.TimeZone},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	for _, email := range ev.Attendees {
		if email != "" {
			e.Attendees = append(e.Attendees, &calendar.EventAttendee{Email: email})
		}
	}

	created, err := c.svc.Events.Insert(c.calendarID, e).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("创建日历事件失败: %w", err)
	}
	return created.Id, nil
}

// DeleteEvent 删除事件
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(c.calendarID, eventID).SendUpdates("all").Context(ctx).Do(); err != nil {
		return fmt.Errorf("删除日历事件失败: %w", err)
	}
	return nil
}
