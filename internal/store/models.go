package store

import "time"

// BufferMinutes holds the pre/post meeting buffer durations in minutes.
type BufferMinutes struct {
	BeforeEvent int `json:"beforeEvent,omitempty"`
	AfterEvent  int `json:"afterEvent,omitempty"`
}

// PreferredTimeRange is one preferred scheduling window attached to an event
// or declared as a category default. DayOfWeek uses ISO numbering (1-7, 0
// means any day); times are "HH:mm" wall clock in the owner's timezone.
type PreferredTimeRange struct {
	ID        string `json:"id"`
	EventID   string `json:"eventId"`
	UserID    string `json:"userId"`
	DayOfWeek int    `json:"dayOfWeek,omitempty"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// CopyFlags is the per-attribute inheritance permission set shared by events,
// categories, and user preferences. A true flag permits that attribute to be
// pulled from the flag's owner when defaults are resolved.
type CopyFlags struct {
	Availability      bool `json:"copyAvailability"`
	TimePreference    bool `json:"copyTimePreference"`
	PriorityLevel     bool `json:"copyPriorityLevel"`
	IsBreak           bool `json:"copyIsBreak"`
	Modifiable        bool `json:"copyModifiable"`
	IsMeeting         bool `json:"copyIsMeeting"`
	IsExternalMeeting bool `json:"copyIsExternalMeeting"`
	Duration          bool `json:"copyDuration"`
	Categories        bool `json:"copyCategories"`
	Reminders         bool `json:"copyReminders"`
	TimeBlocking      bool `json:"copyTimeBlocking"`
	Color             bool `json:"copyColor"`
}

// UserModifiedFlags mirrors CopyFlags: a true flag records an explicit user
// edit of that attribute, which blocks any inherited value for it.
type UserModifiedFlags struct {
	Availability      bool `json:"userModifiedAvailability"`
	TimePreference    bool `json:"userModifiedTimePreference"`
	PriorityLevel     bool `json:"userModifiedPriorityLevel"`
	IsBreak           bool `json:"userModifiedIsBreak"`
	Modifiable        bool `json:"userModifiedModifiable"`
	IsMeeting         bool `json:"userModifiedIsMeeting"`
	IsExternalMeeting bool `json:"userModifiedIsExternalMeeting"`
	Duration          bool `json:"userModifiedDuration"`
	Reminders         bool `json:"userModifiedReminders"`
	TimeBlocking      bool `json:"userModifiedTimeBlocking"`
	Color             bool `json:"userModifiedColor"`
}

// Event is a calendar occurrence. StartDate/EndDate are wall-clock strings
// (seconds precision, no offset) interpreted in Timezone.
type Event struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	CalendarID string `json:"calendarId"`

	Summary string `json:"summary,omitempty"`
	Notes   string `json:"notes,omitempty"`

	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Timezone  string `json:"timezone"`
	Duration  int    `json:"duration,omitempty"`
	AllDay    bool   `json:"allDay"`

	Priority     int    `json:"priority"`
	Transparency string `json:"transparency,omitempty"`

	Modifiable                  bool `json:"modifiable"`
	IsBreak                     bool `json:"isBreak"`
	IsMeeting                   bool `json:"isMeeting"`
	IsExternalMeeting           bool `json:"isExternalMeeting"`
	IsMeetingModifiable         bool `json:"isMeetingModifiable"`
	IsExternalMeetingModifiable bool `json:"isExternalMeetingModifiable"`
	IsPreEvent                  bool `json:"isPreEvent"`
	IsPostEvent                 bool `json:"isPostEvent"`

	PreEventID       string `json:"preEventId,omitempty"`
	PostEventID      string `json:"postEventId,omitempty"`
	ForEventID       string `json:"forEventId,omitempty"`
	RecurringEventID string `json:"recurringEventId,omitempty"`
	MeetingID        string `json:"meetingId,omitempty"`
	RecurrenceRule   string `json:"recurrenceRule,omitempty"`

	BackgroundColor string `json:"backgroundColor,omitempty"`
	ColorID         string `json:"colorId,omitempty"`

	PreferredDayOfWeek      int                  `json:"preferredDayOfWeek,omitempty"`
	PreferredTime           string               `json:"preferredTime,omitempty"`
	PreferredStartTimeRange string               `json:"preferredStartTimeRange,omitempty"`
	PreferredEndTimeRange   string               `json:"preferredEndTimeRange,omitempty"`
	PreferredTimeRanges     []PreferredTimeRange `json:"preferredTimeRanges,omitempty"`

	TimeBlocking *BufferMinutes `json:"timeBlocking,omitempty"`

	PositiveImpactScore     int    `json:"positiveImpactScore,omitempty"`
	NegativeImpactScore     int    `json:"negativeImpactScore,omitempty"`
	PositiveImpactDayOfWeek int    `json:"positiveImpactDayOfWeek,omitempty"`
	NegativeImpactDayOfWeek int    `json:"negativeImpactDayOfWeek,omitempty"`
	PositiveImpactTime      string `json:"positiveImpactTime,omitempty"`
	NegativeImpactTime      string `json:"negativeImpactTime,omitempty"`

	HardDeadline string `json:"hardDeadline,omitempty"`
	SoftDeadline string `json:"softDeadline,omitempty"`

	DailyTaskList  bool `json:"dailyTaskList"`
	WeeklyTaskList bool `json:"weeklyTaskList"`

	Copy         CopyFlags         `json:"copyFlags"`
	UserModified UserModifiedFlags `json:"userModifiedFlags"`

	// Unlink permanently severs inheritance from the linked previous event.
	Unlink bool `json:"unlink"`

	Method  string `json:"method,omitempty"`
	Deleted bool   `json:"deleted"`
}

// Category is a named classification carrying default attribute values and
// per-attribute copy permissions.
type Category struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`

	Copy CopyFlags `json:"copyFlags"`

	DefaultAvailability              bool                 `json:"defaultAvailability"`
	DefaultPriorityLevel             int                  `json:"defaultPriorityLevel,omitempty"`
	DefaultModifiable                bool                 `json:"defaultModifiable"`
	DefaultIsBreak                   bool                 `json:"defaultIsBreak"`
	DefaultIsMeeting                 bool                 `json:"defaultIsMeeting"`
	DefaultIsExternalMeeting         bool                 `json:"defaultIsExternalMeeting"`
	DefaultMeetingModifiable         bool                 `json:"defaultMeetingModifiable"`
	DefaultExternalMeetingModifiable bool                 `json:"defaultExternalMeetingModifiable"`
	DefaultTimeBlocking              *BufferMinutes       `json:"defaultTimeBlocking,omitempty"`
	DefaultReminders                 []int                `json:"defaultReminders,omitempty"`
	DefaultTimePreference            []PreferredTimeRange `json:"defaultTimePreference,omitempty"`

	Deleted bool `json:"deleted"`
}

// DailyTime declares an "HH:mm" boundary for one ISO weekday (1=Monday).
type DailyTime struct {
	Day     int `json:"day"`
	Hour    int `json:"hour"`
	Minutes int `json:"minutes"`
}

// UserPreference is a user's scheduling configuration and the lowest-priority
// defaults source.
type UserPreference struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	StartTimes []DailyTime `json:"startTimes"`
	EndTimes   []DailyTime `json:"endTimes"`

	MaxWorkLoadPercent  int    `json:"maxWorkLoadPercent"`
	MinNumberOfBreaks   int    `json:"minNumberOfBreaks"`
	BreakLength         int    `json:"breakLength"`
	BreakColor          string `json:"breakColor,omitempty"`
	BackToBackMeetings  bool   `json:"backToBackMeetings"`
	MaxNumberOfMeetings int    `json:"maxNumberOfMeetings"`
	Reminders           []int  `json:"reminders,omitempty"`

	Copy CopyFlags `json:"copyFlags"`

	Deleted bool `json:"deleted"`
}

// Reminder is one minutes-before notification attached to an event.
type Reminder struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	EventID    string `json:"eventId"`
	Minutes    int    `json:"minutes"`
	Timezone   string `json:"timezone,omitempty"`
	UseDefault bool   `json:"useDefault"`
	Deleted    bool   `json:"deleted"`
}

// CategoryEvent associates a category with an event.
type CategoryEvent struct {
	ID         string
	CategoryID string
	EventID    string
	UserID     string
}

// Calendar identifies a user's calendar; the global-primary calendar hosts
// generated break and buffer events.
type Calendar struct {
	ID              string
	UserID          string
	Title           string
	BackgroundColor string
	ColorID         string
	GlobalPrimary   bool
}

// APIToken is a per-client credential for the planning API, stored as a
// bcrypt hash and checked via HTTP basic auth.
type APIToken struct {
	ID         int64
	Label      string
	TokenHash  string
	CreatedAt  time.Time
	RevokedAt  *time.Time
	LastUsedAt *time.Time
}

// PlanningRun is the persisted snapshot of one solver submission so the
// out-of-band callback can be correlated with the prepared payload.
type PlanningRun struct {
	ID          string
	HostID      string
	FileKey     string
	Status      string
	SubmitError string
	CreatedAt   time.Time
}

// PlanningRun status values.
const (
	RunStatusSubmitted = "submitted"
	RunStatusFailed    = "failed"
)
