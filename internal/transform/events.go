package transform

import (
	"errors"
	"sort"
	"strings"
	"time"

	"datalake/internal/model"
)

var errMissingUserID = errors.New("missing userId")

// FilterPlays keeps only NextSong events, preserving input order. Other pages
// are dropped silently.
func FilterPlays(evs []model.EventRecord) []model.EventRecord {
	out := make([]model.EventRecord, 0, len(evs))
	for _, e := range evs {
		if e.IsPlay() {
			out = append(out, e)
		}
	}
	return out
}

// DeriveUsersTable projects filtered events onto users_table rows. When a
// user_id repeats, the last occurrence in input order wins, so the most
// recent level is kept. The result is sorted ascending by user_id. Events
// without a userId are reported and skipped.
func DeriveUsersTable(evs []model.EventRecord, report model.Reporter) []model.User {
	rows := make([]model.User, 0, len(evs))
	for i, e := range evs {
		id := strings.TrimSpace(e.UserID.String())
		if id == "" {
			report.Report(&model.RecordError{Stage: model.UsersTableName, Index: i, Err: errMissingUserID})
			continue
		}
		rows = append(rows, model.User{
			UserID:    id,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Gender:    e.Gender,
			Level:     e.Level,
		})
	}

	rows = DeDup(rows, func(u model.User) string { return u.UserID }, KeepLast)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows
}

// TimedEvent pairs a filtered event with its derived timestamp.
type TimedEvent struct {
	model.EventRecord
	At Timestamp
}

// StampEvents derives the timestamp of every event exactly once. Events whose
// ts cannot be derived are reported and dropped; order is preserved.
func StampEvents(evs []model.EventRecord, loc *time.Location, report model.Reporter) []TimedEvent {
	out := make([]TimedEvent, 0, len(evs))
	for i, e := range evs {
		at, err := DeriveTimestamp(e.TS, loc)
		if err != nil {
			report.Report(&model.RecordError{Stage: "timestamp", Index: i, Err: err})
			continue
		}
		out = append(out, TimedEvent{EventRecord: e, At: at})
	}
	return out
}

// TimeRowOf breaks a timestamp into its time_table columns.
func TimeRowOf(ts Timestamp) model.TimeRow {
	t := ts.Instant
	_, week := t.ISOWeek()
	return model.TimeRow{
		StartTime: ts.Datetime,
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   isoWeekday(t.Weekday()),
	}
}

// isoWeekday maps time.Weekday (Sunday=0) to ISO-8601 (Monday=1 ... Sunday=7).
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// DeriveTimeTable emits one time_table row per distinct start_time, sorted
// ascending by start_time. The layout sorts lexicographically in time order.
func DeriveTimeTable(evs []TimedEvent) []model.TimeRow {
	rows := make([]model.TimeRow, 0, len(evs))
	for _, e := range evs {
		rows = append(rows, TimeRowOf(e.At))
	}

	rows = DeDup(rows, func(r model.TimeRow) string { return r.StartTime }, KeepFirst)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].StartTime < rows[j].StartTime })
	return rows
}
