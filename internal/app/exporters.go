package app

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

// CalendarOptions controls how meetings are laid out in an ICS feed.
type CalendarOptions struct {
	Location        *time.Location
	PeriodStarts    []string
	PeriodMinutes   int
	ProductID       string
	Now             time.Time
	ReminderMinutes int
}

// ProjectETag fingerprints the content of a snapshot. The timestamp is left
// out so an unchanged roster keeps its tag.
func ProjectETag(snap roster.Snapshot) (string, error) {
	snap.Timestamp = 0
	data, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`, nil
}

// ExportProject serves the project document as a download
// Supports If-None-Match against the content ETag
func (s *Server) ExportProject(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	etag, err := ProjectETag(s.roster.Store.Snapshot())
	if err != nil {
		s.logger.Error("fingerprinting project failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrFailedToGenerateJSON)
		return
	}
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := s.roster.Store.Export()
	if err != nil {
		s.logger.Error("exporting project failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrFailedToGenerateJSON)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", roster.ExportFileName))
	if _, err := w.Write(data); err != nil {
		s.logger.Error("writing project export failed", "error", err)
	}
}

// GenerateTeachersCSV writes one row per subject assignment of every teacher.
// Teachers without assignments still get a row.
func GenerateTeachersCSV(w http.ResponseWriter, teachers []roster.Teacher) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=teachers.csv")

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"ID", "氏名", "学年", "役割", "教科", "担当クラス", "会議"})

	for _, t := range teachers {
		base := []string{
			t.ID,
			t.Name,
			strconv.Itoa(t.Grade),
			t.Role.Text(),
		}
		meetings := strings.Join(t.Meetings, ";")

		if len(t.Subjects) == 0 {
			_ = cw.Write(append(base, "", "", meetings))
			continue
		}
		for _, a := range t.Subjects {
			row := append(append([]string(nil), base...), a.Subject, classNames(a.Classes), meetings)
			_ = cw.Write(row)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("writing teachers CSV failed", "error", err)
	}
}

func classNames(refs []roster.ClassRef) string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		switch {
		case ref.ClassName != "":
			names = append(names, ref.ClassName)
		case ref.ClassID != "":
			names = append(names, ref.ClassID)
		}
	}
	return strings.Join(names, ";")
}

// GenerateMeetingsICS generates an iCalendar download with one weekly
// recurring event per meeting and an optional reminder
func GenerateMeetingsICS(w http.ResponseWriter, meetings []roster.Meeting, opts CalendarOptions) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=meetings.ics")

	fmt.Fprintln(w, "BEGIN:VCALENDAR")
	fmt.Fprintln(w, "VERSION:2.0")
	fmt.Fprintf(w, "PRODID:%s\n", opts.ProductID)
	fmt.Fprintf(w, "X-WR-CALNAME:%s\n", ICSCalendarName)
	fmt.Fprintf(w, "X-WR-TIMEZONE:%s\n", opts.Location.String())
	fmt.Fprintln(w, "CALSCALE:GREGORIAN")

	writeMeetingEvents(w, meetings, opts, opts.ReminderMinutes > 0)

	fmt.Fprintln(w, "END:VCALENDAR")
}

// GenerateSubscriptionICS generates the meeting calendar as a subscription feed.
// Unlike GenerateMeetingsICS it is served inline, carries METHOD:PUBLISH and a
// refresh interval, and has no VALARM blocks.
func GenerateSubscriptionICS(w http.ResponseWriter, meetings []roster.Meeting, opts CalendarOptions) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")

	fmt.Fprintln(w, "BEGIN:VCALENDAR")
	fmt.Fprintln(w, "VERSION:2.0")
	fmt.Fprintf(w, "PRODID:%s\n", opts.ProductID)
	fmt.Fprintln(w, "METHOD:PUBLISH")
	fmt.Fprintf(w, "X-WR-CALNAME:%s\n", ICSCalendarName)
	fmt.Fprintf(w, "X-WR-TIMEZONE:%s\n", opts.Location.String())
	fmt.Fprintln(w, "CALSCALE:GREGORIAN")
	fmt.Fprintln(w, "X-PUBLISHED-TTL:PT1H")

	writeMeetingEvents(w, meetings, opts, false)

	fmt.Fprintln(w, "END:VCALENDAR")
}

func writeMeetingEvents(w io.Writer, meetings []roster.Meeting, opts CalendarOptions, alarm bool) {
	tzid := opts.Location.String()
	stamp := opts.Now.UTC().Format("20060102T150405Z")
	holidays := newHolidayCalendar()

	for _, m := range meetings {
		start, ok := firstOccurrence(m, opts)
		if !ok {
			continue
		}
		end := start.Add(time.Duration(opts.PeriodMinutes) * time.Minute)

		fmt.Fprintln(w, "BEGIN:VEVENT")
		fmt.Fprintf(w, "UID:%s\n", MeetingUID(m.Name))
		fmt.Fprintf(w, "DTSTAMP:%s\n", stamp)
		fmt.Fprintf(w, "DTSTART;TZID=%s:%s\n", tzid, start.Format("20060102T150405"))
		fmt.Fprintf(w, "DTEND;TZID=%s:%s\n", tzid, end.Format("20060102T150405"))
		fmt.Fprintf(w, "RRULE:FREQ=WEEKLY;BYDAY=%s\n", ICSWeekdays[m.Day])
		horizon := start.AddDate(0, 0, ICSHorizonDays)
		for d := start; d.Before(horizon); d = d.AddDate(0, 0, 7) {
			if holidays.contains(d) {
				fmt.Fprintf(w, "EXDATE;TZID=%s:%s\n", tzid, d.Format("20060102T150405"))
			}
		}
		fmt.Fprintf(w, "SUMMARY:%s\n", escapeText(m.Name))
		fmt.Fprintf(w, "DESCRIPTION:%s\n", escapeText(fmt.Sprintf("%s曜日 %d限", weekdayKanji[m.Day], m.Period)))

		if alarm {
			AddAlarm(w, opts.ReminderMinutes, m.Name)
		}

		fmt.Fprintln(w, "END:VEVENT")
	}
}

var weekdayKanji = map[int]string{1: "月", 2: "火", 3: "水", 4: "木", 5: "金", 6: "土", 7: "日"}

// firstOccurrence returns the start of the first session of m on or after
// the day of opts.Now. Meetings whose period has no configured start time
// are skipped.
func firstOccurrence(m roster.Meeting, opts CalendarOptions) (time.Time, bool) {
	if m.Period < 1 || m.Period > len(opts.PeriodStarts) {
		return time.Time{}, false
	}
	if _, ok := ICSWeekdays[m.Day]; !ok {
		return time.Time{}, false
	}
	hm, err := time.Parse("15:04", opts.PeriodStarts[m.Period-1])
	if err != nil {
		return time.Time{}, false
	}

	now := opts.Now.In(opts.Location)
	target := time.Weekday(m.Day % 7)
	offset := (int(target) - int(now.Weekday()) + 7) % 7
	day := now.AddDate(0, 0, offset)
	return time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, opts.Location), true
}

// MeetingUID derives a stable event UID from the meeting name
func MeetingUID(name string) string {
	sum := blake2b.Sum256([]byte(name))
	return fmt.Sprintf("%s@%s", hex.EncodeToString(sum[:8]), ICSUIDDomain)
}

// AddAlarm adds a display reminder minutesBefore the event start
func AddAlarm(w io.Writer, minutesBefore int, description string) {
	if minutesBefore <= 0 {
		return
	}

	days := minutesBefore / (24 * 60)
	hours := minutesBefore % (24 * 60) / 60
	minutes := minutesBefore % 60

	fmt.Fprintln(w, "BEGIN:VALARM")
	fmt.Fprintln(w, "ACTION:DISPLAY")
	fmt.Fprintf(w, "DESCRIPTION:リマインダー: %s\n", escapeText(description))
	fmt.Fprintf(w, "TRIGGER:-P%dDT%dH%dM\n", days, hours, minutes)
	fmt.Fprintln(w, "END:VALARM")
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

func escapeText(s string) string {
	return icsEscaper.Replace(s)
}

// holidayCalendar caches holiday tables per year.
type holidayCalendar map[int]map[string]string

func newHolidayCalendar() holidayCalendar {
	return make(holidayCalendar)
}

func (c holidayCalendar) contains(t time.Time) bool {
	table, ok := c[t.Year()]
	if !ok {
		table = GetJapaneseHolidays(t.Year())
		c[t.Year()] = table
	}
	_, ok = table[formatDateFromTime(t)]
	return ok
}
