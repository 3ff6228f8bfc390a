package app

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klabast/wb-services/timetable-roster/internal/config"
	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

func testCalendarOptions(t *testing.T, reminder int) CalendarOptions {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	cal := config.NewDefaultConfig().Calendar
	return CalendarOptions{
		Location:        loc,
		PeriodStarts:    cal.PeriodStarts,
		PeriodMinutes:   cal.PeriodMinutes,
		ProductID:       cal.ProductID,
		Now:             time.Date(2025, 4, 7, 8, 30, 0, 0, loc),
		ReminderMinutes: reminder,
	}
}

func TestGenerateMeetingsICS(t *testing.T) {
	meetings := []roster.Meeting{
		{Name: "職員会議", Day: 1, Period: 6},
		{Name: "学年会", Day: 3, Period: 7},
	}

	w := httptest.NewRecorder()
	GenerateMeetingsICS(w, meetings, testCalendarOptions(t, 30))

	resp := w.Result()
	body := w.Body.String()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/calendar") {
		t.Errorf("Expected Content-Type text/calendar, got %s", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Expected attachment Content-Disposition, got %q", cd)
	}

	requiredFields := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + config.DefaultProductID,
		"X-WR-CALNAME:" + ICSCalendarName,
		"X-WR-TIMEZONE:Asia/Tokyo",
		"DTSTART;TZID=Asia/Tokyo:20250407T143000",
		"DTEND;TZID=Asia/Tokyo:20250407T152000",
		"RRULE:FREQ=WEEKLY;BYDAY=MO",
		"DTSTART;TZID=Asia/Tokyo:20250409T153000",
		"RRULE:FREQ=WEEKLY;BYDAY=WE",
		"SUMMARY:職員会議",
		"SUMMARY:学年会",
		"END:VCALENDAR",
	}
	for _, field := range requiredFields {
		if !strings.Contains(body, field) {
			t.Errorf("ICS output missing required field: %s", field)
		}
	}

	if got := strings.Count(body, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("Expected 2 events, got %d", got)
	}
	if got := strings.Count(body, "BEGIN:VALARM"); got != 2 {
		t.Errorf("Expected 2 alarms, got %d", got)
	}
	if !strings.Contains(body, "TRIGGER:-P0DT0H30M") {
		t.Error("Missing 30 minute reminder trigger")
	}
}

func TestGenerateMeetingsICS_HolidayExclusions(t *testing.T) {
	meetings := []roster.Meeting{{Name: "職員会議", Day: 1, Period: 6}}

	w := httptest.NewRecorder()
	GenerateMeetingsICS(w, meetings, testCalendarOptions(t, 0))
	body := w.Body.String()

	// Children's Day and Marine Day 2025 fall on Mondays.
	for _, exdate := range []string{
		"EXDATE;TZID=Asia/Tokyo:20250505T143000",
		"EXDATE;TZID=Asia/Tokyo:20250721T143000",
	} {
		if !strings.Contains(body, exdate) {
			t.Errorf("Missing holiday exclusion %s", exdate)
		}
	}
	if strings.Contains(body, "EXDATE;TZID=Asia/Tokyo:20250414T143000") {
		t.Error("Ordinary Monday should not be excluded")
	}
	if strings.Contains(body, "BEGIN:VALARM") {
		t.Error("No alarm expected without a reminder")
	}
}

func TestGenerateMeetingsICS_SkipsUnschedulable(t *testing.T) {
	opts := testCalendarOptions(t, 0)
	opts.PeriodStarts = opts.PeriodStarts[:6]

	meetings := []roster.Meeting{
		{Name: "職員会議", Day: 1, Period: 6},
		{Name: "研修", Day: 2, Period: 7},
	}

	w := httptest.NewRecorder()
	GenerateMeetingsICS(w, meetings, opts)
	body := w.Body.String()

	if got := strings.Count(body, "BEGIN:VEVENT"); got != 1 {
		t.Errorf("Expected 1 event, got %d", got)
	}
	if strings.Contains(body, "SUMMARY:研修") {
		t.Error("Meeting without a period start time should be skipped")
	}
}

func TestAddAlarm(t *testing.T) {
	tests := []struct {
		name          string
		minutesBefore int
		wantTrigger   string
	}{
		{"half an hour", 30, "TRIGGER:-P0DT0H30M"},
		{"one day and an hour", 25 * 60, "TRIGGER:-P1DT1H0M"},
		{"mixed", 2*24*60 + 90, "TRIGGER:-P2DT1H30M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			AddAlarm(&buf, tt.minutesBefore, "職員会議")
			output := buf.String()

			if !strings.Contains(output, "BEGIN:VALARM") || !strings.Contains(output, "END:VALARM") {
				t.Error("Missing VALARM block")
			}
			if !strings.Contains(output, tt.wantTrigger) {
				t.Errorf("Expected trigger %s, got: %s", tt.wantTrigger, output)
			}
			if !strings.Contains(output, "DESCRIPTION:リマインダー: 職員会議") {
				t.Error("Missing reminder description")
			}
		})
	}

	var buf bytes.Buffer
	AddAlarm(&buf, 0, "職員会議")
	if buf.Len() != 0 {
		t.Errorf("Expected no alarm for zero minutes, got: %s", buf.String())
	}
}

func TestMeetingUID(t *testing.T) {
	a := MeetingUID("職員会議")
	if a != MeetingUID("職員会議") {
		t.Error("UID should be stable for the same name")
	}
	if a == MeetingUID("学年会") {
		t.Error("Different meetings should have different UIDs")
	}
	if !strings.HasSuffix(a, "@"+ICSUIDDomain) {
		t.Errorf("UID %q should end with @%s", a, ICSUIDDomain)
	}
}

func TestEscapeText(t *testing.T) {
	got := escapeText("a,b;c\\d\ne")
	want := `a\,b\;c\\d\ne`
	if got != want {
		t.Errorf("escapeText = %q, want %q", got, want)
	}
}

func TestGenerateTeachersCSV(t *testing.T) {
	teachers := []roster.Teacher{
		{
			ID:    "1",
			Name:  "田中",
			Grade: 2,
			Role:  roster.RoleHomeroom,
			Subjects: []roster.SubjectAssignment{
				{Subject: "数学", Classes: []roster.ClassRef{{ClassID: "2-1", ClassName: "2年1組"}, {ClassID: "2-2"}}},
				{Subject: "理科", Classes: []roster.ClassRef{{ClassID: "2-3", ClassName: "2年3組"}}},
			},
			Meetings: []string{"職員会議", "学年会"},
		},
		{ID: "2", Name: "佐藤", Grade: 1, Role: roster.RoleAssistant},
	}

	w := httptest.NewRecorder()
	GenerateTeachersCSV(w, teachers)

	resp := w.Result()
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Errorf("Expected Content-Type text/csv, got %s", ct)
	}

	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected header plus 3 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != "ID,氏名,学年,役割,教科,担当クラス,会議" {
		t.Errorf("unexpected header %v", records[0])
	}

	want := [][]string{
		{"1", "田中", "2", roster.RoleHomeroom.Text(), "数学", "2年1組;2-2", "職員会議;学年会"},
		{"1", "田中", "2", roster.RoleHomeroom.Text(), "理科", "2年3組", "職員会議;学年会"},
		{"2", "佐藤", "1", roster.RoleAssistant.Text(), "", "", ""},
	}
	for i, row := range want {
		if strings.Join(records[i+1], "|") != strings.Join(row, "|") {
			t.Errorf("row %d = %v, want %v", i+1, records[i+1], row)
		}
	}
}

func TestProjectETag(t *testing.T) {
	snap := roster.Snapshot{
		Classes:   []roster.ClassRoom{roster.NewClass(1, 1)},
		Timestamp: 1,
	}

	a, err := ProjectETag(snap)
	if err != nil {
		t.Fatalf("ProjectETag: %v", err)
	}
	snap.Timestamp = 2
	b, err := ProjectETag(snap)
	if err != nil {
		t.Fatalf("ProjectETag: %v", err)
	}
	if a != b {
		t.Error("ETag should not depend on the timestamp")
	}

	snap.Classes = append(snap.Classes, roster.NewClass(1, 2))
	c, _ := ProjectETag(snap)
	if c == a {
		t.Error("ETag should change with content")
	}
	if !strings.HasPrefix(a, `"`) || !strings.HasSuffix(a, `"`) {
		t.Errorf("ETag %s should be quoted", a)
	}
}
