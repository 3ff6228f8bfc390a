package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klabast/wb-services/timetable-roster/internal/roster"
	"github.com/klabast/wb-services/timetable-roster/internal/storage"
)

func newTestServer(t *testing.T, edit bool) (http.Handler, *roster.Roster) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := roster.Open(storage.NewAdapter(storage.NewMemoryBackend(0), logger), roster.WithLogger(logger))
	s := NewServer(r, Options{
		EditMode:  edit,
		Logger:    logger,
		IndexHTML: []byte("<html>roster</html>"),
		Now:       func() time.Time { return time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC) },
	})
	return s.Routes(), r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	if w.Code != code {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, code, w.Body.String())
	}
}

func responseStatus(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	decode(t, w, &body)
	s, _ := body["status"].(string)
	return s
}

const teacherJSON = `{"name":"田中","grade":2,"role":"homeroom",
	"subjects":[{"subject":"数学","classes":[{"classId":"2-1"}]}],
	"meetings":["職員会議"]}`

func TestServeIndex(t *testing.T) {
	h, _ := newTestServer(t, false)

	w := do(t, h, http.MethodGet, "/", "")
	wantStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "roster") {
		t.Errorf("unexpected index body %q", w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/missing", "")
	wantStatus(t, w, http.StatusNotFound)
}

func TestGetConfig(t *testing.T) {
	h, _ := newTestServer(t, true)

	w := do(t, h, http.MethodGet, "/api/config", "")
	wantStatus(t, w, http.StatusOK)

	var cfg struct {
		EditMode          bool              `json:"editMode"`
		MaxGrade          int               `json:"maxGrade"`
		TargetWeeklyHours int               `json:"targetWeeklyHours"`
		HoursSubjects     []hoursSubject    `json:"hoursSubjects"`
		Holidays          map[string]string `json:"holidays"`
	}
	decode(t, w, &cfg)

	if !cfg.EditMode {
		t.Error("editMode should be true")
	}
	if cfg.MaxGrade != roster.MaxGrade || cfg.TargetWeeklyHours != roster.TargetWeeklyHours {
		t.Errorf("unexpected limits %+v", cfg)
	}
	if len(cfg.HoursSubjects) != len(roster.HoursSubjects) {
		t.Errorf("hoursSubjects = %d, want %d", len(cfg.HoursSubjects), len(roster.HoursSubjects))
	}
	if cfg.Holidays["2025-01-13"] != "成人の日" {
		t.Error("holidays should cover the current year")
	}
}

func TestMutationsRequireEditMode(t *testing.T) {
	h, r := newTestServer(t, false)

	paths := []string{
		"/api/teachers/add",
		"/api/classes/init-defaults",
		"/api/subjects/add",
		"/api/meetings/reset",
		"/api/special-support/hours",
		"/api/project/import",
		"/api/project/reset",
		"/api/project/save",
		"/api/project/reload",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			w := do(t, h, http.MethodPost, path, "{}")
			wantStatus(t, w, http.StatusForbidden)
			if !strings.Contains(w.Body.String(), ErrEditModeDisabled) {
				t.Errorf("unexpected body %s", w.Body.String())
			}
		})
	}

	if n := len(r.Store.Classes()); n != 0 {
		t.Errorf("serve mode changed the roster: %d classes", n)
	}
}

func TestMutationsRequirePost(t *testing.T) {
	h, _ := newTestServer(t, true)

	w := do(t, h, http.MethodGet, "/api/teachers/add", "")
	wantStatus(t, w, http.StatusMethodNotAllowed)

	w = do(t, h, http.MethodDelete, "/api/special-support/hours", "")
	wantStatus(t, w, http.StatusMethodNotAllowed)
}

func TestTeacherEndpoints(t *testing.T) {
	h, r := newTestServer(t, true)

	w := do(t, h, http.MethodPost, "/api/teachers/add", teacherJSON)
	wantStatus(t, w, http.StatusOK)
	var added struct {
		Status  string         `json:"status"`
		Teacher roster.Teacher `json:"teacher"`
	}
	decode(t, w, &added)
	if added.Status != StatusOK || added.Teacher.ID == "" {
		t.Fatalf("unexpected response %+v", added)
	}
	if added.Teacher.RoleText != roster.RoleHomeroom.Text() {
		t.Errorf("roleText = %q", added.Teacher.RoleText)
	}

	w = do(t, h, http.MethodPost, "/api/teachers/add", `{"name":"","grade":9,"role":"boss"}`)
	wantStatus(t, w, http.StatusBadRequest)

	w = do(t, h, http.MethodPost, "/api/teachers/add", `not json`)
	wantStatus(t, w, http.StatusBadRequest)

	update := `{"index":0,"teacher":` + strings.Replace(teacherJSON, "田中", "鈴木", 1) + `}`
	w = do(t, h, http.MethodPost, "/api/teachers/update", update)
	wantStatus(t, w, http.StatusOK)
	if got := r.Store.Teachers()[0].Name; got != "鈴木" {
		t.Errorf("name after update = %q", got)
	}

	w = do(t, h, http.MethodPost, "/api/teachers/update", `{"index":4,"teacher":`+teacherJSON+`}`)
	wantStatus(t, w, http.StatusBadRequest)

	w = do(t, h, http.MethodPost, "/api/teachers/delete", `{"index":5}`)
	wantStatus(t, w, http.StatusOK)
	if s := responseStatus(t, w); s != StatusUnchanged {
		t.Errorf("status = %q, want %q", s, StatusUnchanged)
	}

	w = do(t, h, http.MethodPost, "/api/teachers/delete", `{"index":0}`)
	wantStatus(t, w, http.StatusOK)
	if s := responseStatus(t, w); s != StatusOK {
		t.Errorf("status = %q, want %q", s, StatusOK)
	}

	w = do(t, h, http.MethodGet, "/api/teachers", "")
	var teachers []roster.Teacher
	decode(t, w, &teachers)
	if len(teachers) != 0 {
		t.Errorf("teachers = %d, want 0", len(teachers))
	}
}

func TestClassEndpoints(t *testing.T) {
	h, r := newTestServer(t, true)

	w := do(t, h, http.MethodPost, "/api/classes/init-defaults", "")
	wantStatus(t, w, http.StatusOK)
	want := roster.DefaultGrades * roster.ClassesPerGrade
	if n := len(r.Store.Classes()); n != want {
		t.Fatalf("classes = %d, want %d", n, want)
	}

	var classes []roster.ClassRoom
	w = do(t, h, http.MethodGet, "/api/classes?grade=2", "")
	wantStatus(t, w, http.StatusOK)
	decode(t, w, &classes)
	if len(classes) != roster.ClassesPerGrade {
		t.Errorf("grade 2 classes = %d, want %d", len(classes), roster.ClassesPerGrade)
	}

	w = do(t, h, http.MethodGet, "/api/classes?grade=x", "")
	wantStatus(t, w, http.StatusBadRequest)

	w = do(t, h, http.MethodPost, "/api/classes/toggle-active", `{"id":"3-15"}`)
	wantStatus(t, w, http.StatusOK)
	w = do(t, h, http.MethodGet, "/api/classes?active=true", "")
	decode(t, w, &classes)
	if len(classes) != want-1 {
		t.Errorf("active classes = %d, want %d", len(classes), want-1)
	}

	w = do(t, h, http.MethodPost, "/api/classes/delete-inactive", "")
	wantStatus(t, w, http.StatusOK)
	if n := len(r.Store.Classes()); n != want-1 {
		t.Errorf("classes after purge = %d, want %d", n, want-1)
	}

	w = do(t, h, http.MethodPost, "/api/classes/toggle-type", `{"id":"9-9"}`)
	wantStatus(t, w, http.StatusOK)
	if s := responseStatus(t, w); s != StatusUnchanged {
		t.Errorf("unknown class status = %q, want %q", s, StatusUnchanged)
	}

	w = do(t, h, http.MethodPost, "/api/classes/bulk-special-support", `{"grade":7}`)
	wantStatus(t, w, http.StatusBadRequest)

	w = do(t, h, http.MethodPost, "/api/classes/bulk-special-support", `{"grade":1}`)
	wantStatus(t, w, http.StatusOK)
	w = do(t, h, http.MethodGet, "/api/special-support/classes", "")
	decode(t, w, &classes)
	if len(classes) != roster.ClassesPerGrade {
		t.Errorf("special support classes = %d, want %d", len(classes), roster.ClassesPerGrade)
	}
}

func TestHoursEndpoints(t *testing.T) {
	h, r := newTestServer(t, true)

	w := do(t, h, http.MethodGet, "/api/special-support/hours?class=1-1", "")
	wantStatus(t, w, http.StatusOK)
	var got struct {
		Saved  bool               `json:"saved"`
		Total  int                `json:"total"`
		Status roster.HoursStatus `json:"status"`
		Hours  roster.HoursConfig `json:"hours"`
	}
	decode(t, w, &got)
	if got.Saved || got.Total != roster.TargetWeeklyHours || got.Status != roster.HoursGood {
		t.Errorf("defaults = %+v", got)
	}

	if _, err := r.Store.AddClass(roster.ClassRoom{ID: "1-1", Name: "1年1組", Grade: 1, Type: roster.ClassSpecialSupport, Active: true}); err != nil {
		t.Fatalf("AddClass: %v", err)
	}

	hours := roster.DefaultHours()
	hours[roster.HoursSubjects[0].Code] += 5
	body, _ := json.Marshal(map[string]any{"classId": "1-1", "hours": hours})
	w = do(t, h, http.MethodPost, "/api/special-support/hours", string(body))
	wantStatus(t, w, http.StatusOK)
	var saved struct {
		Total  int                `json:"total"`
		Status roster.HoursStatus `json:"status"`
	}
	decode(t, w, &saved)
	if saved.Total != roster.TargetWeeklyHours+5 || saved.Status != roster.HoursWarning {
		t.Errorf("saved = %+v", saved)
	}

	w = do(t, h, http.MethodPost, "/api/special-support/hours", `{"classId":"","hours":{}}`)
	wantStatus(t, w, http.StatusBadRequest)
	w = do(t, h, http.MethodPost, "/api/special-support/hours", `{"classId":"1-1"}`)
	wantStatus(t, w, http.StatusBadRequest)
	if cfg, _ := r.Hours.Get("1-1"); roster.Total(cfg) != roster.TargetWeeklyHours+5 {
		t.Errorf("budget without hours replaced the saved one: %v", cfg)
	}

	// Removing the class drops its budget.
	w = do(t, h, http.MethodPost, "/api/classes/delete", `{"id":"1-1"}`)
	wantStatus(t, w, http.StatusOK)

	w = do(t, h, http.MethodGet, "/api/special-support/hours", "")
	var all map[string]roster.HoursConfig
	decode(t, w, &all)
	if len(all) != 0 {
		t.Errorf("hours after class removal = %v", all)
	}
}

func TestMeetingEndpoints(t *testing.T) {
	h, r := newTestServer(t, true)
	first := roster.DefaultMeetings[0].Name

	if _, err := r.Store.AddTeacher(roster.Teacher{
		Name: "田中", Grade: 1, Role: roster.RoleHomeroom,
		Subjects: []roster.SubjectAssignment{{Subject: "国語", Classes: []roster.ClassRef{{ClassID: "1-1"}}}},
		Meetings: []string{first},
	}); err != nil {
		t.Fatalf("AddTeacher: %v", err)
	}

	w := do(t, h, http.MethodPost, "/api/meetings/delete", `{"index":0,"confirm":"wrong"}`)
	wantStatus(t, w, http.StatusBadRequest)

	body, _ := json.Marshal(map[string]any{"index": 0, "confirm": first})
	w = do(t, h, http.MethodPost, "/api/meetings/delete", string(body))
	wantStatus(t, w, http.StatusOK)

	if n := len(r.Meetings.Meetings()); n != len(roster.DefaultMeetings)-1 {
		t.Errorf("meetings = %d, want %d", n, len(roster.DefaultMeetings)-1)
	}
	if m := r.Store.Teachers()[0].Meetings; len(m) != 0 {
		t.Errorf("teacher still attends %v", m)
	}

	w = do(t, h, http.MethodPost, "/api/meetings/add", `{"name":"研修","day":2,"period":8}`)
	wantStatus(t, w, http.StatusBadRequest)

	w = do(t, h, http.MethodPost, "/api/meetings/add", `{"name":"研修","day":2,"period":7}`)
	wantStatus(t, w, http.StatusOK)

	w = do(t, h, http.MethodPost, "/api/meetings/reset", "")
	wantStatus(t, w, http.StatusOK)
	w = do(t, h, http.MethodGet, "/api/meetings", "")
	var meetings []roster.Meeting
	decode(t, w, &meetings)
	if len(meetings) != len(roster.DefaultMeetings) {
		t.Errorf("meetings after reset = %d, want %d", len(meetings), len(roster.DefaultMeetings))
	}
}

func TestImportProject(t *testing.T) {
	h, r := newTestServer(t, true)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"not json", `{"teachers":`, MsgProjectReadFailed},
		{"teachers not array", `{"teachers":{},"classes":[]}`, MsgInvalidProjectFormat},
		{"classes missing", `{"teachers":[]}`, MsgInvalidProjectFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/project/import", tt.body)
			wantStatus(t, w, http.StatusBadRequest)
			var body map[string]string
			decode(t, w, &body)
			if body["error"] != tt.msg {
				t.Errorf("error = %q, want %q", body["error"], tt.msg)
			}
		})
	}

	project := `{"teachers":[],"classes":[{"id":"1-1","name":"1年1組","grade":1,"type":"regular","active":true}]}`
	w := do(t, h, http.MethodPost, "/api/project/import", project)
	wantStatus(t, w, http.StatusOK)
	if n := len(r.Store.Classes()); n != 1 {
		t.Errorf("classes after import = %d, want 1", n)
	}

	w = do(t, h, http.MethodPost, "/api/project/reset", "")
	wantStatus(t, w, http.StatusOK)
	if n := len(r.Store.Classes()); n != 0 {
		t.Errorf("classes after reset = %d, want 0", n)
	}
}

func TestSaveAndReloadProject(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := storage.NewAdapter(storage.NewMemoryBackend(0), logger)
	r := roster.Open(adapter, roster.WithLogger(logger))
	h := NewServer(r, Options{EditMode: true, Logger: logger}).Routes()

	do(t, h, http.MethodPost, "/api/classes/init-defaults", "")
	do(t, h, http.MethodPost, "/api/meetings/add", `{"name":"学年会","day":2,"period":5}`)

	// Another process edits the same storage.
	other := roster.Open(adapter, roster.WithLogger(logger))
	if _, err := other.Store.RemoveClass("1-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := other.Meetings.Add("研修会", 5, 6); err != nil {
		t.Fatal(err)
	}

	w := do(t, h, http.MethodPost, "/api/project/reload", "")
	wantStatus(t, w, http.StatusOK)
	var body struct {
		Classes  int `json:"classes"`
		Meetings int `json:"meetings"`
	}
	decode(t, w, &body)
	if want := roster.DefaultGrades*roster.ClassesPerGrade - 1; body.Classes != want {
		t.Errorf("classes after reload = %d, want %d", body.Classes, want)
	}
	if body.Meetings != len(other.Meetings.Meetings()) {
		t.Errorf("meetings after reload = %d, want %d", body.Meetings, len(other.Meetings.Meetings()))
	}
	if _, ok := r.Store.Class("1-1"); ok {
		t.Error("reload kept a class removed in storage")
	}

	adapter.Remove(roster.KeyRosterData)
	adapter.Remove(roster.KeyMeetings)
	w = do(t, h, http.MethodPost, "/api/project/save", "")
	wantStatus(t, w, http.StatusOK)

	fresh := roster.Open(adapter, roster.WithLogger(logger))
	if got, want := len(fresh.Store.Classes()), len(r.Store.Classes()); got != want {
		t.Errorf("classes after save = %d, want %d", got, want)
	}
	if got, want := fresh.Meetings.Names(), r.Meetings.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("meetings after save = %v, want %v", got, want)
	}
}

func TestExportProject(t *testing.T) {
	h, _ := newTestServer(t, true)
	do(t, h, http.MethodPost, "/api/classes/init-defaults", "")

	w := do(t, h, http.MethodGet, "/api/project/export", "")
	wantStatus(t, w, http.StatusOK)

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, roster.ExportFileName) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	var snap roster.Snapshot
	decode(t, w, &snap)
	if len(snap.Classes) != roster.DefaultGrades*roster.ClassesPerGrade {
		t.Errorf("exported classes = %d", len(snap.Classes))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/project/export", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	wantStatus(t, rec, http.StatusNotModified)

	do(t, h, http.MethodPost, "/api/classes/toggle-active", `{"id":"1-1"}`)
	req = httptest.NewRequest(http.MethodGet, "/api/project/export", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	wantStatus(t, rec, http.StatusOK)
}

func TestHandleDownload(t *testing.T) {
	h, _ := newTestServer(t, false)

	tests := []struct {
		format      string
		code        int
		contentType string
	}{
		{"csv", http.StatusOK, "text/csv"},
		{"json", http.StatusOK, "application/json"},
		{"ics", http.StatusOK, "text/calendar"},
		{"xml", http.StatusBadRequest, "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/api/download?format="+tt.format, "")
			wantStatus(t, w, tt.code)
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want %s", ct, tt.contentType)
			}
		})
	}

	w := do(t, h, http.MethodGet, "/api/download?format=ics&reminder=15", "")
	if !strings.Contains(w.Body.String(), "TRIGGER:-P0DT0H15M") {
		t.Error("reminder query should add alarms")
	}

	w = do(t, h, http.MethodGet, "/api/subscribe/meetings", "")
	wantStatus(t, w, http.StatusOK)
	if n := strings.Count(w.Body.String(), "BEGIN:VEVENT"); n != len(roster.DefaultMeetings) {
		t.Errorf("subscription events = %d, want %d", n, len(roster.DefaultMeetings))
	}
}
