package app

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

// ServeIndex serves the roster interface HTML
func (s *Server) ServeIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(s.index); err != nil {
		s.logger.Error("writing index HTML failed", "error", err)
	}
}

type roleOption struct {
	Value roster.Role `json:"value"`
	Label string      `json:"label"`
}

type hoursSubject struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Default int    `json:"default"`
}

// GetConfig returns the catalogs and limits the interface needs
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	defaults := roster.DefaultHours()
	subjects := make([]hoursSubject, 0, len(roster.HoursSubjects))
	for _, sub := range roster.HoursSubjects {
		subjects = append(subjects, hoursSubject{Code: sub.Code, Name: sub.Name, Default: defaults[sub.Code]})
	}

	year := s.now().In(s.location).Year()
	s.writeJSON(w, map[string]any{
		"maxGrade":          roster.MaxGrade,
		"defaultGrades":     roster.DefaultGrades,
		"classesPerGrade":   roster.ClassesPerGrade,
		"roles":             []roleOption{{roster.RoleHomeroom, roster.RoleHomeroom.Text()}, {roster.RoleAssistant, roster.RoleAssistant.Text()}},
		"classTypes":        []roster.ClassType{roster.ClassRegular, roster.ClassSpecialSupport},
		"defaultMeetings":   roster.DefaultMeetings,
		"defaultSubjects":   roster.DefaultSubjects,
		"hoursSubjects":     subjects,
		"targetWeeklyHours": roster.TargetWeeklyHours,
		"periodStarts":      s.calendar.PeriodStarts,
		"holidays":          GetJapaneseHolidays(year),
		"editMode":          s.editMode,
	})
}

// GetRoster returns the whole Entity Store snapshot
func (s *Server) GetRoster(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.roster.Store.Snapshot())
}

// GetTeachers returns all teachers in roster order
func (s *Server) GetTeachers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.roster.Store.Teachers())
}

// GetClasses returns classes, optionally filtered
// Query params: grade (1..MaxGrade), active (true)
func (s *Server) GetClasses(w http.ResponseWriter, r *http.Request) {
	classes := s.roster.Store.Classes()

	if g := r.URL.Query().Get("grade"); g != "" {
		grade, err := strconv.Atoi(g)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrInvalidGrade)
			return
		}
		classes = s.roster.Store.GetClassesByGrade(grade)
	}
	if r.URL.Query().Get("active") == "true" {
		active := classes[:0:0]
		for _, c := range classes {
			if c.Active {
				active = append(active, c)
			}
		}
		classes = active
	}
	s.writeJSON(w, classes)
}

// GetSubjects returns the subject catalog
func (s *Server) GetSubjects(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.roster.Store.Subjects())
}

// GetMeetings returns the meeting catalog
func (s *Server) GetMeetings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.roster.Meetings.Meetings())
}

// GetSpecialSupportClasses returns the classes offered in the hours editor
func (s *Server) GetSpecialSupportClasses(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.roster.Store.SpecialSupportClasses())
}

type indexRequest struct {
	Index int `json:"index"`
}

type classRequest struct {
	ID string `json:"id"`
}

type gradeRequest struct {
	Grade int `json:"grade"`
}

// AddTeacher adds a teacher (edit mode only)
func (s *Server) AddTeacher(w http.ResponseWriter, r *http.Request) {
	var t roster.Teacher
	if !readJSON(w, r, &t) {
		return
	}
	added, err := s.roster.Store.AddTeacher(t)
	if err != nil {
		s.writeRosterError(w, err)
		return
	}
	s.writeStatus(w, StatusOK, map[string]any{"teacher": added})
}

// UpdateTeacher replaces the teacher at index (edit mode only)
func (s *Server) UpdateTeacher(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index   int            `json:"index"`
		Teacher roster.Teacher `json:"teacher"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	updated, err := s.roster.Store.UpdateTeacher(req.Index, req.Teacher)
	if err != nil {
		s.writeRosterError(w, err)
		return
	}
	s.writeStatus(w, StatusOK, map[string]any{"teacher": updated})
}

// DeleteTeacher removes the teacher at index (edit mode only)
func (s *Server) DeleteTeacher(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if !readJSON(w, r, &req) {
		return
	}
	ok, err := s.roster.Store.RemoveTeacher(req.Index)
	s.changed(w, ok, err, nil)
}

// AddClass adds a single class (edit mode only)
func (s *Server) AddClass(w http.ResponseWriter, r *http.Request) {
	var c roster.ClassRoom
	if !readJSON(w, r, &c) {
		return
	}
	added, err := s.roster.Store.AddClass(c)
	if err != nil {
		s.writeRosterError(w, err)
		return
	}
	s.writeStatus(w, StatusOK, map[string]any{"class": added})
}

// DeleteClass removes a class by id (edit mode only)
func (s *Server) DeleteClass(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if !readJSON(w, r, &req) {
		return
	}
	ok, err := s.roster.Store.RemoveClass(req.ID)
	s.changed(w, ok, err, nil)
}

// ToggleClassType switches a class between regular and special support (edit mode only)
func (s *Server) ToggleClassType(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if !readJSON(w, r, &req) {
		return
	}
	c, ok, err := s.roster.Store.ToggleClassType(req.ID)
	s.changed(w, ok, err, classExtra(c, ok))
}

// ToggleClassActive flips the active flag of a class (edit mode only)
func (s *Server) ToggleClassActive(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if !readJSON(w, r, &req) {
		return
	}
	c, ok, err := s.roster.Store.ToggleClassActive(req.ID)
	s.changed(w, ok, err, classExtra(c, ok))
}

func classExtra(c roster.ClassRoom, ok bool) map[string]any {
	if !ok {
		return nil
	}
	return map[string]any{"class": c}
}

// InitDefaultClasses replaces all classes with the default grades (edit mode only)
func (s *Server) InitDefaultClasses(w http.ResponseWriter, r *http.Request) {
	if err := s.roster.Store.InitializeDefaultClasses(); err != nil {
		s.writeRosterError(w, err)
		return
	}
	s.writeStatus(w, StatusOK, map[string]any{"count": len(s.roster.Store.Classes())})
}

// AddGradeClasses regenerates the classes of one grade (edit mode only)
func (s *Server) AddGradeClasses(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.roster.Store.AddGradeClasses(req.Grade); err != nil {
		s.writeRosterError(w, err)
		return
	}
	s.writeStatus(w, StatusOK, nil)
}

// DeleteInactiveClasses removes every inactive class (edit mode only)
func (s *Server) DeleteInactiveClasses(w http.ResponseWriter, r *http.Request) {
	removed, err := s.roster.Store.RemoveInactiveClasses()
	s.changed(w, len(removed) > 0, err, map[string]any{"removed": len(removed)})
}

// BulkSpecialSupport converts active regular classes of a grade, or of every
// grade when grade is 0 (edit mode only)
func (s *Server) BulkSpecialSupport(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Grade < 0 || req.Grade > roster.MaxGrade {
		writeError(w, http.StatusBadRequest, ErrInvalidGrade)
		return
	}
	changed, err := s.roster.Store.BulkToggleSpecialSupport(req.Grade)
	s.changed(w, len(changed) > 0, err, map[string]any{"changed": len(changed)})
}

// AddSubject adds a catalog subject (edit mode only)
func (s *Server) AddSubject(w http.ResponseWriter, r *http.Request) {
	var sub roster.Subject
	if !readJSON(w, r, &sub) {
		return
	}
	added, err := s.roster.Store.AddSubject(sub)
	if err != nil {
		s.writeRosterError(w, err)
		return
	}
	s.writeStatus(w, StatusOK, map[string]any{"subject": added})
}

// DeleteSubject removes the subject at index (edit mode only)
func (s *Server) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if !readJSON(w, r, &req) {
		return
	}
	ok, err := s.roster.Store.RemoveSubject(req.Index)
	s.changed(w, ok, err, nil)
}

// AddMeeting adds a meeting (edit mode only)
func (s *Server) AddMeeting(w http.ResponseWriter, r *http.Request) {
	var m roster.Meeting
	if !readJSON(w, r, &m) {
		return
	}
	added, err := s.roster.Meetings.Add(m.Name, m.Day, m.Period)
	if err != nil {
		s.writeRosterError(w, err)
		return
	}
	s.writeStatus(w, StatusOK, map[string]any{"meeting": added})
}

// DeleteMeeting removes the meeting at index after the name is confirmed (edit mode only)
func (s *Server) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index   int    `json:"index"`
		Confirm string `json:"confirm"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	ok, err := s.roster.Meetings.Remove(req.Index, req.Confirm)
	s.changed(w, ok, err, nil)
}

// ReplaceMeetings rebuilds the meeting catalog from an ordered list (edit mode only)
func (s *Server) ReplaceMeetings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Meetings []roster.Meeting `json:"meetings"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.roster.Meetings.Replace(req.Meetings); err != nil {
		s.writeRosterError(w, err)
		return
	}
	s.writeStatus(w, StatusOK, map[string]any{"meetings": s.roster.Meetings.Meetings()})
}

// ResetMeetings restores the default meetings (edit mode only)
func (s *Server) ResetMeetings(w http.ResponseWriter, r *http.Request) {
	if err := s.roster.Meetings.ResetToDefaults(); err != nil {
		s.writeRosterError(w, err)
		return
	}
	s.writeStatus(w, StatusOK, nil)
}

// HandleHours reads (GET) or saves (POST, edit mode only) special-support hours
// GET query param: class (optional; all saved budgets when omitted)
func (s *Server) HandleHours(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getHours(w, r)
	case http.MethodPost:
		s.mutation(s.saveHours)(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) getHours(w http.ResponseWriter, r *http.Request) {
	classID := strings.TrimSpace(r.URL.Query().Get("class"))
	if classID == "" {
		s.writeJSON(w, s.roster.Hours.All())
		return
	}
	cfg, saved := s.roster.Hours.Get(classID)
	total := roster.Total(cfg)
	s.writeJSON(w, map[string]any{
		"classId": classID,
		"hours":   cfg,
		"saved":   saved,
		"total":   total,
		"status":  roster.Status(total),
	})
}

func (s *Server) saveHours(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClassID string             `json:"classId"`
		Hours   roster.HoursConfig `json:"hours"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.roster.Hours.Save(req.ClassID, req.Hours); err != nil {
		s.writeRosterError(w, err)
		return
	}
	total := roster.Total(req.Hours)
	s.writeStatus(w, StatusOK, map[string]any{"total": total, "status": roster.Status(total)})
}

// ImportProject replaces the roster with an uploaded project file (edit mode only)
func (s *Server) ImportProject(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, MaxImportBytes)
	if err := s.roster.Store.ImportFrom(body); err != nil {
		s.logger.Warn("project import rejected", "error", err)
		s.writeRosterError(w, err)
		return
	}
	sum := s.roster.Summarize()
	s.writeStatus(w, StatusOK, map[string]any{
		"teachers": sum.Teachers,
		"classes":  sum.Classes,
		"subjects": sum.Subjects,
	})
}

// ResetProject clears teachers, classes, subjects and the schedule (edit mode only)
func (s *Server) ResetProject(w http.ResponseWriter, r *http.Request) {
	if err := s.roster.Store.Reset(); err != nil {
		s.writeRosterError(w, err)
		return
	}
	s.writeStatus(w, StatusOK, nil)
}

// SaveProject persists the current roster in full
func (s *Server) SaveProject(w http.ResponseWriter, r *http.Request) {
	if err := s.roster.Save(); err != nil {
		s.writeRosterError(w, err)
		return
	}
	s.writeStatus(w, StatusOK, nil)
}

// ReloadProject discards in-memory state and re-reads the roster from storage
func (s *Server) ReloadProject(w http.ResponseWriter, r *http.Request) {
	s.roster.Reload()
	sum := s.roster.Summarize()
	s.writeStatus(w, StatusOK, map[string]any{
		"teachers": sum.Teachers,
		"classes":  sum.Classes,
		"subjects": sum.Subjects,
		"meetings": sum.Meetings,
	})
}

// HandleDownload handles export downloads in CSV, JSON or ICS format
// Query params: format (csv|json|ics), reminder (minutes before, ics only)
func (s *Server) HandleDownload(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("format") {
	case "csv":
		GenerateTeachersCSV(w, s.roster.Store.Teachers())
	case "json":
		s.ExportProject(w, r)
	case "ics":
		reminder, _ := strconv.Atoi(r.URL.Query().Get("reminder"))
		GenerateMeetingsICS(w, s.roster.Meetings.Meetings(), s.calendarOptions(reminder))
	default:
		writeError(w, http.StatusBadRequest, ErrInvalidFormat)
	}
}

// HandleSubscribe serves the meeting calendar as a subscription feed
func (s *Server) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	GenerateSubscriptionICS(w, s.roster.Meetings.Meetings(), s.calendarOptions(0))
}

func (s *Server) calendarOptions(reminder int) CalendarOptions {
	return CalendarOptions{
		Location:        s.location,
		PeriodStarts:    s.calendar.PeriodStarts,
		PeriodMinutes:   s.calendar.PeriodMinutes,
		ProductID:       s.calendar.ProductID,
		Now:             s.now(),
		ReminderMinutes: reminder,
	}
}
