package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/klabast/wb-services/timetable-roster/internal/config"
	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

// Options configures a Server.
type Options struct {
	EditMode  bool
	Calendar  config.CalendarConfig
	Logger    *slog.Logger
	Static    fs.FS
	IndexHTML []byte
	Now       func() time.Time
}

// Server is the HTTP view of a roster.
type Server struct {
	roster   *roster.Roster
	editMode bool
	calendar config.CalendarConfig
	location *time.Location
	logger   *slog.Logger
	static   fs.FS
	index    []byte
	now      func() time.Time
}

// NewServer wires r behind an HTTP API.
func NewServer(r *roster.Roster, opts Options) *Server {
	s := &Server{
		roster:   r,
		editMode: opts.EditMode,
		calendar: opts.Calendar,
		logger:   opts.Logger,
		static:   opts.Static,
		index:    opts.IndexHTML,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if len(s.calendar.PeriodStarts) == 0 {
		s.calendar = config.NewDefaultConfig().Calendar
	}
	loc, err := time.LoadLocation(s.calendar.Timezone)
	if err != nil {
		s.logger.Warn("unknown calendar timezone, using UTC", "timezone", s.calendar.Timezone, "error", err)
		loc = time.UTC
	}
	s.location = loc
	return s
}

// Mode returns ModeEdit or ModeServe.
func (s *Server) Mode() string {
	if s.editMode {
		return ModeEdit
	}
	return ModeServe
}

// Routes registers every endpoint. Mutating endpoints answer 403 unless the
// server runs in edit mode.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.ServeIndex)
	mux.HandleFunc("/api/config", s.GetConfig)
	mux.HandleFunc("/api/roster", s.GetRoster)
	mux.HandleFunc("/api/teachers", s.GetTeachers)
	mux.HandleFunc("/api/classes", s.GetClasses)
	mux.HandleFunc("/api/subjects", s.GetSubjects)
	mux.HandleFunc("/api/meetings", s.GetMeetings)
	mux.HandleFunc("/api/special-support/classes", s.GetSpecialSupportClasses)
	mux.HandleFunc("/api/project/export", s.ExportProject)
	mux.HandleFunc("/api/download", s.HandleDownload)
	mux.HandleFunc("/api/subscribe/meetings", s.HandleSubscribe)

	mux.HandleFunc("/api/teachers/add", s.mutation(s.AddTeacher))
	mux.HandleFunc("/api/teachers/update", s.mutation(s.UpdateTeacher))
	mux.HandleFunc("/api/teachers/delete", s.mutation(s.DeleteTeacher))

	mux.HandleFunc("/api/classes/add", s.mutation(s.AddClass))
	mux.HandleFunc("/api/classes/delete", s.mutation(s.DeleteClass))
	mux.HandleFunc("/api/classes/toggle-type", s.mutation(s.ToggleClassType))
	mux.HandleFunc("/api/classes/toggle-active", s.mutation(s.ToggleClassActive))
	mux.HandleFunc("/api/classes/init-defaults", s.mutation(s.InitDefaultClasses))
	mux.HandleFunc("/api/classes/add-grade", s.mutation(s.AddGradeClasses))
	mux.HandleFunc("/api/classes/delete-inactive", s.mutation(s.DeleteInactiveClasses))
	mux.HandleFunc("/api/classes/bulk-special-support", s.mutation(s.BulkSpecialSupport))

	mux.HandleFunc("/api/subjects/add", s.mutation(s.AddSubject))
	mux.HandleFunc("/api/subjects/delete", s.mutation(s.DeleteSubject))

	mux.HandleFunc("/api/meetings/add", s.mutation(s.AddMeeting))
	mux.HandleFunc("/api/meetings/delete", s.mutation(s.DeleteMeeting))
	mux.HandleFunc("/api/meetings/replace", s.mutation(s.ReplaceMeetings))
	mux.HandleFunc("/api/meetings/reset", s.mutation(s.ResetMeetings))

	mux.HandleFunc("/api/special-support/hours", s.HandleHours)

	mux.HandleFunc("/api/project/import", s.mutation(s.ImportProject))
	mux.HandleFunc("/api/project/reset", s.mutation(s.ResetProject))
	mux.HandleFunc("/api/project/save", s.mutation(s.SaveProject))
	mux.HandleFunc("/api/project/reload", s.mutation(s.ReloadProject))

	if s.static != nil {
		mux.Handle("/static/", http.FileServer(http.FS(s.static)))
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting timetable roster", "mode", s.Mode(), "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
