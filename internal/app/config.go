package app

// Constants
const (
	// Error messages
	ErrEditModeDisabled     = "Edit mode disabled"
	ErrInvalidFormat        = "Invalid format"
	ErrInvalidRequest       = "Invalid request body"
	ErrInvalidGrade         = "Invalid grade"
	ErrInternalServer       = "Internal server error"
	ErrFailedToSave         = "Failed to save roster"
	ErrFailedToGenerateJSON = "Failed to generate JSON"

	// Import messages shown to the user
	MsgInvalidProjectFormat = "無効なファイル形式です"
	MsgProjectReadFailed    = "ファイルの読み込みに失敗しました"

	// Response statuses
	StatusOK        = "ok"
	StatusUnchanged = "unchanged"

	// Mode strings
	ModeServe = "serve"
	ModeEdit  = "edit"

	// MaxImportBytes bounds the size of an uploaded project file.
	MaxImportBytes = 10 << 20

	// ICS constants
	ICSCalendarName = "職員会議予定"
	ICSUIDDomain    = "timetable-roster"
	ICSHorizonDays  = 365
)

// ICSWeekdays maps meeting days 1 (Monday) to 7 (Sunday) to RRULE BYDAY codes.
var ICSWeekdays = map[int]string{
	1: "MO",
	2: "TU",
	3: "WE",
	4: "TH",
	5: "FR",
	6: "SA",
	7: "SU",
}
