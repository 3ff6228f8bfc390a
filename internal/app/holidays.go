package app

import (
	"time"
)

// GetJapaneseHolidays returns the national holidays of the given year keyed
// by YYYY-MM-DD, including substitute holidays and citizens' holidays.
// Equinox dates use the approximation valid for 1980-2099.
func GetJapaneseHolidays(year int) map[string]string {
	holidays := make(map[string]string)

	// Fixed holidays
	holidays[formatDate(year, 1, 1)] = "元日"
	holidays[formatDate(year, 2, 11)] = "建国記念の日"
	holidays[formatDate(year, 2, 23)] = "天皇誕生日"
	holidays[formatDate(year, 4, 29)] = "昭和の日"
	holidays[formatDate(year, 5, 3)] = "憲法記念日"
	holidays[formatDate(year, 5, 4)] = "みどりの日"
	holidays[formatDate(year, 5, 5)] = "こどもの日"
	holidays[formatDate(year, 8, 11)] = "山の日"
	holidays[formatDate(year, 11, 3)] = "文化の日"
	holidays[formatDate(year, 11, 23)] = "勤労感謝の日"

	// Happy Monday holidays
	holidays[formatDateFromTime(nthMonday(year, time.January, 2))] = "成人の日"
	holidays[formatDateFromTime(nthMonday(year, time.July, 3))] = "海の日"
	holidays[formatDateFromTime(nthMonday(year, time.September, 3))] = "敬老の日"
	holidays[formatDateFromTime(nthMonday(year, time.October, 2))] = "スポーツの日"

	// Equinoxes
	holidays[formatDate(year, 3, equinoxDay(year, 20.8431))] = "春分の日"
	holidays[formatDate(year, 9, equinoxDay(year, 23.2488))] = "秋分の日"

	// A day between two holidays is a holiday too.
	for d := time.Date(year, 1, 2, 12, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
		key := formatDateFromTime(d)
		if _, ok := holidays[key]; ok || d.Weekday() == time.Sunday {
			continue
		}
		_, before := holidays[formatDateFromTime(d.AddDate(0, 0, -1))]
		_, after := holidays[formatDateFromTime(d.AddDate(0, 0, 1))]
		if before && after {
			holidays[key] = "国民の休日"
		}
	}

	// A holiday on Sunday moves to the next day that is not a holiday.
	for _, key := range sundayHolidays(holidays) {
		d, _ := time.Parse("2006-01-02", key)
		d = d.Add(12 * time.Hour)
		for {
			d = d.AddDate(0, 0, 1)
			if _, ok := holidays[formatDateFromTime(d)]; !ok {
				break
			}
		}
		holidays[formatDateFromTime(d)] = "振替休日"
	}

	return holidays
}

// sundayHolidays lists the holiday dates that fall on a Sunday.
func sundayHolidays(holidays map[string]string) []string {
	var out []string
	for key := range holidays {
		d, err := time.Parse("2006-01-02", key)
		if err == nil && d.Weekday() == time.Sunday {
			out = append(out, key)
		}
	}
	return out
}

// nthMonday returns the n-th Monday of month
func nthMonday(year int, month time.Month, n int) time.Time {
	first := time.Date(year, month, 1, 12, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

// equinoxDay calculates the day of month of an equinox from its 1980 base value
func equinoxDay(year int, base float64) int {
	y := year - 1980
	return int(base+0.242194*float64(y)) - y/4
}

// formatDate formats a date as YYYY-MM-DD
func formatDate(year, month, day int) string {
	// Use noon to avoid timezone issues when formatting to YYYY-MM-DD
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// formatDateFromTime formats a time.Time as YYYY-MM-DD
func formatDateFromTime(t time.Time) string {
	return t.Format("2006-01-02")
}
