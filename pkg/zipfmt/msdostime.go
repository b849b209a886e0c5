package zipfmt

import "time"

// PackTime converts a wall-clock time into the packed 16-bit MS-DOS date
// and 16-bit MS-DOS time fields used by local file headers and central
// directory entries. Dates before 1980 (the format's epoch) clamp to
// 1980-01-01.
func PackTime(t time.Time) (date uint32, timeOfDay uint32) {
	if t.Year() < 1980 {
		t = time.Date(1980, time.January, 1, 0, 0, 0, 0, t.Location())
	}

	d := uint32(t.Day()) |
		uint32(t.Month())<<5 |
		uint32(t.Year()-1980)<<9

	tm := uint32(t.Second()/2) |
		uint32(t.Minute())<<5 |
		uint32(t.Hour())<<11

	return d, tm
}

// UnpackTime converts a packed 16-bit MS-DOS date and 16-bit MS-DOS time
// into a wall-clock time in the given location (typically time.Local).
func UnpackTime(date, timeOfDay uint32, loc *time.Location) time.Time {
	day := int(date & 0x1f)
	month := int((date >> 5) & 0x0f)
	year := int((date>>9)&0x7f) + 1980

	second := int(timeOfDay&0x1f) * 2
	minute := int((timeOfDay >> 5) & 0x3f)
	hour := int((timeOfDay >> 11) & 0x1f)

	if day == 0 {
		day = 1
	}
	if month == 0 {
		month = 1
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
}

// PackMillis is a convenience wrapper over PackTime for callers that carry
// epoch milliseconds instead of a time.Time. The instant is packed as UTC.
func PackMillis(epochMillis int64) (date uint32, timeOfDay uint32) {
	return PackTime(time.UnixMilli(epochMillis).UTC())
}
