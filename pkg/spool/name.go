package spool

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	recordExt = ".task"
	maxSuffix = 999999
	// maxUnix keeps seconds within the 13 digits of the name.
	maxUnix = 9999999999999
)

var recordNameRe = regexp.MustCompile(`^(\d{13})\.(\d{6})-(\d{6})\.task$`)

// RecordName returns the file name for a record scheduled at t with the
// given disambiguating suffix.
func RecordName(t time.Time, suffix int) (string, error) {
	sec := t.Unix()
	if sec < 0 || sec > maxUnix {
		return "", ErrInvalidTime
	}
	if suffix < 0 || suffix > maxSuffix {
		return "", ErrNoFreeName
	}
	return fmt.Sprintf("%013d.%06d-%06d%s", sec, t.Nanosecond()/int(time.Microsecond), suffix, recordExt), nil
}

// ParseRecordName extracts the scheduled time encoded in a record name.
func ParseRecordName(name string) (time.Time, error) {
	m := recordNameRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, ErrInvalidName
	}
	sec, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, ErrInvalidName
	}
	usec, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return time.Time{}, ErrInvalidName
	}
	return time.Unix(sec, usec*int64(time.Microsecond)), nil
}

// truncate drops precision the record name cannot carry.
func truncate(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()/int(time.Microsecond))*int64(time.Microsecond))
}
