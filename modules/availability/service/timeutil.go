package service

import (
	"fmt"
	"strconv"
	"strings"

	"welllink-api/core/errors"
)

// TimeToMinutes converts a 24-hour local time string ("H:MM", "HH:MM", or
// "HH:MM:SS", where a seconds component must be valid but is discarded) to
// minutes since midnight.
func TimeToMinutes(value string) (int, *errors.AppError) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, errors.NewAppError(errors.ErrInvalidTimeFormat,
			fmt.Sprintf("Invalid time format: %q, expected HH:MM", value), nil)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) == 0 || len(parts[0]) > 2 {
		return 0, errors.NewAppError(errors.ErrInvalidTimeFormat,
			fmt.Sprintf("Invalid hour in time %q", value), err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 {
		return 0, errors.NewAppError(errors.ErrInvalidTimeFormat,
			fmt.Sprintf("Invalid minute in time %q", value), err)
	}

	if len(parts) == 3 {
		second, err := strconv.Atoi(parts[2])
		if err != nil || len(parts[2]) != 2 || second < 0 || second > 59 {
			return 0, errors.NewAppError(errors.ErrInvalidTimeFormat,
				fmt.Sprintf("Invalid seconds in time %q", value), err)
		}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, errors.NewAppError(errors.ErrInvalidTimeFormat,
			fmt.Sprintf("Time %q out of range", value), nil)
	}

	return hour*60 + minute, nil
}

// MinutesToClock is the inverse of TimeToMinutes. Callers only pass values
// produced internally, so no range validation is needed.
func MinutesToClock(minutes int) (hour, minute int) {
	return minutes / 60, minutes % 60
}

// FormatMinutes renders minutes-since-midnight as zero-padded "HH:MM".
func FormatMinutes(minutes int) string {
	hour, minute := MinutesToClock(minutes)
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
