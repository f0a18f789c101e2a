package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bazaar/internal/models"
)

// ExpectedDeliveryDate places the slot on the order day in loc, or on the
// following day when that moment is not after orderDate.
func ExpectedDeliveryDate(orderDate time.Time, slot models.DeliverySlot, loc *time.Location) (time.Time, error) {
	hour, minute, err := parseSlot(slot)
	if err != nil {
		return time.Time{}, err
	}
	local := orderDate.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !candidate.After(local) {
		candidate = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return candidate, nil
}

// parseSlot turns {"7:30", "PM"} into 19, 30. The meridiem may also trail the time ("7:30 PM").
func parseSlot(slot models.DeliverySlot) (int, int, error) {
	clock := strings.TrimSpace(slot.Time)
	meridiem := strings.ToUpper(strings.TrimSpace(slot.Meridiem))
	if meridiem == "" {
		if fields := strings.Fields(clock); len(fields) == 2 {
			clock, meridiem = fields[0], strings.ToUpper(fields[1])
		}
	}
	if meridiem != "AM" && meridiem != "PM" {
		return 0, 0, fmt.Errorf("%w: meridiem %q must be AM or PM", ErrInvalidDeliverySlot, slot.Meridiem)
	}

	hourPart, minutePart, hasMinutes := strings.Cut(clock, ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, fmt.Errorf("%w: time %q", ErrInvalidDeliverySlot, slot.Time)
	}
	minute := 0
	if hasMinutes {
		minute, err = strconv.Atoi(minutePart)
		if err != nil || len(minutePart) != 2 || minute < 0 || minute > 59 {
			return 0, 0, fmt.Errorf("%w: time %q", ErrInvalidDeliverySlot, slot.Time)
		}
	}

	hour %= 12
	if meridiem == "PM" {
		hour += 12
	}
	return hour, minute, nil
}
