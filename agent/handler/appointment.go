package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smartinbox/server/agent/parser"
	statex "github.com/smartinbox/server/agent/state"
)

// Appointment extracts scheduling intent and offers candidate slots
// from the calendar provider.
type Appointment struct {
	base
	slots func(now time.Time) []statex.Slot
}

func (h *Appointment) Name() string { return NameAppointment }

func (h *Appointment) Run(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error) {
	available := h.slots(h.clock())

	runStage(ctx, h.base, st,
		NameAppointment, "schedule_appointment",
		"extracting appointment details",
		func() string {
			slotsJSON, _ := json.MarshalIndent(available, "", "  ")
			return emailContext(st.Message) + "\n\nAvailable slots:\n" + string(slotsJSON)
		},
		func(string) statex.AppointmentResult { return appointmentFallback(available) },
		func(out parser.Outcome[statex.AppointmentResult]) (string, error) {
			res := out.Value
			if len(res.SuggestedSlots) == 0 {
				res.SuggestedSlots = firstSlots(available, 5)
			}
			if err := st.Results.SetAppointment(res); err != nil {
				return "", err
			}
			st.RequireInfo(res.MissingInfo)
			return fmt.Sprintf("%d slots suggested", len(res.SuggestedSlots)), nil
		},
		nil,
	)
	return st, nil
}

// appointmentFallback proposes a default consultation and asks the
// sender to pick a time.
func appointmentFallback(available []statex.Slot) statex.AppointmentResult {
	return statex.AppointmentResult{
		Topic:           "consultation",
		DurationMinutes: 60,
		MissingInfo:     []string{"preferred date", "preferred time"},
		SuggestedSlots:  firstSlots(available, 5),
		Summary:         "appointment request, details to be confirmed",
	}
}

func firstSlots(slots []statex.Slot, n int) []statex.Slot {
	if len(slots) > n {
		slots = slots[:n]
	}
	out := make([]statex.Slot, len(slots))
	copy(out, slots)
	return out
}

// weekdaySlots are the bookable hours per business day.
var weekdaySlotHours = []int{9, 10, 11, 14, 15, 16}

// generateSlots walks forward from now and collects the next seven
// business days with their bookable hours.
func generateSlots(now time.Time) []statex.Slot {
	var slots []statex.Slot
	day := now
	for collected := 0; collected < 7; {
		day = day.AddDate(0, 0, 1)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for _, hour := range weekdaySlotHours {
			slots = append(slots, statex.Slot{
				Date:      day.Format("2006-01-02"),
				Time:      fmt.Sprintf("%02d:00", hour),
				Available: true,
			})
		}
		collected++
	}
	return slots
}

type slotFunc func(now time.Time) []statex.Slot

func (f slotFunc) Slots(now time.Time) []statex.Slot { return f(now) }
