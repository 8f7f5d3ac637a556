// Package domain contains the core concepts of the registration system:
// registration records, conversation state, flow steps and notification
// events. Types here carry no I/O.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type PlaygroupType string

const (
	Indoor  PlaygroupType = "indoor"
	Outdoor PlaygroupType = "outdoor"
)

type Weekday string

const (
	Monday    Weekday = "monday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
)

// IndoorDays is the set of weekdays the indoor playgroup runs.
// The outdoor (forest) playgroup runs on Monday only.
var IndoorDays = []Weekday{Monday, Wednesday, Thursday}

type BookingDay struct {
	Day  Weekday       `json:"day"`
	Type PlaygroupType `json:"type"`
}

type Booking struct {
	PlaygroupTypes []PlaygroupType `json:"playgroupTypes"`
	SelectedDays   []BookingDay    `json:"selectedDays"`
}

// ChildInfo uses the empty string as "not collected yet". SpecialNeeds is
// only considered collected once the parent answered; the literal "None" or
// "Keine" is a valid explicit negative.
type ChildInfo struct {
	FullName     string `json:"fullName,omitempty"`
	DateOfBirth  string `json:"dateOfBirth,omitempty"` // YYYY-MM-DD
	SpecialNeeds string `json:"specialNeeds,omitempty"`
}

type ParentGuardian struct {
	FullName      string `json:"fullName,omitempty"`
	StreetAddress string `json:"streetAddress,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"` // 4-digit Swiss code
	City          string `json:"city,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
}

type EmergencyContact struct {
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// RegistrationData is the draft registration built up during a conversation.
// It becomes immutable once wrapped in a RegistrationRecord.
type RegistrationData struct {
	Child            ChildInfo        `json:"child"`
	ParentGuardian   ParentGuardian   `json:"parentGuardian"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
	Booking          Booking          `json:"booking"`
}

// IsComplete reports whether all 13 required schema fields are present.
// Presence only; rule conformance is the validation package's job.
func (r RegistrationData) IsComplete() bool {
	return r.Child.FullName != "" &&
		r.Child.DateOfBirth != "" &&
		r.Child.SpecialNeeds != "" &&
		r.ParentGuardian.FullName != "" &&
		r.ParentGuardian.StreetAddress != "" &&
		r.ParentGuardian.PostalCode != "" &&
		r.ParentGuardian.City != "" &&
		r.ParentGuardian.Phone != "" &&
		r.ParentGuardian.Email != "" &&
		r.EmergencyContact.FullName != "" &&
		r.EmergencyContact.Phone != "" &&
		len(r.Booking.PlaygroupTypes) > 0 &&
		len(r.Booking.SelectedDays) > 0
}

// Flatten returns the draft as field-path → value, e.g.
// "parentGuardian.postalCode" → "8117". Booking days are rendered as
// "day(type)" strings so diffs stay readable.
func (r RegistrationData) Flatten() map[string]string {
	out := map[string]string{
		"child.fullName":               r.Child.FullName,
		"child.dateOfBirth":            r.Child.DateOfBirth,
		"child.specialNeeds":           r.Child.SpecialNeeds,
		"parentGuardian.fullName":      r.ParentGuardian.FullName,
		"parentGuardian.streetAddress": r.ParentGuardian.StreetAddress,
		"parentGuardian.postalCode":    r.ParentGuardian.PostalCode,
		"parentGuardian.city":          r.ParentGuardian.City,
		"parentGuardian.phone":         r.ParentGuardian.Phone,
		"parentGuardian.email":         r.ParentGuardian.Email,
		"emergencyContact.fullName":    r.EmergencyContact.FullName,
		"emergencyContact.phone":       r.EmergencyContact.Phone,
	}
	types := ""
	for i, t := range r.Booking.PlaygroupTypes {
		if i > 0 {
			types += ","
		}
		types += string(t)
	}
	out["booking.playgroupTypes"] = types
	days := ""
	for i, d := range r.Booking.SelectedDays {
		if i > 0 {
			days += ","
		}
		days += fmt.Sprintf("%s(%s)", d.Day, d.Type)
	}
	out["booking.selectedDays"] = days
	return out
}

// FieldChange records one changed field between two registration versions.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Diff returns field-path → change for every field that differs between two
// registration payloads. An empty map means identical content.
func Diff(old, new RegistrationData) map[string]FieldChange {
	changes := map[string]FieldChange{}
	oldFlat := old.Flatten()
	for path, newVal := range new.Flatten() {
		if oldVal := oldFlat[path]; oldVal != newVal {
			changes[path] = FieldChange{Old: oldVal, New: newVal}
		}
	}
	return changes
}

// EqualContent reports whether two payloads are byte-identical once
// serialized. Used for idempotent version writes.
func EqualContent(a, b RegistrationData) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ab) == string(bb)
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// Metadata describes when, where and by whom a registration version was
// submitted. ChangeSummary is only present from version 2 onward.
type Metadata struct {
	Version        int                    `json:"version"`
	SubmittedAt    time.Time              `json:"submittedAt"`
	Channel        Channel                `json:"channel"`
	ConversationID string                 `json:"conversationId"`
	Language       string                 `json:"language"`
	ChangeSummary  map[string]FieldChange `json:"changeSummary,omitempty"`
}

// RegistrationRecord is an immutable snapshot of a completed registration.
// Prior versions are never mutated or deleted.
type RegistrationRecord struct {
	RegistrationData
	Metadata Metadata `json:"metadata"`
}
