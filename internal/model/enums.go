package model

import (
	"fmt"
	"strings"
)

// JobType is the employment type filter supported by the source.
type JobType int

const (
	JobTypeFullTime JobType = iota + 1
	JobTypePartTime
	JobTypeContract
	JobTypeTemporary
	JobTypeInternship
	JobTypeVolunteer
	JobTypeOther
)

var jobTypeNames = map[JobType]string{
	JobTypeFullTime:   "full-time",
	JobTypePartTime:   "part-time",
	JobTypeContract:   "contract",
	JobTypeTemporary:  "temporary",
	JobTypeInternship: "internship",
	JobTypeVolunteer:  "volunteer",
	JobTypeOther:      "other",
}

// jobTypeCodes are the source's own query-parameter values.
var jobTypeCodes = map[JobType]string{
	JobTypeFullTime:   "F",
	JobTypePartTime:   "P",
	JobTypeContract:   "C",
	JobTypeTemporary:  "T",
	JobTypeInternship: "I",
	JobTypeVolunteer:  "V",
	JobTypeOther:      "O",
}

func (t JobType) String() string {
	if n, ok := jobTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("JobType(%d)", int(t))
}

// Code returns the source filter code for t.
func (t JobType) Code() string { return jobTypeCodes[t] }

// ParseJobType accepts names like "full-time", "Full time" or "fulltime".
func ParseJobType(s string) (JobType, error) {
	key := normalizeEnum(s)
	for t, n := range jobTypeNames {
		if normalizeEnum(n) == key {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownJobType, s)
}

// RemoteType is the workplace filter supported by the source.
type RemoteType int

const (
	RemoteOnSite RemoteType = iota + 1
	RemoteRemote
	RemoteHybrid
)

var remoteTypeNames = map[RemoteType]string{
	RemoteOnSite: "on-site",
	RemoteRemote: "remote",
	RemoteHybrid: "hybrid",
}

var remoteTypeCodes = map[RemoteType]string{
	RemoteOnSite: "1",
	RemoteRemote: "2",
	RemoteHybrid: "3",
}

func (t RemoteType) String() string {
	if n, ok := remoteTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("RemoteType(%d)", int(t))
}

// Code returns the source filter code for t.
func (t RemoteType) Code() string { return remoteTypeCodes[t] }

// ParseRemoteType accepts "on-site", "onsite", "remote" or "hybrid".
func ParseRemoteType(s string) (RemoteType, error) {
	key := normalizeEnum(s)
	for t, n := range remoteTypeNames {
		if normalizeEnum(n) == key {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRemoteType, s)
}

// Recency is the posted-within window of a search.
type Recency int

const (
	RecencyAny Recency = iota
	RecencyDay
	RecencyWeek
	RecencyMonth
)

var recencyNames = map[Recency]string{
	RecencyAny:   "any",
	RecencyDay:   "past-24h",
	RecencyWeek:  "past-week",
	RecencyMonth: "past-month",
}

var recencyCodes = map[Recency]string{
	RecencyAny:   "",
	RecencyDay:   "r86400",
	RecencyWeek:  "r604800",
	RecencyMonth: "r2592000",
}

// Tighter windows hold fewer listings, so fewer pages are worth scanning.
var recencyMaxPages = map[Recency]int{
	RecencyAny:   20,
	RecencyDay:   4,
	RecencyWeek:  8,
	RecencyMonth: 15,
}

func (r Recency) String() string {
	if n, ok := recencyNames[r]; ok {
		return n
	}
	return fmt.Sprintf("Recency(%d)", int(r))
}

// Code returns the source filter code; empty for RecencyAny.
func (r Recency) Code() string { return recencyCodes[r] }

// MaxPages is the page bound for a crawl with this window.
func (r Recency) MaxPages() int {
	if n, ok := recencyMaxPages[r]; ok {
		return n
	}
	return recencyMaxPages[RecencyAny]
}

// ParseRecency accepts the canonical names plus "day", "week", "month" and "24h".
func ParseRecency(s string) (Recency, error) {
	key := normalizeEnum(s)
	switch key {
	case "", "any", "anytime":
		return RecencyAny, nil
	case "past24h", "24h", "day", "pastday":
		return RecencyDay, nil
	case "pastweek", "week":
		return RecencyWeek, nil
	case "pastmonth", "month":
		return RecencyMonth, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRecency, s)
}

// Frequency is how often a scheduled search runs.
type Frequency int

const (
	FrequencyEvery5Min Frequency = iota + 1
	FrequencyEvery15Min
	FrequencyEvery30Min
	FrequencyHourly
	FrequencyEvery4Hours
	FrequencyDaily
)

var frequencyNames = map[Frequency]string{
	FrequencyEvery5Min:   "every-5m",
	FrequencyEvery15Min:  "every-15m",
	FrequencyEvery30Min:  "every-30m",
	FrequencyHourly:      "hourly",
	FrequencyEvery4Hours: "every-4h",
	FrequencyDaily:       "daily",
}

var frequencyCron = map[Frequency]string{
	FrequencyEvery5Min:   "0,5,10,15,20,25,30,35,40,45,50,55 * * * *",
	FrequencyEvery15Min:  "0,15,30,45 * * * *",
	FrequencyEvery30Min:  "0,30 * * * *",
	FrequencyHourly:      "0 * * * *",
	FrequencyEvery4Hours: "0 0,4,8,12,16,20 * * *",
	FrequencyDaily:       "0 9 * * *",
}

// Frequencies lists every defined frequency in ascending interval order.
func Frequencies() []Frequency {
	return []Frequency{
		FrequencyEvery5Min,
		FrequencyEvery15Min,
		FrequencyEvery30Min,
		FrequencyHourly,
		FrequencyEvery4Hours,
		FrequencyDaily,
	}
}

func (f Frequency) String() string {
	if n, ok := frequencyNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// CronSpec returns the standard five-field cron expression for f.
func (f Frequency) CronSpec() (string, error) {
	spec, ok := frequencyCron[f]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownFrequency, int(f))
	}
	return spec, nil
}

// ParseFrequency accepts the canonical names, e.g. "every-5m" or "hourly".
func ParseFrequency(s string) (Frequency, error) {
	key := normalizeEnum(s)
	for f, n := range frequencyNames {
		if normalizeEnum(n) == key {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
}

// normalizeEnum lowercases s and drops spaces, dashes and underscores.
func normalizeEnum(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}
