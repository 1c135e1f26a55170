package model

import (
	"errors"
	"testing"

	"github.com/robfig/cron/v3"
)

func TestParseJobType_AcceptsLooseSpelling(t *testing.T) {
	for _, in := range []string{"full-time", "Full Time", "fulltime", " FULL_TIME "} {
		got, err := ParseJobType(in)
		if err != nil {
			t.Fatalf("ParseJobType(%q): %v", in, err)
		}
		if got != JobTypeFullTime {
			t.Errorf("ParseJobType(%q) = %v, want full-time", in, got)
		}
	}
}

func TestParseJobType_UnknownReturnsTypedError(t *testing.T) {
	_, err := ParseJobType("gig")
	if !errors.Is(err, ErrUnknownJobType) {
		t.Fatalf("err = %v, want ErrUnknownJobType", err)
	}
}

func TestJobTypeCodes(t *testing.T) {
	want := map[JobType]string{
		JobTypeFullTime: "F", JobTypePartTime: "P", JobTypeContract: "C",
		JobTypeTemporary: "T", JobTypeInternship: "I", JobTypeVolunteer: "V", JobTypeOther: "O",
	}
	for jt, code := range want {
		if jt.Code() != code {
			t.Errorf("%v.Code() = %q, want %q", jt, jt.Code(), code)
		}
	}
}

func TestParseRemoteType(t *testing.T) {
	got, err := ParseRemoteType("OnSite")
	if err != nil || got != RemoteOnSite {
		t.Fatalf("ParseRemoteType(OnSite) = %v, %v", got, err)
	}
	if _, err := ParseRemoteType("moon"); !errors.Is(err, ErrUnknownRemoteType) {
		t.Errorf("err = %v, want ErrUnknownRemoteType", err)
	}
}

func TestParseRecency(t *testing.T) {
	cases := map[string]Recency{
		"":           RecencyAny,
		"any":        RecencyAny,
		"24h":        RecencyDay,
		"past-week":  RecencyWeek,
		"Past Month": RecencyMonth,
	}
	for in, want := range cases {
		got, err := ParseRecency(in)
		if err != nil {
			t.Fatalf("ParseRecency(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseRecency(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseRecency("fortnight"); !errors.Is(err, ErrUnknownRecency) {
		t.Errorf("err = %v, want ErrUnknownRecency", err)
	}
}

func TestRecencyMaxPages_TighterWindowScansFewerPages(t *testing.T) {
	if !(RecencyDay.MaxPages() < RecencyWeek.MaxPages() &&
		RecencyWeek.MaxPages() < RecencyMonth.MaxPages() &&
		RecencyMonth.MaxPages() < RecencyAny.MaxPages()) {
		t.Errorf("max pages not monotonic: day=%d week=%d month=%d any=%d",
			RecencyDay.MaxPages(), RecencyWeek.MaxPages(), RecencyMonth.MaxPages(), RecencyAny.MaxPages())
	}
}

func TestFrequencyCronSpec_TotalAndParseable(t *testing.T) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for _, f := range Frequencies() {
		spec, err := f.CronSpec()
		if err != nil {
			t.Fatalf("%v.CronSpec(): %v", f, err)
		}
		if _, err := parser.Parse(spec); err != nil {
			t.Errorf("%v spec %q does not parse: %v", f, spec, err)
		}
	}
	if _, err := Frequency(99).CronSpec(); !errors.Is(err, ErrUnknownFrequency) {
		t.Errorf("err = %v, want ErrUnknownFrequency", err)
	}
}

func TestFrequencyCronSpec_Every4HoursHasSixSlots(t *testing.T) {
	spec, _ := FrequencyEvery4Hours.CronSpec()
	if spec != "0 0,4,8,12,16,20 * * *" {
		t.Errorf("spec = %q", spec)
	}
}

func TestParseFrequency_RoundTrips(t *testing.T) {
	for _, f := range Frequencies() {
		got, err := ParseFrequency(f.String())
		if err != nil {
			t.Fatalf("ParseFrequency(%q): %v", f.String(), err)
		}
		if got != f {
			t.Errorf("ParseFrequency(%q) = %v", f.String(), got)
		}
	}
}

func TestSearchCriteriaValidate(t *testing.T) {
	ok := SearchCriteria{Keywords: "golang", JobTypes: []JobType{JobTypeFullTime}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if err := (SearchCriteria{}).Validate(); err == nil {
		t.Error("expected error for empty keywords")
	}

	long := make([]byte, MaxFilterTextLen+1)
	for i := range long {
		long[i] = 'x'
	}
	if err := (SearchCriteria{Keywords: "go", FilterText: string(long)}).Validate(); err == nil {
		t.Error("expected error for over-long filter text")
	}
}
