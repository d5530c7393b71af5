package dates

import (
	"testing"
	"time"
)

var now = time.Date(2024, time.March, 15, 18, 30, 0, 0, time.UTC)

func TestParse_Today(t *testing.T) {
	got := Parse("Сегодня 12:40", now)
	want := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParse_Yesterday(t *testing.T) {
	got := Parse("Вчера 09:15", now)
	want := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParse_DayMonth(t *testing.T) {
	got := Parse("12 марта 10:00", now)
	want := time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParse_YearRollback(t *testing.T) {
	jan := time.Date(2024, time.January, 5, 12, 0, 0, 0, time.UTC)
	got := Parse("31 декабря", jan)
	want := time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParse_Unparseable(t *testing.T) {
	for _, text := range []string{"", "несколько секунд назад", "garbage", "99 мартобря"} {
		if got := Parse(text, now); !got.Equal(Epoch) {
			t.Fatalf("Parse(%q) = %v, expected epoch sentinel", text, got)
		}
	}
}

func TestParse_Pure(t *testing.T) {
	a := Parse("5 мая", now)
	b := Parse("5 мая", now)
	if !a.Equal(b) {
		t.Fatalf("expected deterministic result, got %v and %v", a, b)
	}
}
