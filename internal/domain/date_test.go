package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain date", "1990-01-15", "1990-01-15", false},
		{"rfc3339 keeps calendar day", "1990-01-15T23:30:00+01:00", "1990-01-15", false},
		{"padded", "  1985-06-22 ", "1985-06-22", false},
		{"garbage", "15/01/1990", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v; wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("ParseDate(%q) = %s; want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestDate_EqualAcrossInputs(t *testing.T) {
	a, _ := ParseDate("2000-03-04")
	b, _ := ParseDate("2000-03-04T08:00:00Z")
	if !a.Equal(b) {
		t.Errorf("%v and %v should be the same day", a, b)
	}
}

func TestDate_AgeAt(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		dob  string
		want int
	}{
		{"2000-10-14", 26},
		{"2000-10-15", 26},
		{"2000-10-16", 25},
		{"2008-10-16", 17},
		{"2000-02-29", 26},
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.dob)
		if err != nil {
			t.Fatal(err)
		}
		if got := d.AgeAt(now); got != tt.want {
			t.Errorf("AgeAt(%s) = %d; want %d", tt.dob, got, tt.want)
		}
	}
}

func TestDate_JSON(t *testing.T) {
	var c struct {
		DOB  *Date `json:"dob"`
		Zero Date  `json:"zero"`
	}
	if err := json.Unmarshal([]byte(`{"dob":"1990-01-15","zero":null}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.DOB == nil || c.DOB.String() != "1990-01-15" {
		t.Fatalf("DOB = %v", c.DOB)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"dob":"1990-01-15","zero":null}` {
		t.Errorf("marshal = %s", raw)
	}
}

func TestDate_Scan(t *testing.T) {
	var d Date
	if err := d.Scan("1990-01-15 00:00:00+00:00"); err != nil {
		t.Fatalf("Scan string: %v", err)
	}
	if d.String() != "1990-01-15" {
		t.Errorf("Scan string = %s", d)
	}
	if err := d.Scan(time.Date(1985, 6, 22, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan time: %v", err)
	}
	if d.String() != "1985-06-22" {
		t.Errorf("Scan time = %s", d)
	}
	if err := d.Scan(nil); err != nil || !d.IsZero() {
		t.Errorf("Scan nil = %v, %v", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Error("Scan int should fail")
	}
}
