package table_test

import (
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/calvinalkan/reqtsv/internal/record"
	"github.com/calvinalkan/reqtsv/internal/table"
)

// cellRunes never includes a tab or a raw line break. The backslash and 'n'
// make escaped line breaks show up regularly.
var cellRunes = []rune(`abcXYZ 019 \n"'#=[]{}äöü€日本`)

func randomCell(r *rand.Rand, size int) string {
	n := r.Intn(size + 1)

	var b strings.Builder
	for range n {
		b.WriteRune(cellRunes[r.Intn(len(cellRunes))])
	}

	return b.String()
}

func randomTime(r *rand.Rand) time.Time {
	return time.Unix(r.Int63n(4_000_000_000), r.Int63n(1_000_000_000)).In(time.Local)
}

type componentRows []record.Component

func (componentRows) Generate(r *rand.Rand, size int) reflect.Value {
	rows := make(componentRows, r.Intn(size+1))
	for i := range rows {
		rows[i] = record.Component{
			ID:          r.Uint64(),
			Name:        randomCell(r, size),
			Description: randomCell(r, size),
			Created:     randomTime(r),
			Status:      record.Statuses()[r.Intn(3)],
			Author:      randomCell(r, size),
		}
	}

	return reflect.ValueOf(rows)
}

type requirementRows []record.Requirement

func (requirementRows) Generate(r *rand.Rand, size int) reflect.Value {
	rows := make(requirementRows, r.Intn(size+1))
	for i := range rows {
		rows[i] = record.Requirement{
			ID:          uint64(r.Intn(1000)),
			ComponentID: uint64(r.Intn(1000)),
			Title:       randomCell(r, size),
			Functional:  record.Functionalities()[r.Intn(2)],
			Created:     randomTime(r),
			Text:        randomCell(r, size),
			Version:     r.Uint64(),
			Author:      randomCell(r, size),
			Priority:    record.Priorities()[r.Intn(4)],
			Status:      record.Statuses()[r.Intn(3)],
			Risks:       randomCell(r, size),
		}
	}

	return reflect.ValueOf(rows)
}

func Test_Codec_RoundTrips_Components_When_Records_Are_Valid(t *testing.T) {
	t.Parallel()

	roundTrip := func(rows componentRows) bool {
		data, err := table.Encode(record.ComponentSchema, rows)
		if err != nil {
			t.Logf("encode: %v", err)

			return false
		}

		got, err := table.Decode(record.ComponentSchema, data)
		if err != nil {
			t.Logf("decode: %v", err)

			return false
		}

		if diff := cmp.Diff([]record.Component(rows), got, cmpopts.EquateEmpty()); diff != "" {
			t.Logf("round trip mismatch (-want +got):\n%s", diff)

			return false
		}

		return true
	}

	err := quick.Check(roundTrip, &quick.Config{MaxCount: 200, Rand: rand.New(rand.NewSource(1))})
	if err != nil {
		t.Fatal(err)
	}
}

func Test_Codec_RoundTrips_Requirements_When_Records_Are_Valid(t *testing.T) {
	t.Parallel()

	roundTrip := func(rows requirementRows) bool {
		data, err := table.Encode(record.RequirementSchema, rows)
		if err != nil {
			t.Logf("encode: %v", err)

			return false
		}

		got, err := table.Decode(record.RequirementSchema, data)
		if err != nil {
			t.Logf("decode: %v", err)

			return false
		}

		if diff := cmp.Diff([]record.Requirement(rows), got, cmpopts.EquateEmpty()); diff != "" {
			t.Logf("round trip mismatch (-want +got):\n%s", diff)

			return false
		}

		return true
	}

	err := quick.Check(roundTrip, &quick.Config{MaxCount: 200, Rand: rand.New(rand.NewSource(2))})
	if err != nil {
		t.Fatal(err)
	}
}

func Test_Encode_Writes_Header_Only_When_Table_Is_Empty(t *testing.T) {
	t.Parallel()

	data, err := table.Encode(record.ComponentSchema, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if got, want := string(data), "id\tname\tdescription\tcreation_date\tstatus\tauthor\n"; got != want {
		t.Fatalf("data=%q, want=%q", got, want)
	}
}

func Test_Encode_Fails_When_Cell_Contains_Tab(t *testing.T) {
	t.Parallel()

	rows := []record.Component{{Name: "a\tb", Created: time.Unix(0, 0)}}

	_, err := table.Encode(record.ComponentSchema, rows)
	if !errors.Is(err, table.ErrInvalidCell) {
		t.Fatalf("err=%v, want ErrInvalidCell", err)
	}
}

const componentHeader = "id\tname\tdescription\tcreation_date\tstatus\tauthor"

func Test_Decode_Reports_Corrupt_Line(t *testing.T) {
	t.Parallel()

	row := "0\tSensor\tdesc\t2024-01-02T03:04:05Z\tAccepted\tA"

	tests := []struct {
		name     string
		data     string
		wantLine int
	}{
		{name: "header mismatch", data: "id\tname\n", wantLine: 1},
		{name: "empty file", data: "", wantLine: 1},
		{name: "too few columns", data: componentHeader + "\n" + row + "\n1\tonly\n", wantLine: 3},
		{name: "bad id", data: componentHeader + "\nx" + row[1:] + "\n", wantLine: 2},
		{name: "bad status", data: componentHeader + "\n" + strings.Replace(row, "Accepted", "Gone", 1) + "\n", wantLine: 2},
		{name: "bad date", data: componentHeader + "\n" + strings.Replace(row, "2024-01-02T03:04:05Z", "yesterday", 1) + "\n", wantLine: 2},
		{name: "interior carriage return", data: componentHeader + "\n" + strings.Replace(row, "desc", "de\rsc", 1) + "\n", wantLine: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := table.Decode(record.ComponentSchema, []byte(tt.data))
			if !errors.Is(err, table.ErrCorruptRecord) {
				t.Fatalf("err=%v, want ErrCorruptRecord", err)
			}

			var corrupt *table.CorruptError
			if !errors.As(err, &corrupt) {
				t.Fatalf("err=%T, want *table.CorruptError", err)
			}

			if got, want := corrupt.Line, tt.wantLine; got != want {
				t.Fatalf("line=%d, want=%d (err: %v)", got, want, err)
			}
		})
	}
}

func Test_Decode_Tolerates_CRLF_And_Blank_Lines(t *testing.T) {
	t.Parallel()

	data := componentHeader + "\r\n" +
		"0\tSensor\tline one\\nline two\t2024-01-02T03:04:05Z\tAccepted\tA\r\n" +
		"\n" +
		"1\tActuator\t\t2024-01-03T03:04:05.5+02:00\tDeleted\tB\n\n"

	got, err := table.Decode(record.ComponentSchema, []byte(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := []record.Component{
		{
			ID:          0,
			Name:        "Sensor",
			Description: `line one\nline two`,
			Created:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			Status:      record.StatusAccepted,
			Author:      "A",
		},
		{
			ID:      1,
			Name:    "Actuator",
			Created: time.Date(2024, 1, 3, 1, 4, 5, 500_000_000, time.UTC),
			Status:  record.StatusDeleted,
			Author:  "B",
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}
