package console

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mcdev12/quizhub/go/internal/models"
)

type recorder struct {
	presses []models.Press
}

func (r *recorder) SubmitPress(p models.Press) bool {
	r.presses = append(r.presses, p)
	return true
}

func TestClassify(t *testing.T) {
	tests := []struct {
		hold time.Duration
		want models.Press
	}{
		{0, models.PressNone},
		{100 * time.Millisecond, models.PressShort},
		{599 * time.Millisecond, models.PressShort},
		{600 * time.Millisecond, models.PressNone},
		{1199 * time.Millisecond, models.PressNone},
		{1200 * time.Millisecond, models.PressLong},
		{3999 * time.Millisecond, models.PressLong},
		{4 * time.Second, models.PressVeryLong},
	}
	for _, tt := range tests {
		if got := Classify(tt.hold); got != tt.want {
			t.Fatalf("Classify(%s) = %v, want %v", tt.hold, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want models.Press
	}{
		{"s", models.PressShort},
		{" LONG ", models.PressLong},
		{"very_long", models.PressVeryLong},
		{"250ms", models.PressShort},
		{"1.5s", models.PressLong},
		{"5s", models.PressVeryLong},
	}
	for _, tt := range tests {
		got, err := Parse(tt.line)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tt.line, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}

	for _, line := range []string{"x", "900ms", "-1s"} {
		if _, err := Parse(line); !errors.Is(err, ErrUnknownPress) {
			t.Fatalf("Parse(%q) error = %v, want ErrUnknownPress", line, err)
		}
	}
}

func TestRunSubmitsPresses(t *testing.T) {
	input := "# warm up\ns\n\nbogus\nl\n4s\n"
	rec := &recorder{}

	if err := Run(context.Background(), strings.NewReader(input), rec); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []models.Press{models.PressShort, models.PressLong, models.PressVeryLong}
	if !reflect.DeepEqual(rec.presses, want) {
		t.Fatalf("presses = %v, want %v", rec.presses, want)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, w := io.Pipe()
	defer w.Close()

	if err := Run(ctx, r, &recorder{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}
