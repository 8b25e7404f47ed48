package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// secondsValue is a duration flag that takes a plain number of seconds
// ("1.0", "0.5") or a Go duration ("1s", "500ms").
type secondsValue time.Duration

func (v *secondsValue) String() string {
	return strconv.FormatFloat(time.Duration(*v).Seconds(), 'f', -1, 64)
}

func (v *secondsValue) Set(s string) error {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return fmt.Errorf("invalid interval %q", s)
		}
		*v = secondsValue(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid interval %q: want seconds (1.0) or a duration (1s)", s)
	}
	*v = secondsValue(d)
	return nil
}

func (v *secondsValue) Type() string { return "seconds" }
