package units

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var ErrNegative = errors.New("number of bytes can't be smaller than 0")

const step = 1024.0

var ladder = []string{"bytes", "KB", "MB", "GB", "TB"}

// HumanBytes renders n with the largest unit up to TB that keeps the value at
// or above 1, rounded to precision digits. The value is printed in its
// shortest form with at least one decimal, so 1073741824 at precision 2 is
// "1.0 GB" and 1536 at precision 1 is "1.5 KB".
func HumanBytes(n int64, precision int) (string, error) {
	if n < 0 {
		return "", ErrNegative
	}
	if precision < 0 {
		precision = 0
	}
	v := float64(n)
	unit := 0
	for unit < len(ladder)-1 && v/step >= 1 {
		v /= step
		unit++
	}
	return formatRounded(v, precision) + " " + ladder[unit], nil
}

// MustHumanBytes is HumanBytes for counters already known to be non-negative.
func MustHumanBytes(n int64, precision int) string {
	s, err := HumanBytes(n, precision)
	if err != nil {
		panic(err)
	}
	return s
}

// Comma groups a raw byte count by thousands, e.g. 1,536.
func Comma(n int64) string {
	return humanize.Comma(n)
}

func formatRounded(v float64, precision int) string {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', precision, 64), 64)
	if err != nil || math.IsInf(rounded, 0) {
		rounded = v
	}
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
