// internal/natsort/natsort.go
package natsort

import "sort"

// Less compares a and b treating runs of digits as numbers, so that
// "barcode2" sorts before "barcode10". Ties on numeric value (leading
// zeros) fall back to the shorter digit run first, then bytewise.
func Less(a, b string) bool { return compare(a, b) < 0 }

func compare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		da, db := isDigit(ca), isDigit(cb)
		switch {
		case da && db:
			// Compare the full digit runs by value.
			ia, ea := digitRun(a, i)
			ib, eb := digitRun(b, j)
			if c := compareDigits(a[ia:ea], b[ib:eb]); c != 0 {
				return c
			}
			// Equal values: fewer leading zeros wins.
			if la, lb := ea-ia, eb-ib; la != lb {
				if la < lb {
					return -1
				}
				return 1
			}
			i, j = ea, eb
		case ca != cb:
			if ca < cb {
				return -1
			}
			return 1
		default:
			i++
			j++
		}
	}
	switch {
	case i < len(a):
		return 1
	case j < len(b):
		return -1
	}
	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func digitRun(s string, i int) (start, end int) {
	start = i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return start, i
}

// compareDigits compares two digit strings by numeric value without
// overflowing: strip leading zeros, then longer is larger, then bytewise.
func compareDigits(a, b string) int {
	a, b = trimZeros(a), trimZeros(b)
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func trimZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}

// Strings sorts ss in natural order, stably.
func Strings(ss []string) {
	sort.SliceStable(ss, func(i, j int) bool { return Less(ss[i], ss[j]) })
}
