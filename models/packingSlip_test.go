package models

import (
	"regexp"
	"testing"
)

func TestNewSlipNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^PS-\d{8}-[0-9a-f]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		n := newSlipNumber()
		if !pattern.MatchString(n) {
			t.Fatalf("slip number %q does not match PS-YYYYMMDD-xxxxxxxx", n)
		}
		if seen[n] {
			t.Fatalf("slip number %q generated twice", n)
		}
		seen[n] = true
	}
}
