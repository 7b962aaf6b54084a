package postgres

import (
	"strings"
	"testing"

	bookingrepo "staybook/internal/bookings/repository"
)

func TestStatements_OverlapConstraintIsInclusive(t *testing.T) {
	var found bool
	for _, stmt := range Statements {
		if !strings.Contains(stmt.SQL, bookingrepo.RoomOverlapConstraint) {
			continue
		}
		found = true
		if !strings.Contains(stmt.SQL, `daterange(check_in, check_out, '[]')`) {
			t.Error("overlap constraint must use a closed date range")
		}
		if !strings.Contains(stmt.SQL, "WHERE (kind = 'room')") {
			t.Error("overlap constraint must only cover room bookings")
		}
	}
	if !found {
		t.Fatal("overlap constraint statement missing")
	}
}

func TestStatements_ExtensionFirst(t *testing.T) {
	if !strings.Contains(Statements[0].SQL, "btree_gist") {
		t.Error("btree_gist must be created before the exclusion constraint")
	}
}
