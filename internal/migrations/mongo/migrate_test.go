package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections_HaveValidatorsAndIndexes(t *testing.T) {
	for _, name := range []string{"Bookings", "Booking_locks", "Rooms", "Experiences"} {
		def, ok := Collections()[name]
		if !ok {
			t.Errorf("collection %s not migrated", name)
			continue
		}
		if _, ok := def.Validator["$jsonSchema"]; !ok {
			t.Errorf("collection %s has no $jsonSchema validator", name)
		}
		if len(def.Indexes) == 0 {
			t.Errorf("collection %s has no indexes", name)
		}
	}
}

func TestBookingLocksIndex_IsTTL(t *testing.T) {
	idx := BookingLocksIndexes[0]
	if idx.Options == nil || idx.Options.ExpireAfterSeconds == nil || *idx.Options.ExpireAfterSeconds != 0 {
		t.Fatal("expires_at index must be a TTL index expiring at the stored time")
	}
	keys, ok := idx.Keys.(bson.D)
	if !ok || keys[0].Key != "expires_at" {
		t.Errorf("unexpected keys %v", idx.Keys)
	}
}

func TestRoomGuards_Migrated(t *testing.T) {
	def, ok := Collections()["Room_guards"]
	if !ok {
		t.Fatal("room guard collection not migrated")
	}
	if _, ok := def.Validator["$jsonSchema"]; !ok {
		t.Error("room guard collection has no $jsonSchema validator")
	}
}
