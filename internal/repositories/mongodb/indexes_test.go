package mongodb

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func indexKeys(t *testing.T, collection string) [][]string {
	t.Helper()
	var out [][]string
	for _, m := range indexModels()[collection] {
		keys, ok := m.Keys.(bson.D)
		if !ok {
			t.Fatalf("%s: expected ordered keys, got %T", collection, m.Keys)
		}
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.Key
		}
		out = append(out, names)
	}
	return out
}

func TestIndexModels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		collection string
		want       []string
	}{
		{collection: "tickets", want: []string{"raffleId", "ticketNumber"}},
		{collection: "tickets", want: []string{"raffleId", "status"}},
		{collection: "tickets", want: []string{"status", "reservedAt"}},
		{collection: "payments", want: []string{"raffleId", "status"}},
		{collection: "payments", want: []string{"status", "createdAt"}},
		{collection: "users", want: []string{"email"}},
	}
	for _, tt := range tests {
		found := false
		for _, keys := range indexKeys(t, tt.collection) {
			if reflect.DeepEqual(keys, tt.want) {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s: missing index on %v", tt.collection, tt.want)
		}
	}

	unique := indexModels()["tickets"][0]
	if unique.Options == nil || unique.Options.Unique == nil || !*unique.Options.Unique {
		t.Fatalf("expected (raffleId, ticketNumber) to be unique")
	}
}
