package differ

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/records"
)

var titleKey = records.Key("Title")

func remote(id string, fields records.Record) records.RemoteRecord {
	return records.RemoteRecord{ID: id, Record: fields}
}

func TestDiffScenarios(t *testing.T) {
	tests := []struct {
		name     string
		existing records.RemoteSet
		updated  records.SourceSet
		want     *Changeset
	}{
		{
			name:     "unchanged",
			existing: records.RemoteSet{remote("1", records.Record{"Title": "P111", "Status": "Sent"})},
			updated:  records.SourceSet{{"Title": "P111", "Status": "Sent"}},
			want:     &Changeset{Unchanged: 1},
		},
		{
			name:     "update",
			existing: records.RemoteSet{remote("1", records.Record{"Title": "P111", "Status": "Sent"})},
			updated:  records.SourceSet{{"Title": "P111", "Status": "Partial Receipt"}},
			want: &Changeset{
				Updates:   map[string]records.Record{"1": {"Title": "P111", "Status": "Partial Receipt"}},
				UpdateIDs: []string{"1"},
			},
		},
		{
			name:    "insert",
			updated: records.SourceSet{{"Title": "P222"}},
			want:    &Changeset{Inserts: []records.Record{{"Title": "P222"}}},
		},
		{
			name:     "closure",
			existing: records.RemoteSet{remote("2", records.Record{"Title": "P333"})},
			want: &Changeset{
				Closures:    map[string]records.RemoteRecord{"P333": remote("2", records.Record{"Title": "P333"})},
				ClosureKeys: []string{"P333"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Diff(tt.existing, tt.updated, titleKey)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiffComparesOnlyPresentFields(t *testing.T) {
	existing := records.RemoteSet{remote("1", records.Record{"Title": "P1", "Status": "Sent", "Notes": "keep me"})}
	updated := records.SourceSet{{"Title": "P1", "Status": "Sent"}}

	cs, err := Diff(existing, updated, titleKey)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.Unchanged)
	assert.Empty(t, cs.Updates)
}

func TestDiffAbsentRemoteFieldEqualsNil(t *testing.T) {
	existing := records.RemoteSet{remote("1", records.Record{"Title": "P1"})}
	updated := records.SourceSet{{"Title": "P1", "Contract": nil}}

	cs, err := Diff(existing, updated, titleKey)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.Unchanged)
}

func TestDiffTypeMismatchIsUpdate(t *testing.T) {
	existing := records.RemoteSet{remote("1", records.Record{"Title": "P1", "Amount": "10"})}
	updated := records.SourceSet{{"Title": "P1", "Amount": float64(10)}}

	cs, err := Diff(existing, updated, titleKey)
	require.NoError(t, err)
	assert.Contains(t, cs.Updates, "1")
}

func TestDiffProperties(t *testing.T) {
	existing := records.RemoteSet{
		remote("1", records.Record{"Title": "P1", "Status": "Sent"}),
		remote("2", records.Record{"Title": "P2", "Status": "Sent"}),
		remote("3", records.Record{"Title": "P3", "Status": "Sent"}),
		remote("4", records.Record{"Title": "P4", "Status": "Sent"}),
	}
	updated := records.SourceSet{
		{"Title": "P5", "Status": "Sent"},
		{"Title": "P1", "Status": "Sent"},
		{"Title": "P3", "Status": "Returned"},
		{"Title": "P6", "Status": "Sent"},
	}

	first, err := Diff(existing, updated, titleKey)
	require.NoError(t, err)

	t.Run("idempotent", func(t *testing.T) {
		second, err := Diff(existing, updated, titleKey)
		require.NoError(t, err)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("second Diff() differs (-first +second):\n%s", diff)
		}
	})

	t.Run("coverage", func(t *testing.T) {
		assert.Equal(t, len(updated), first.Summary().Total())
		assert.Equal(t, []records.Record{updated[0], updated[3]}, first.Inserts)
		assert.Equal(t, []string{"3"}, first.UpdateIDs)
		assert.Equal(t, 1, first.Unchanged)
	})

	t.Run("closure completeness", func(t *testing.T) {
		assert.Equal(t, []string{"P2", "P4"}, first.ClosureKeys)
		assert.Equal(t, "2", first.Closures["P2"].ID)
		assert.Equal(t, "4", first.Closures["P4"].ID)
		for _, id := range first.UpdateIDs {
			assert.NotEqual(t, "2", id)
			assert.NotEqual(t, "4", id)
		}
	})

	t.Run("inputs untouched", func(t *testing.T) {
		assert.Len(t, existing, 4)
		assert.Equal(t, "Returned", updated[2]["Status"])
	})

	t.Run("summary", func(t *testing.T) {
		assert.True(t, first.HasChanges())
		assert.Equal(t, "2 inserted, 1 updated, 2 closed", first.String())
	})
}

func TestDiffTracking(t *testing.T) {
	existing := records.RemoteSet{remote("1", records.Record{"Title": "P1", "Status": "Sent", "Amount": float64(1)})}
	updated := records.SourceSet{{"Title": "P1", "Status": "Returned", "Amount": float64(2)}}

	t.Run("first difference only", func(t *testing.T) {
		cs, err := Diff(existing, updated, titleKey)
		require.NoError(t, err)
		assert.Empty(t, cs.Changes)
	})

	t.Run("all differences", func(t *testing.T) {
		cs, err := Diff(existing, updated, titleKey, WithTracking(true))
		require.NoError(t, err)
		assert.Equal(t, []FieldChange{
			{Field: "Amount", OldValue: float64(1), NewValue: float64(2)},
			{Field: "Status", OldValue: "Sent", NewValue: "Returned"},
		}, cs.Changes["1"])
	})

	t.Run("ignored fields", func(t *testing.T) {
		cs, err := Diff(existing, updated, titleKey, WithIgnoredFields("Status", "Amount"))
		require.NoError(t, err)
		assert.Equal(t, 1, cs.Unchanged)
	})
}

func TestDiffDuplicateKeys(t *testing.T) {
	t.Run("source duplicates fail fast", func(t *testing.T) {
		updated := records.SourceSet{{"Title": "P1", "Status": "A"}, {"Title": "P1", "Status": "B"}}
		_, err := Diff(nil, updated, titleKey, WithEntity("PurchaseOrder"))
		require.Error(t, err)
		assert.True(t, pkgerrors.IsDuplicateKey(err))
		assert.Contains(t, err.Error(), "PurchaseOrder")
	})

	t.Run("remote duplicates fail fast", func(t *testing.T) {
		existing := records.RemoteSet{remote("1", records.Record{"Title": "P1"}), remote("2", records.Record{"Title": "P1"})}
		_, err := Diff(existing, nil, titleKey)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsDuplicateKey(err))
	})

	t.Run("last wins", func(t *testing.T) {
		existing := records.RemoteSet{
			remote("1", records.Record{"Title": "P1", "Status": "A"}),
			remote("2", records.Record{"Title": "P1", "Status": "B"}),
		}
		updated := records.SourceSet{{"Title": "P1", "Status": "C"}, {"Title": "P1", "Status": "B"}}
		cs, err := Diff(existing, updated, titleKey, WithLastWins())
		require.NoError(t, err)
		assert.Equal(t, 1, cs.Unchanged)
		assert.Empty(t, cs.Inserts)
		assert.Empty(t, cs.Closures)
	})
}

func TestDiffRejectsUnaddressableRecords(t *testing.T) {
	t.Run("source without key", func(t *testing.T) {
		_, err := Diff(nil, records.SourceSet{{"Status": "Sent"}}, titleKey)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("remote without key is left alone", func(t *testing.T) {
		existing := records.RemoteSet{remote("7", records.Record{"Status": "Sent"})}
		cs, err := Diff(existing, nil, titleKey)
		require.NoError(t, err)
		assert.Empty(t, cs.Closures)
		require.Len(t, cs.Unkeyed, 1)
		assert.Equal(t, "7", cs.Unkeyed[0].ID)
	})

	t.Run("empty key spec", func(t *testing.T) {
		_, err := Diff(nil, nil, records.KeySpec{})
		assert.Error(t, err)
	})
}

func TestDiffCompositeKey(t *testing.T) {
	key := records.Key("PO Number", "Document Number")
	existing := records.RemoteSet{remote("10", records.Record{"PO Number": "P1", "Document Number": "D1", "Status": "Open"})}
	updated := records.SourceSet{
		{"PO Number": "P1", "Document Number": "D1", "Status": "Open"},
		{"PO Number": "P1", "Document Number": "D2", "Status": "Open"},
	}

	cs, err := Diff(existing, updated, key)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.Unchanged)
	assert.Len(t, cs.Inserts, 1)
}

func TestChangesetString(t *testing.T) {
	cs := newChangeset("Vendor")
	assert.True(t, cs.IsEmpty())
	assert.Equal(t, "No changes detected", cs.String())

	cs.Inserts = append(cs.Inserts, records.Record{"Vendor ID": "1"})
	assert.Equal(t, "Vendor: 1 inserted", cs.String())
}
