package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEditRequestStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    EditRequestStatus
		wantErr bool
	}{
		{"Pending", StatusPending, false},
		{"reviewed", StatusReviewed, false},
		{"APPROVED", StatusApproved, false},
		{" rejected ", StatusRejected, false},
		{"done", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEditRequestStatus(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEditRequestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusReviewed))
	assert.True(t, StatusPending.CanTransitionTo(StatusApproved))
	assert.True(t, StatusPending.CanTransitionTo(StatusRejected))
	assert.False(t, StatusPending.CanTransitionTo(StatusPending))

	for _, terminal := range []EditRequestStatus{StatusApproved, StatusRejected} {
		assert.True(t, terminal.IsTerminal())
		for _, next := range editRequestStatuses {
			assert.False(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}

	assert.False(t, StatusReviewed.CanTransitionTo(StatusApproved))
	assert.False(t, EditRequestStatus("Other").Valid())
}

func TestBusinessUpdate_UnmarshalAcceptsBareID(t *testing.T) {
	var deletes []BusinessUpdate
	require.NoError(t, json.Unmarshal([]byte(`["B1", {"id":"B2","name":"Shop"}]`), &deletes))

	require.Len(t, deletes, 2)
	assert.Equal(t, "B1", deletes[0].ID)
	assert.Nil(t, deletes[0].Name)
	assert.Equal(t, "B2", deletes[1].ID)
	require.NotNil(t, deletes[1].Name)
	assert.Equal(t, "Shop", *deletes[1].Name)
}

func TestBusinessUpdate_ApplyTo(t *testing.T) {
	name := "New Name"
	year := 2022
	b := Business{ID: "B1", Name: "Old", RegionID: "R1", Industry: "Retail", YearAdded: 2020, Employees: 4}

	out := BusinessUpdate{ID: "B1", Name: &name, YearAdded: &year}.ApplyTo(b)

	assert.Equal(t, "New Name", out.Name)
	assert.Equal(t, 2022, out.YearAdded)
	assert.Equal(t, "Retail", out.Industry)
	assert.Equal(t, 4, out.Employees)
	assert.Equal(t, "Old", b.Name)
}

func TestEditRequest_MergeAndNormalize(t *testing.T) {
	req := EditRequest{RegionID: "R1", Status: StatusPending}
	region := "R2"
	adds := []Business{{Name: "A"}}

	req.Merge(EditRequestPatch{RegionID: &region, Adds: &adds})

	assert.Equal(t, "R2", req.RegionID)
	assert.Equal(t, StatusPending, req.Status)
	assert.Len(t, req.Adds, 1)
	assert.NotNil(t, req.Updates)
	assert.NotNil(t, req.Deletes)

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"deletes":[]`)
}

func TestPage_Clamp(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Page{}.Clamp().Size)
	assert.Equal(t, MaxPageSize, Page{Size: 1000}.Clamp().Size)
	assert.Equal(t, 10, Page{Size: 10}.Clamp().Size)
}

func TestIdentity_CanManage(t *testing.T) {
	region := Region{ID: "R1", Manager: "u1"}

	assert.True(t, Identity{UserAppID: "u1"}.CanManage(region))
	assert.True(t, Identity{UserAppID: "boss", Admin: true}.CanManage(region))
	assert.False(t, Identity{UserAppID: "u2"}.CanManage(region))
	assert.False(t, Identity{}.CanManage(Region{ID: "R2"}))
}
