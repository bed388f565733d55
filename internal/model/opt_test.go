package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemPatchDecoding(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantSet   bool
		wantNull  bool
		wantValue string
	}{
		{"absent", `{}`, false, false, ""},
		{"null", `{"addressId": null}`, true, true, ""},
		{"empty string", `{"addressId": ""}`, true, false, ""},
		{"value", `{"addressId": "a1"}`, true, false, "a1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p ItemPatch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, tt.wantSet, p.AddressID.Set)
			assert.Equal(t, tt.wantNull, p.AddressID.Null)
			assert.Equal(t, tt.wantValue, p.AddressID.Value)
		})
	}
}

func TestOptMerge(t *testing.T) {
	assert.Equal(t, "keep", Opt[string]{}.Merge("keep"))
	assert.Equal(t, "", Clear[string]().Merge("keep"))
	assert.Equal(t, "new", Some("new").Merge("keep"))

	cur := int64(5)
	assert.Equal(t, &cur, Opt[int64]{}.MergePtr(&cur))
	assert.Nil(t, Clear[int64]().MergePtr(&cur))
	got := Some[int64](0).MergePtr(&cur)
	require.NotNil(t, got)
	assert.Equal(t, int64(0), *got)
}

func TestOptMarshalOmitsUnset(t *testing.T) {
	type body struct {
		A Opt[string] `json:"a,omitzero"`
		B Opt[string] `json:"b,omitzero"`
		C Opt[string] `json:"c,omitzero"`
	}
	raw, err := json.Marshal(body{B: Clear[string](), C: Some("x")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"b": null, "c": "x"}`, string(raw))
}

func TestItemPatchApply(t *testing.T) {
	p := int64(100)
	it := Item{ID: "i1", Name: "Lamp", AddressID: "a1", Description: "old", PurchasePriceCents: &p, Tags: []string{"x"}}

	var patch ItemPatch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Floor lamp","description":null,"tags":[" a ",""]}`), &patch))
	out := patch.Apply(it)

	assert.Equal(t, "Floor lamp", out.Name)
	assert.Equal(t, "a1", out.AddressID)
	assert.Equal(t, "", out.Description)
	assert.Equal(t, &p, out.PurchasePriceCents)
	assert.Equal(t, []string{"a"}, out.Tags)
	assert.Equal(t, "old", it.Description, "Apply must not touch its input")
}

func TestNormalizeEmails(t *testing.T) {
	got := NormalizeEmails([]string{" A@B.com", "a@b.com", "", "c@d.e"})
	assert.Equal(t, []string{"a@b.com", "c@d.e"}, got)
	assert.NotNil(t, NormalizeEmails(nil))
}

func TestEmptyPatchEncodesAsEmptyObject(t *testing.T) {
	raw, err := json.Marshal(ItemPatch{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))

	raw, err = json.Marshal(ItemPatch{AddressID: Clear[string]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"addressId": null}`, string(raw))
}
