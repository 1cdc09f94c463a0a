package mapping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableRejectsDuplicateDualRoleInput(t *testing.T) {
	_, err := NewTable([]DualRole{
		{Input: 58, Hold: []KeyCode{29}, Tap: []KeyCode{1}},
		{Input: 58, Hold: []KeyCode{97}, Tap: []KeyCode{1}},
	}, nil, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate dual_role input")
}

func TestNewTableRejectsDuplicateRemapInputSet(t *testing.T) {
	_, err := NewTable(nil, []Remap{
		{Input: []KeyCode{56, 62}, Output: []KeyCode{115}},
		{Input: []KeyCode{62, 56}, Output: []KeyCode{114}}, // same set, different order
	}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate remap input set")
}

func TestNewTableRejectsDualRoleInputAlsoUsedAsChordInput(t *testing.T) {
	_, err := NewTable(
		[]DualRole{{Input: 56, Hold: []KeyCode{29}, Tap: []KeyCode{1}}},
		[]Remap{{Input: []KeyCode{56, 62}, Output: []KeyCode{115}}},
		time.Second,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both a dual_role input and a remap input")
}

func TestNewTableDefaultsHoldTimeout(t *testing.T) {
	tbl, err := NewTable(nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultHoldTimeout, tbl.HoldTimeout)
}

func TestRemapSatisfied(t *testing.T) {
	r := Remap{Input: []KeyCode{56, 62}, Output: []KeyCode{115}}
	assert.False(t, r.Satisfied(map[KeyCode]bool{56: true}))
	assert.True(t, r.Satisfied(map[KeyCode]bool{56: true, 62: true}))
}

func TestOutputCodesUnion(t *testing.T) {
	tbl, err := NewTable(
		[]DualRole{{Input: 58, Hold: []KeyCode{29}, Tap: []KeyCode{1}}},
		[]Remap{{Input: []KeyCode{56, 62}, Output: []KeyCode{115}}},
		time.Second,
	)
	require.NoError(t, err)
	codes := tbl.OutputCodes()
	assert.ElementsMatch(t, []KeyCode{29, 1, 115}, codes)
}

func TestInputCodesUnion(t *testing.T) {
	tbl, err := NewTable(
		[]DualRole{{Input: 58, Hold: []KeyCode{29}, Tap: []KeyCode{1}}},
		[]Remap{{Input: []KeyCode{56, 62}, Output: []KeyCode{115}}},
		time.Second,
	)
	require.NoError(t, err)
	codes := tbl.InputCodes()
	assert.ElementsMatch(t, []KeyCode{58, 56, 62}, codes)
}

func TestDualRoleForAndRemapsFor(t *testing.T) {
	tbl, err := NewTable(
		[]DualRole{{Input: 58, Hold: []KeyCode{29}, Tap: []KeyCode{1}}},
		[]Remap{{Input: []KeyCode{56, 62}, Output: []KeyCode{115}}},
		time.Second,
	)
	require.NoError(t, err)

	d, ok := tbl.DualRoleFor(58)
	require.True(t, ok)
	assert.Equal(t, KeyCode(29), d.Hold[0])

	_, ok = tbl.DualRoleFor(56)
	assert.False(t, ok)

	remaps := tbl.RemapsFor(56)
	require.Len(t, remaps, 1)
	assert.Equal(t, KeyCode(115), remaps[0].Output[0])
}
