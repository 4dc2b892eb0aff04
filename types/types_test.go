package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("t5")
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, tf.Duration())

	_, err = ParseTimeframe("m5")
	require.Error(t, err)
}

func TestTargetFilter(t *testing.T) {
	require.Equal(t, TargetFlat, TargetLong.Filter(PositionShort))
	require.Equal(t, TargetFlat, TargetShort.Filter(PositionLong))
	require.Equal(t, TargetLong, TargetLong.Filter(PositionBoth))
	require.Equal(t, TargetShort, TargetShort.Filter(PositionShort))
	require.Equal(t, TargetFlat, TargetFlat.Filter(PositionShort))
}

func TestPositionTypeAllows(t *testing.T) {
	require.True(t, PositionBoth.Allows(SideLong))
	require.True(t, PositionBoth.Allows(SideShort))
	require.False(t, PositionLong.Allows(SideShort))
	require.False(t, PositionShort.Allows(SideLong))
	require.False(t, PositionType("hedge").Valid())
}

func TestQuoteEntryPrice(t *testing.T) {
	q := Quote{Bid: decimal.NewFromInt(99), Ask: decimal.NewFromInt(101)}
	require.True(t, q.EntryPrice(SideLong).Equal(q.Ask))
	require.True(t, q.EntryPrice(SideShort).Equal(q.Bid))
	require.Equal(t, SideShort, SideLong.Opposite())
}
