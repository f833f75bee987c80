package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistributeMarksEvenSplit(t *testing.T) {
	require.Equal(t, []float64{22.5, 22.5}, DistributeMarks(45, 2))
	require.Equal(t, []float64{15, 15, 15}, DistributeMarks(45, 3))
	require.Equal(t, []float64{9, 9, 9, 9, 9}, DistributeMarks(45, 5))
}

func TestDistributeMarksRemainderGoesToLowerIndexes(t *testing.T) {
	shares := DistributeMarks(45, 7)
	require.Len(t, shares, 7)

	// 4500 pennies / 7 = 642 base with 6 left over, dealt from the front.
	require.Equal(t, 6.43, shares[0])
	require.Equal(t, 6.43, shares[5])
	require.Equal(t, 6.42, shares[6])
	require.True(t, shares[0] >= shares[6])
}

func TestDistributeMarksSumsExactly(t *testing.T) {
	for count := 1; count <= 40; count++ {
		shares := DistributeMarks(45, count)
		require.Len(t, shares, count)

		pennies := 0
		for _, share := range shares {
			pennies += int(math.Round(share * 100))
		}
		require.Equal(t, 4500, pennies, "count=%d must distribute all pennies", count)
	}
}

func TestDistributeMarksDegenerateCount(t *testing.T) {
	require.Empty(t, DistributeMarks(45, 0))
	require.Empty(t, DistributeMarks(45, -3))
}

func TestRound2(t *testing.T) {
	require.Equal(t, 6.43, Round2(6.4285714))
	require.Equal(t, 0.1, Round2(0.1))
	require.Equal(t, 2.68, Round2(2.675000001))
}

func TestClamp(t *testing.T) {
	require.Equal(t, 0.0, Clamp(-3, 0, 45))
	require.Equal(t, 45.0, Clamp(99, 0, 45))
	require.Equal(t, 12.5, Clamp(12.5, 0, 45))
}
