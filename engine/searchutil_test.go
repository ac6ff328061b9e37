package engine

import (
	"testing"

	"github.com/matryer/is"

	"tinyuci/rules"
)

func TestFormatScore(t *testing.T) {
	is := is.New(t)
	is.Equal(FormatScore(0), "cp 0")
	is.Equal(FormatScore(-250), "cp -250")
	is.Equal(FormatScore(MateScore-1), "mate 1")
	is.Equal(FormatScore(MateScore-3), "mate 2")
	is.Equal(FormatScore(-MateScore+2), "mate -1")
	is.True(IsMateScore(MateThreshold))
	is.True(!IsMateScore(MateThreshold - 1))
}

func TestPVLine(t *testing.T) {
	is := is.New(t)
	pos := mustPosition(t, kiwipete)
	a, err := pos.ParseMove("e5f7")
	is.NoErr(err)
	b, err := pos.ParseMove("e1g1")
	is.NoErr(err)

	var child, line PVLine
	child.Moves = append(child.Moves, b)
	line.Update(a, child)
	is.Equal(line.String(), "e5f7 e1g1")
	is.Equal(line.GetPVMove(), a)

	clone := line.Clone()
	line.Clear()
	is.Equal(len(clone.Moves), 2)
	is.Equal(line.GetPVMove(), rules.NoMove)
}
