package model

import (
	"fmt"
	"strings"
)

// Rank is a participant's position in the distribution hierarchy.
// Ranks are totally ordered; compare them with Index.
type Rank string

const (
	RankNormal   Rank = "NORMAL"
	RankVIP      Rank = "VIP"
	RankStar1    Rank = "STAR_1"
	RankStar2    Rank = "STAR_2"
	RankStar3    Rank = "STAR_3"
	RankStar4    Rank = "STAR_4"
	RankStar5    Rank = "STAR_5"
	RankDirector Rank = "DIRECTOR"
)

// Ranks lists every rank from lowest to highest.
var Ranks = []Rank{
	RankNormal,
	RankVIP,
	RankStar1,
	RankStar2,
	RankStar3,
	RankStar4,
	RankStar5,
	RankDirector,
}

var rankIndex = func() map[Rank]int {
	m := make(map[Rank]int, len(Ranks))
	for i, r := range Ranks {
		m[r] = i
	}
	return m
}()

// Index returns the ordinal of r, or -1 for an unknown rank.
func (r Rank) Index() int {
	if i, ok := rankIndex[r]; ok {
		return i
	}
	return -1
}

func (r Rank) Valid() bool { return r.Index() >= 0 }

// Outranks reports whether r is strictly higher than other.
func (r Rank) Outranks(other Rank) bool {
	return r.Index() > other.Index()
}

func (r Rank) String() string { return string(r) }

// ParseRank accepts rank names case-insensitively ("star_1", "STAR_1").
func ParseRank(s string) (Rank, error) {
	r := Rank(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown rank %q", s)
	}
	return r, nil
}

// RankAt returns the rank with the given ordinal.
func RankAt(index int) (Rank, bool) {
	if index < 0 || index >= len(Ranks) {
		return "", false
	}
	return Ranks[index], true
}
