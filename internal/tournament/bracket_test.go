package tournament

import (
	"reflect"
	"testing"
)

func TestNextPow2(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 8: 8, 9: 16}
	for n, want := range cases {
		if got := nextPow2(n); got != want {
			t.Errorf("nextPow2(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestBracketSeedsPadsToPowerOfTwo(t *testing.T) {
	seeds, cut := bracketSeeds([]int64{1, 2, 3, 4, 5}, 8)
	if len(seeds) != 8 {
		t.Fatalf("5 players should pad to 8 slots, got %d", len(seeds))
	}
	if len(cut) != 0 {
		t.Errorf("no one should be cut, got %v", cut)
	}
	byes := 0
	for _, s := range seeds {
		if s == 0 {
			byes++
		}
	}
	if byes != 3 {
		t.Errorf("expected 3 byes, got %d", byes)
	}
}

func TestBracketSeedsTruncatesOverflow(t *testing.T) {
	players := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	seeds, cut := bracketSeeds(players, 8)
	if len(seeds) != 8 {
		t.Fatalf("bracket should cap at 8, got %d", len(seeds))
	}
	if !reflect.DeepEqual(cut, []int64{9, 10}) {
		t.Errorf("lowest seeds should be cut, got %v", cut)
	}
}

func TestBracketSeedsClampsOddCap(t *testing.T) {
	players := []int64{1, 2, 3, 4, 5, 6, 7}
	seeds, cut := bracketSeeds(players, 6)
	if len(seeds) != 4 {
		t.Fatalf("a cap of 6 should clamp to a 4-slot bracket, got %d", len(seeds))
	}
	for _, s := range seeds {
		if s == 0 {
			t.Errorf("no bye slot should coexist with cut players, seeds=%v", seeds)
		}
	}
	if !reflect.DeepEqual(cut, []int64{5, 6, 7}) {
		t.Errorf("lowest seeds should be cut, got %v", cut)
	}
}

func TestPrevPow2(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 2, 4: 4, 6: 4, 8: 8, 9: 8}
	for n, want := range cases {
		if got := prevPow2(n); got != want {
			t.Errorf("prevPow2(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestFoldPairs(t *testing.T) {
	pairs := foldPairs([]int64{1, 2, 3, 4, 5, 6, 7, 8})
	want := [][2]int64{{1, 8}, {2, 7}, {3, 6}, {4, 5}}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("fold pairing wrong: got %v want %v", pairs, want)
	}
}

func TestFoldPairsWithByes(t *testing.T) {
	seeds, _ := bracketSeeds([]int64{10, 20, 30, 40, 50}, 8)
	pairs := foldPairs(seeds)
	if len(pairs) != 4 {
		t.Fatalf("8 slots make 4 matches, got %d", len(pairs))
	}
	// Top seeds meet the padded bye slots.
	if pairs[0] != [2]int64{10, 0} || pairs[1] != [2]int64{20, 0} || pairs[2] != [2]int64{30, 0} {
		t.Errorf("top three seeds should draw byes, got %v", pairs)
	}
	if pairs[3] != [2]int64{40, 50} {
		t.Errorf("the two lowest seeds should meet, got %v", pairs[3])
	}
}

func TestPairWinners(t *testing.T) {
	pairs := pairWinners([]int64{1, 2, 3, 4})
	want := [][2]int64{{1, 2}, {3, 4}}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("winner pairing wrong: got %v want %v", pairs, want)
	}

	odd := pairWinners([]int64{1, 2, 3})
	if len(odd) != 2 || odd[1] != [2]int64{3, 0} {
		t.Errorf("odd leftover should get a bye, got %v", odd)
	}
}
