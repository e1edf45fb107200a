package matchmaking

import (
	"math/rand"
	"regexp"
	"sort"
	"testing"
)

func TestServerForOrderInsensitive(t *testing.T) {
	cases := []struct {
		a, b string
		want string
	}{
		{"KR", "US", "us-west"},
		{"US", "KR", "us-west"},
		{"us", " kr ", "us-west"},
		{"DE", "FR", "eu-central"},
		{"GB", "FR", "eu-west"},
		{"AU", "NZ", "oce"},
		{"BR", "BR", "sa-east"},
		{"JP", "MX", defaultServer},
		{"", "", defaultServer},
	}
	for _, tc := range cases {
		if got := ServerFor(tc.a, tc.b); got != tc.want {
			t.Errorf("ServerFor(%q, %q) = %q, want %q", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestPickMapRespectsVetoes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	// Between the two players every map but one is vetoed.
	vetoesA := MapPool[:4]
	vetoesB := MapPool[4:6]
	want := MapPool[6]
	for i := 0; i < 50; i++ {
		if got := PickMap(rng, vetoesA, vetoesB); got != want {
			t.Fatalf("PickMap returned vetoed map %q", got)
		}
	}
}

func TestPickMapFullyVetoedFallsBack(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := PickMap(rng, MapPool, nil)

	found := false
	for _, m := range MapPool {
		if m == got {
			found = true
		}
	}
	if !found {
		t.Errorf("fallback returned %q, not in the pool", got)
	}
}

func TestValidateVetoes(t *testing.T) {
	if err := ValidateVetoes(nil); err != nil {
		t.Errorf("no vetoes should validate: %v", err)
	}
	if err := ValidateVetoes(MapPool[:MaxVetoes]); err != nil {
		t.Errorf("%d vetoes should validate: %v", MaxVetoes, err)
	}
	if err := ValidateVetoes(MapPool[:MaxVetoes+1]); err == nil {
		t.Error("too many vetoes validated")
	}
	if err := ValidateVetoes([]string{"Lost Temple"}); err == nil {
		t.Error("map outside the pool validated")
	}
}

func TestChatChannelTag(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pattern := regexp.MustCompile(`^scevo\d{3}$`)
	for i := 0; i < 20; i++ {
		tag := ChatChannelTag(rng)
		if !pattern.MatchString(tag) {
			t.Fatalf("tag %q does not match %v", tag, pattern)
		}
	}
}

func TestPoolSortedCopy(t *testing.T) {
	p := Pool()
	if !sort.StringsAreSorted(p) {
		t.Errorf("Pool() not sorted: %v", p)
	}
	p[0] = "mutated"
	if Pool()[0] == "mutated" {
		t.Error("Pool() exposes the backing array")
	}
}
