package livetest

import (
	"strings"
	"testing"

	"github.com/vango-dev/liveset/pkg/live"
)

// Labels returns the labels of the members of s in order.
func Labels(s *live.Set) []string {
	nodes := s.Nodes()
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = label(n)
	}
	return out
}

// ExpectMembers asserts that s holds exactly the labelled elements, in
// order.
func ExpectMembers(t testing.TB, s *live.Set, want ...string) {
	t.Helper()
	expectList(t, "members", Labels(s), want)
}

// ExpectJoined asserts the transform calls recorded by r.
func ExpectJoined(t testing.TB, r *Recorder, want ...string) {
	t.Helper()
	expectList(t, "joined", r.Joined(), want)
}

// ExpectLeft asserts the teardowns recorded by r.
func ExpectLeft(t testing.TB, r *Recorder, want ...string) {
	t.Helper()
	expectList(t, "left", r.Left(), want)
}

func expectList(t testing.TB, what string, got, want []string) {
	t.Helper()
	if strings.Join(got, ",") != strings.Join(want, ",") || len(got) != len(want) {
		t.Errorf("%s = [%s], want [%s]", what, strings.Join(got, " "), strings.Join(want, " "))
	}
}
