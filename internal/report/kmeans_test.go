package report

import "testing"

func TestClusterCountBuckets(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{1, 1}, {2, 1}, {3, 2}, {9, 2}, {10, 3}, {19, 3}, {20, 4}, {39, 4}, {40, 5}, {100, 5},
	}
	for _, c := range cases {
		if got := clusterCount(c.n); got != c.want {
			t.Errorf("clusterCount(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestKMeansSeparatesDistinctGroups(t *testing.T) {
	points := [][]float32{
		{0, 0}, {0.1, 0.1}, {0.05, -0.05},
		{10, 10}, {10.1, 9.9}, {9.9, 10.1},
	}
	assign := kMeans(points, 2, 42, 10)
	if len(assign) != len(points) {
		t.Fatalf("expected %d assignments, got %d", len(points), len(assign))
	}

	firstGroup := assign[0]
	for i := 0; i < 3; i++ {
		if assign[i] != firstGroup {
			t.Fatalf("expected first three points in same cluster, got %v", assign)
		}
	}
	secondGroup := assign[3]
	if secondGroup == firstGroup {
		t.Fatal("expected the two distinct point clouds in different clusters")
	}
	for i := 3; i < 6; i++ {
		if assign[i] != secondGroup {
			t.Fatalf("expected last three points in same cluster, got %v", assign)
		}
	}
}

func TestKMeansIsDeterministicAcrossRuns(t *testing.T) {
	points := [][]float32{{0, 0}, {1, 1}, {5, 5}, {6, 6}, {0.2, 0.1}}
	a := kMeans(points, 2, 42, 10)
	b := kMeans(points, 2, 42, 10)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected deterministic assignments, got %v vs %v", a, b)
		}
	}
}

func TestKMeansWithKGreaterThanOrEqualN(t *testing.T) {
	points := [][]float32{{0, 0}, {1, 1}}
	assign := kMeans(points, 5, 42, 10)
	if len(assign) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assign))
	}
	if assign[0] == assign[1] {
		t.Fatal("expected each point in its own cluster when k >= n")
	}
}
