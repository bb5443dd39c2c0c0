package level

import (
	"testing"

	"github.com/talgya/campaign-map/internal/world"
)

func connection(difficulty float64) *world.Connection {
	a := &world.Location{Name: "a", Position: world.Point{X: 10, Y: 20}}
	b := &world.Location{Name: "b", Position: world.Point{X: 30.5, Y: 40}}
	return &world.Connection{Locations: [2]*world.Location{a, b}, Difficulty: difficulty}
}

func TestCreateRandomDeterministic(t *testing.T) {
	f := NewFactory("seed")
	l1 := f.CreateRandom(connection(50))
	l2 := f.CreateRandom(connection(50))
	if l1.Seed() != l2.Seed() {
		t.Fatalf("seeds differ: %s vs %s", l1.Seed(), l2.Seed())
	}
	if l1.Seed() == NewFactory("other").CreateRandom(connection(50)).Seed() {
		t.Error("map seed should salt the level seed")
	}
}

func TestSizeScalesWithDifficulty(t *testing.T) {
	f := NewFactory("seed")
	easy := f.CreateRandom(connection(0)).(*Level)
	hard := f.CreateRandom(connection(100)).(*Level)
	if easy.Width != MinWidth || hard.Width != MaxWidth {
		t.Errorf("widths: easy %v hard %v", easy.Width, hard.Width)
	}
	if easy.Height >= hard.Height {
		t.Errorf("height should grow with difficulty: %v >= %v", easy.Height, hard.Height)
	}
}
