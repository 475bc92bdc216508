package force_test

import (
	"fmt"
	"math"

	"github.com/matzehuels/forcetree/pkg/force"
)

func Example() {
	nodes := force.NewParticles(3)
	sim := force.New(nodes)
	sim.AddForce("link", force.NewLink([]force.Link{{Source: 0, Target: 1}, {Source: 0, Target: 2}}).
		Distance(0).Strength(1))
	sim.AddForce("charge", force.NewManyBody().Strength(-50))
	sim.AddForce("x", force.NewPositionX())
	sim.AddForce("y", force.NewPositionY())

	ticks := sim.Settle()
	fmt.Println(ticks >= 299 && ticks <= 301)
	fmt.Println(sim.Alpha() < sim.AlphaMin())
	// Output:
	// true
	// true
}

func ExampleSimulation_Pin() {
	sim := force.New(force.NewParticles(2))
	sim.AddForce("charge", force.NewManyBody())

	sim.Pin(0, 10, -10)
	sim.Settle()

	p := sim.Position(0)
	fmt.Println(p.X, p.Y)
	// Output: 10 -10
}

func ExampleSimulation_Find() {
	sim := force.New([]*force.Particle{{X: 0, Y: 0}, {X: 50, Y: 50}})
	i, ok := sim.Find(48, 51, 5)
	fmt.Println(i, ok)
	_, ok = sim.Find(25, 25, 5)
	fmt.Println(ok)
	fmt.Println(math.Round(sim.Position(1).X))
	// Output:
	// 1 true
	// false
	// 50
}
