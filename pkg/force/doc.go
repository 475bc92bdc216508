// Package force implements an iterative force-directed layout engine.
//
// A [Simulation] owns a set of [Particle] values and a named, ordered set of
// forces. Each step the simulation cools its energy level (alpha) towards a
// target, lets every force adjust particle velocities, then applies velocity
// decay and moves every particle that is not pinned:
//
//	alpha += (alphaTarget - alpha) * alphaDecay
//	for each force: force.Apply(alpha)
//	for each particle: v *= 1 - velocityDecay; x += v   (or x = fixed x)
//
// # Forces
//
//   - [LinkForce]: spring between linked particles with a target distance
//   - [ManyBody]: pairwise attraction or repulsion, approximated with a
//     Barnes-Hut quadtree
//   - [PositionX], [PositionY]: pull each particle towards a coordinate
//   - [Center]: translate all particles so their centroid sits at a point
//
// # Running
//
// [Simulation.Tick] steps synchronously and emits no events, which is what
// static exports use. [Simulation.Run] drives the simulation from a timer
// goroutine, emitting tick events until alpha drops below alphaMin, then an
// end event; [Simulation.Restart] wakes it again.
//
// A Simulation is safe for concurrent use. Steps and mutations are
// serialized by a mutex; tick listeners run outside the lock and receive a
// snapshot of the particle positions.
//
// # Determinism
//
// Initial placement follows a phyllotaxis spiral and the only randomness (a
// tiny jiggle that separates coincident particles) comes from a seeded
// linear congruential generator, so a given input always settles into the
// same layout.
package force
