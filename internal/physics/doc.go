// Package physics implements the particle simulation driven by the animation
// controller.
//
// A [Simulation] owns a particle set and four interchangeable strategies:
//
//   - a force composition, a tree of [Force] values rooted in a [CombinedForce]
//   - a [Solver] advancing every particle by one time step
//   - a collision [Detector] paired with a [Resolver]
//   - a [BoundaryKind] applied after every step
//
// Strategies are identified by closed kind enumerations ([ForceKind],
// [SolverKind], [DetectorKind], [ResolutionKind]) and built by constructors
// keyed on those kinds. Replacing a strategy while particles are staggered
// (leapfrog and Boris families keep half-step velocities) must be bracketed
// by [Simulation.CompleteAllParticles] and [Simulation.PrepareAllParticles].
//
// # Thread Safety
//
// Simulation instances are NOT thread-safe. The animation controller owns the
// live simulation and touches it from a single goroutine.
package physics
