package physics

// Static pairing of classical and relativistic variants. Kinds missing from
// a table have no counterpart.

var relativisticSolvers = map[SolverKind]SolverKind{
	LeapFrog:          LeapFrogRelativistic,
	Boris:             BorisRelativistic,
	SemiImplicitEuler: SemiImplicitEulerRelativistic,
}

var classicSolvers = invert(relativisticSolvers)

var relativisticForces = map[ForceKind]ForceKind{
	ForceConstant: ForceConstantRelativistic,
	ForceGrid:     ForceGridRelativistic,
}

var classicForces = invert(relativisticForces)

func invert[K comparable](m map[K]K) map[K]K {
	out := make(map[K]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// RelativisticCounterpart returns the relativistic variant of a classical
// solver kind.
func (k SolverKind) RelativisticCounterpart() (SolverKind, bool) {
	r, ok := relativisticSolvers[k]
	return r, ok
}

// ClassicCounterpart returns the classical variant of a relativistic solver
// kind.
func (k SolverKind) ClassicCounterpart() (SolverKind, bool) {
	c, ok := classicSolvers[k]
	return c, ok
}

// Counterpart returns the variant of k for the requested kinematics. A kind
// already matching is returned unchanged.
func (k ForceKind) Counterpart(relativistic bool) (ForceKind, bool) {
	if k.Relativistic() == relativistic {
		return k, k.Leaf()
	}
	if relativistic {
		r, ok := relativisticForces[k]
		return r, ok
	}
	c, ok := classicForces[k]
	return c, ok
}
