// Package cilgo is an iterative convex-optimisation core for tomographic
// image reconstruction. It provides a shape-checked vector space (vec),
// linear operators with adjoints including block stacks (op), objective
// terms with gradient and proximal capabilities (fn), and the iterative
// solvers gradient descent, FISTA, PDHG and CGLS (solve).
//
// Projection and back-projection operators are supplied from outside: any
// type satisfying op.Linear plugs into the data-fidelity terms and solvers
// exactly like the built-in operators. This package adds convenience
// constructors that wire the common reconstruction set-ups together.
package cilgo
