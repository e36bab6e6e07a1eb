// Package ci builds and diagonalises configuration-interaction sectors.
//
// A sector is fixed by 2J and a leading configuration. Its basis is the
// set of determinants with 2M = 2J drawn from the leading configuration
// and, optionally, its single and double excitations into the valence
// basis. The model Hamiltonian is diagonalised with gonum's EigenSym and
// the lowest levels kept.
package ci
