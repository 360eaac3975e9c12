// Package lookup holds the bounded, injectable lookup services used while
// resolving scan results: the OUI vendor table and the ownership assignment
// lookup. Both keep their memoized answers in a size-bounded LRU owned by the
// service instance, so tests can build a fresh one or substitute a stub.
package lookup
