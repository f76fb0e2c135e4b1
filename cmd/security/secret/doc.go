// Package secret provides a wrapper for values that must never leak through
// logs, fmt verbs, or serialization.
//
// A Secret only gives up its value through Expose, which keeps every use of
// the raw credential greppable.
package secret
