// Package compiler turns patchbay source text into an ir.Program.
//
// The language is line oriented. Each chain is declared as
//
//	name: node arg arg >> node arg >> ...
//
// and a line starting with ">>" continues the chain declared above it.
// Arguments are numbers or references ("~name") to another chain's output.
// "//" starts a comment that runs to the end of the line.
//
// Compilation is pure: the same text always yields the same program, and a
// failure never produces a partial program.
package compiler
