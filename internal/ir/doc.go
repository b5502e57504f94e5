// Package ir provides the parsed-program representation shared by every
// patchbay package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// program representation the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - NO float types anywhere - argument tokens stay text, numeric meaning
//     belongs to the node catalog
//   - Chain order is carried explicitly (Program.Order), never derived from
//     map iteration
//   - Clause text is passed through verbatim to node construction and
//     parameter updates
package ir
