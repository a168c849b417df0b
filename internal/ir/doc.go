// Package ir provides the intermediate representation of a located dataflow
// graph and the traversal primitives every compiler pass is built on.
//
// A graph is a set of leaves (terminal consumers), each owning a tree of
// nodes. Structural sharing is expressed with Tee nodes that reference a cell
// in the graph's Arena by a stable TeeID; every mutating traversal carries a
// SeenTees memo so a shared node is transformed exactly once.
//
// This package imports only internal/location. All other internal packages
// build on ir; ir never imports them.
//
// Key design constraints:
//   - A pass-ready graph contains no Placeholder nodes. A Placeholder only
//     occupies a cell while its node is moved out for transformation, so a
//     reentrant visit fails loudly.
//   - Contract violations abort with a panic carrying *Error. Only the
//     outermost entry point converts them with Recover.
//   - Closures and types are opaque code fragments (Expr, Type); the compiler
//     never interprets them.
package ir
