// Package pool manages reusable reasoning engines.
//
// A Pool hands out engines built by a Factory. At most capacity engines are
// checked out at once; further Acquire calls block in arrival order until an
// engine is released or the context ends. Released engines are reset and
// handed to the next caller before any new engine is built.
//
// A Registry maps pool names to pools. The first call to Registry.Pool for a
// name creates the pool; later calls return it and ignore their arguments.
//
// With a StateStore attached, AcquireState and ReleaseState load and save an
// engine's working memory under a caller-chosen id.
package pool
