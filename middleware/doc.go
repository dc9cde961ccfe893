// Package middleware provides the two call-shaped entry points that
// wrap a remote model invocation with caching: WrapGenerate for
// single-shot calls and WrapStream for streaming calls.
//
// No error originating inside the cache subsystem ever fails the
// wrapped call; every failure degrades to invoking the real call.
package middleware
